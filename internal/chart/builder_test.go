package chart

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *Table {
	return NewTable([]string{"y", "v"}, [][]any{
		{2019.0, 10.0},
		{2020.0, nil},
		{2021.0, 30.0},
	})
}

func mustMeta(t *testing.T, raw string) Meta {
	t.Helper()
	m, err := ParseMeta(json.RawMessage(raw))
	require.NoError(t, err)
	return m
}

func TestBuildLineChartKeepsEveryRow(t *testing.T) {
	meta := mustMeta(t, `{"chart_type":"선","x":"y","y":["v"]}`)

	fig, err := Build(sampleTable(), meta)
	require.NoError(t, err)
	require.Len(t, fig.Data, 1)
	assert.Equal(t, "scatter", fig.Data[0].Type)
	assert.Equal(t, "lines+markers", fig.Data[0].Mode)
	assert.Len(t, fig.Data[0].X, 3)
	assert.Len(t, fig.Data[0].Y, 3)
}

func TestBuildSeriesLengthFollowsDropna(t *testing.T) {
	meta := mustMeta(t, `{"chart_type":"line","x":"y","y":["v"],"transform":{"dropna":true}}`)

	fig, err := Build(sampleTable(), meta)
	require.NoError(t, err)
	require.Len(t, fig.Data, 1)
	assert.Equal(t, []any{2019.0, 2021.0}, fig.Data[0].X)
	assert.Equal(t, []any{10.0, 30.0}, fig.Data[0].Y)
}

func TestBuildScatterRejectsTwoYColumns(t *testing.T) {
	tbl := NewTable([]string{"x", "a", "b"}, [][]any{{1.0, 2.0, 3.0}})
	meta := mustMeta(t, `{"chart_type":"산점도","x":"x","y":["a","b"]}`)

	_, err := Build(tbl, meta)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidChart)
	assert.Contains(t, err.Error(), "scatter")
}

func TestBuildMissingXColumnNamesIt(t *testing.T) {
	meta := mustMeta(t, `{"chart_type":"bar","x":"year","y":["v"]}`)

	_, err := Build(sampleTable(), meta)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), `"year"`)
}

func TestBuildMissingYColumnNamesIt(t *testing.T) {
	meta := mustMeta(t, `{"chart_type":"bar","x":"y","y":["nope"]}`)

	_, err := Build(sampleTable(), meta)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope"`)
}

func TestBuildUnknownChartType(t *testing.T) {
	meta := mustMeta(t, `{"chart_type":"pie","x":"y","y":["v"]}`)

	_, err := Build(sampleTable(), meta)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidChart)
	assert.Contains(t, err.Error(), `"pie"`)
}

func TestBuildRequiresY(t *testing.T) {
	_, err := Build(sampleTable(), Meta{ChartType: "line", X: "y"})
	assert.ErrorIs(t, err, ErrInvalidChart)
}

func TestBuildBarMode(t *testing.T) {
	tbl := NewTable([]string{"x", "a", "b"}, [][]any{{"k", 1.0, 2.0}})

	fig, err := Build(tbl, Meta{ChartType: "막대", X: "x", Y: StringList{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "group", fig.Layout.BarMode)
	assert.Len(t, fig.Data, 2)

	fig, err = Build(tbl, Meta{ChartType: "bar", X: "x", Y: StringList{"a"}})
	require.NoError(t, err)
	assert.Equal(t, "relative", fig.Layout.BarMode)
}

func TestBuildAreaStacks(t *testing.T) {
	fig, err := Build(sampleTable(), Meta{ChartType: "영역", X: "y", Y: StringList{"v"}})
	require.NoError(t, err)
	assert.Equal(t, "one", fig.Data[0].StackGroup)
}

func TestBuildScatterSizesByNumericY(t *testing.T) {
	tbl := NewTable([]string{"x", "v"}, [][]any{{1.0, 4.0}, {2.0, 8.0}})

	fig, err := Build(tbl, Meta{ChartType: "scatter", X: "x", Y: StringList{"v"}})
	require.NoError(t, err)
	require.NotNil(t, fig.Data[0].Marker)
	assert.Equal(t, "area", fig.Data[0].Marker.SizeMode)
}

func TestBuildColorSplitsTraces(t *testing.T) {
	tbl := NewTable([]string{"year", "region", "value"}, [][]any{
		{2020.0, "seoul", 1.0},
		{2020.0, "busan", 2.0},
		{2021.0, "seoul", 3.0},
	})

	fig, err := Build(tbl, Meta{ChartType: "line", X: "year", Y: StringList{"value"}, Color: "region"})
	require.NoError(t, err)
	require.Len(t, fig.Data, 2)
	assert.Equal(t, "seoul", fig.Data[0].Name)
	assert.Equal(t, []any{1.0, 3.0}, fig.Data[0].Y)
	assert.Equal(t, "busan", fig.Data[1].Name)
}

func TestBuildSelectorsSurviveRenames(t *testing.T) {
	tbl := NewTable([]string{"Year", "Spending"}, [][]any{
		{"2020", "1.5"},
		{"2021", "bad"},
		{"2022", "2.5"},
	})
	meta := mustMeta(t, `{
		"chart_type": "line",
		"x": "Year",
		"y": ["Spending"],
		"transform": {
			"rename": {"Year": "year", "Spending": "spend"},
			"to_numeric": ["year", "spend"],
			"scale": {"spend": 100},
			"rename_after_scale": {"spend": "spend (%)"},
			"dropna": ["spend (%)"],
			"sort_by": {"column": "year", "ascending": false}
		}
	}`)

	fig, err := Build(tbl, meta)
	require.NoError(t, err)
	require.Len(t, fig.Data, 1)
	assert.Equal(t, "spend (%)", fig.Data[0].Name)
	assert.Equal(t, []any{2022.0, 2020.0}, fig.Data[0].X)
	assert.Equal(t, []any{250.0, 150.0}, fig.Data[0].Y)
}

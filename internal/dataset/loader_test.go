package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"datastory/internal/chart"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"
)

func writeWorkbook(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "crime_trend"))
	require.NoError(t, f.SetSheetRow("crime_trend", "A1", &[]any{"year", "national"}))
	require.NoError(t, f.SetSheetRow("crime_trend", "A2", &[]any{2020, 1.5}))
	require.NoError(t, f.SetSheetRow("crime_trend", "A3", &[]any{2021, ""}))
	require.NoError(t, f.SaveAs(path))
}

func TestLoadWorkbookParsesAndCaches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.xlsx")
	writeWorkbook(t, path)

	l, err := NewLoader(dir)
	require.NoError(t, err)

	wb, err := l.LoadWorkbook(path)
	require.NoError(t, err)
	tbl := wb["crime_trend"]
	require.NotNil(t, tbl)
	assert.Equal(t, []string{"year", "national"}, tbl.Columns)
	assert.Equal(t, []any{2020.0, 2021.0}, tbl.Column("year"))
	assert.Equal(t, []any{1.5, nil}, tbl.Column("national"))

	// The cache is keyed by path and survives the file disappearing.
	require.NoError(t, os.Remove(path))
	again, err := l.LoadWorkbook(path)
	require.NoError(t, err)
	assert.Same(t, tbl, again["crime_trend"])
}

func TestWorkbookPathMatchesNormalizationForms(t *testing.T) {
	dir := t.TempDir()
	name := "인구.xlsx"
	writeWorkbook(t, filepath.Join(dir, norm.NFD.String(name)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "~$lock.xlsx"), []byte("x"), 0o644))

	l, err := NewLoader(dir)
	require.NoError(t, err)

	books, err := l.Workbooks()
	require.NoError(t, err)
	assert.Len(t, books, 1)

	path, err := l.WorkbookPath(norm.NFC.String(name))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, norm.NFD.String(name)), path)
}

func TestWorkbooksRequiresDirectory(t *testing.T) {
	l, err := NewLoader(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)

	_, err = l.Workbooks()
	assert.ErrorContains(t, err, "expected directory missing")
}

func TestTableFromMeta(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "sample.xlsx"))
	l, err := NewLoader(dir)
	require.NoError(t, err)

	tbl, err := l.TableFromMeta(chart.Meta{Workbook: "sample.xlsx", Sheet: "crime_trend"})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows())

	_, err = l.TableFromMeta(chart.Meta{Workbook: "sample.xlsx", Sheet: "nope"})
	assert.ErrorIs(t, err, ErrSheetNotFound)
	assert.ErrorContains(t, err, "nope")

	_, err = l.TableFromMeta(chart.Meta{Workbook: "other.xlsx", Sheet: "crime_trend"})
	assert.ErrorIs(t, err, ErrWorkbookNotFound)

	_, err = l.TableFromMeta(chart.Meta{Sheet: "s"})
	assert.ErrorIs(t, err, ErrWorkbookNotFound)
}

func TestTableFromUploadedData(t *testing.T) {
	l, err := NewLoader(t.TempDir())
	require.NoError(t, err)

	meta := chart.Meta{
		Sheet: "s1",
		UploadedData: &chart.UploadedData{Sheets: map[string]chart.UploadedSheet{
			"s1": {Columns: []string{"a", "b"}, Data: [][]any{{1.0, 2.0}}},
		}},
	}
	tbl, err := l.TableFromMeta(meta)
	require.NoError(t, err)
	assert.Equal(t, []any{2.0}, tbl.Column("b"))

	meta.Sheet = "s2"
	_, err = l.TableFromMeta(meta)
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestTableFromRowsTreatsNonFiniteAsMissing(t *testing.T) {
	tbl := tableFromRows([][]string{
		{"y", "v"},
		{"2020", "NaN"},
		{"2021", "inf"},
		{"2022", "-Infinity"},
		{"2023", "7"},
	})
	assert.Equal(t, []any{nil, nil, nil, 7.0}, tbl.Column("v"))
}

func TestLoadWorkbookReadsRawNumbers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "formatted.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"region", "population"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"seoul", 1234567}))
	style, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "B2", "B2", style))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	l, err := NewLoader(dir)
	require.NoError(t, err)
	wb, err := l.LoadWorkbook(path)
	require.NoError(t, err)
	assert.Equal(t, []any{1234567.0}, wb["Sheet1"].Column("population"))
}

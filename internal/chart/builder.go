package chart

import (
	"fmt"
)

const (
	defaultFont   = "Noto Sans KR, Noto Sans, sans-serif"
	maxMarkerSize = 40.0
)

// Prepared is the reshaped data plus the axis columns resolved through the rename passes.
type Prepared struct {
	Table *Table
	X     string
	Y     []string
	Color string
}

// Prepare runs the transform pipeline: filters, row slicing, rename, projection,
// de-duplication, numeric coercion, scaling, post-scale rename, dropna, sort, and
// finally the original filters again so filters written against renamed columns apply.
func Prepare(t *Table, meta Meta) (*Prepared, error) {
	working := applyFilters(t, meta.Filters)
	if meta.Transform != nil {
		working = applyTransform(working, meta.Transform)
		working = applyFilters(working, meta.Filters)
	}
	if len(meta.Y) == 0 {
		return nil, fmt.Errorf("%w: y columns are required", ErrInvalidChart)
	}

	p := &Prepared{
		Table: working,
		X:     resolveColumn(meta.X, meta.Transform),
		Color: resolveColumn(meta.Color, meta.Transform),
	}
	for _, y := range meta.Y {
		p.Y = append(p.Y, resolveColumn(y, meta.Transform))
	}
	return p, nil
}

func resolveColumn(name string, tr *Transform) string {
	if name == "" || tr == nil {
		return name
	}
	if to, ok := tr.Rename[name]; ok {
		name = to
	}
	if to, ok := tr.RenameAfterScale[name]; ok {
		name = to
	}
	return name
}

// Build turns a table and its declarative metadata into one figure.
func Build(t *Table, meta Meta) (*Figure, error) {
	p, err := Prepare(t, meta)
	if err != nil {
		return nil, err
	}
	data := p.Table

	if !data.HasColumn(p.X) {
		return nil, fmt.Errorf("%w: x column %q not found", ErrMissingColumn, p.X)
	}
	for _, y := range p.Y {
		if !data.HasColumn(y) {
			return nil, fmt.Errorf("%w: y column %q not found", ErrMissingColumn, y)
		}
	}
	color := ""
	if p.Color != "" && data.HasColumn(p.Color) {
		color = p.Color
	}

	chartType, err := ParseChartType(meta.ChartType)
	if err != nil {
		return nil, err
	}

	fig := &Figure{Data: []Trace{}}
	fig.Layout.Font = &Font{Family: defaultFont}
	fig.Layout.XAxis.Title = &Text{Text: label(meta.Labels, p.X)}
	if len(p.Y) == 1 {
		fig.Layout.YAxis.Title = &Text{Text: label(meta.Labels, p.Y[0])}
	} else {
		fig.Layout.YAxis.Title = &Text{Text: label(meta.Labels, "value")}
	}
	fig.SetTitle(meta.Title)

	switch chartType {
	case ChartLine:
		fig.Data = seriesTraces(data, p.X, p.Y, color, func(tr *Trace) {
			tr.Type, tr.Mode = "scatter", "lines+markers"
		})
	case ChartArea:
		fig.Data = seriesTraces(data, p.X, p.Y, color, func(tr *Trace) {
			tr.Type, tr.Mode, tr.StackGroup = "scatter", "lines", "one"
		})
	case ChartBar:
		fig.Data = seriesTraces(data, p.X, p.Y, color, func(tr *Trace) {
			tr.Type = "bar"
		})
		if len(p.Y) > 1 {
			fig.Layout.BarMode = "group"
		} else {
			fig.Layout.BarMode = "relative"
		}
	case ChartScatter:
		if len(p.Y) != 1 {
			return nil, fmt.Errorf("%w: scatter chart needs exactly one y column, got %d (%v)", ErrInvalidChart, len(p.Y), p.Y)
		}
		fig.Data = seriesTraces(data, p.X, p.Y, color, func(tr *Trace) {
			tr.Type, tr.Mode = "scatter", "markers"
			tr.Marker = sizeMarker(tr.Y)
		})
	}
	return fig, nil
}

func label(labels map[string]string, column string) string {
	if l, ok := labels[column]; ok && l != "" {
		return l
	}
	return column
}

// seriesTraces emits one trace per Y column, split further per distinct color value.
func seriesTraces(t *Table, x string, ys []string, color string, style func(*Trace)) []Trace {
	xs := t.Column(x)
	var groups []colorGroup
	if color != "" {
		groups = groupRows(t.Column(color))
	} else {
		all := make([]int, t.NumRows())
		for i := range all {
			all[i] = i
		}
		groups = []colorGroup{{rows: all}}
	}

	traces := make([]Trace, 0, len(ys)*len(groups))
	for _, y := range ys {
		values := t.Column(y)
		for _, g := range groups {
			tr := Trace{
				Name: traceName(y, g.name, len(ys) > 1, color != ""),
				X:    pick(xs, g.rows),
				Y:    pick(values, g.rows),
			}
			style(&tr)
			traces = append(traces, tr)
		}
	}
	return traces
}

type colorGroup struct {
	name string
	rows []int
}

func groupRows(values []any) []colorGroup {
	index := map[string]int{}
	var groups []colorGroup
	for r, v := range values {
		key := fmt.Sprint(v)
		if isMissing(v) {
			key = ""
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, colorGroup{name: key})
		}
		groups[i].rows = append(groups[i].rows, r)
	}
	return groups
}

func traceName(y, group string, multiY, grouped bool) string {
	switch {
	case grouped && multiY:
		return y + ", " + group
	case grouped:
		return group
	}
	return y
}

func pick(values []any, rows []int) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = values[r]
	}
	return out
}

// sizeMarker scales marker area by the Y values when every present value is numeric.
func sizeMarker(values []any) *Marker {
	maxValue := 0.0
	for _, v := range values {
		if isMissing(v) {
			continue
		}
		if !isNumericValue(v) {
			return nil
		}
		n, _ := toNumber(v)
		if n > maxValue {
			maxValue = n
		}
	}
	if maxValue <= 0 {
		return nil
	}
	return &Marker{
		Size:     values,
		SizeMode: "area",
		SizeRef:  2 * maxValue / (maxMarkerSize * maxMarkerSize),
	}
}

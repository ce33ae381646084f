package chart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type ChartType string

const (
	ChartLine    ChartType = "line"
	ChartArea    ChartType = "area"
	ChartBar     ChartType = "bar"
	ChartScatter ChartType = "scatter"
)

// ParseChartType accepts the English names and the Korean editor labels.
func ParseChartType(s string) (ChartType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "line", "선":
		return ChartLine, nil
	case "area", "영역":
		return ChartArea, nil
	case "bar", "막대":
		return ChartBar, nil
	case "scatter", "산점도":
		return ChartScatter, nil
	}
	return "", fmt.Errorf("%w: unsupported chart type %q", ErrInvalidChart, s)
}

// Meta is the declarative description of one chart: where the data comes from,
// how to reshape it, and which columns map to which axis.
type Meta struct {
	ChartType string            `json:"chart_type"`
	Title     string            `json:"title,omitempty"`
	X         string            `json:"x"`
	Y         StringList        `json:"y"`
	Color     string            `json:"color,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
	Filters   map[string]any    `json:"filters,omitempty"`
	Transform *Transform        `json:"transform,omitempty"`

	Workbook     string        `json:"workbook,omitempty"`
	Sheet        string        `json:"sheet,omitempty"`
	UploadedData *UploadedData `json:"uploaded_data,omitempty"`
}

// ParseMeta decodes chart metadata from slot JSON.
func ParseMeta(raw json.RawMessage) (Meta, error) {
	var m Meta
	if len(bytes.TrimSpace(raw)) == 0 {
		return m, fmt.Errorf("%w: chart metadata is empty", ErrInvalidChart)
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("%w: %v", ErrInvalidChart, err)
	}
	return m, nil
}

type UploadedData struct {
	Sheets map[string]UploadedSheet `json:"sheets"`
}

type UploadedSheet struct {
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

type Transform struct {
	RowRange         *Range             `json:"row_range,omitempty"`
	SliceRows        *Range             `json:"slice_rows,omitempty"`
	Rename           map[string]string  `json:"rename,omitempty"`
	UseColumns       []ColumnRef        `json:"use_columns,omitempty"`
	ToNumeric        []string           `json:"to_numeric,omitempty"`
	Scale            map[string]float64 `json:"scale,omitempty"`
	RenameAfterScale map[string]string  `json:"rename_after_scale,omitempty"`
	DropNA           *DropNA            `json:"dropna,omitempty"`
	SortBy           *SortBy            `json:"sort_by,omitempty"`
}

type SortBy struct {
	Column    string `json:"column"`
	Ascending *bool  `json:"ascending,omitempty"`
}

func (s SortBy) ascending() bool {
	return s.Ascending == nil || *s.Ascending
}

// Range is a [start, end] pair, either bound may be null. End is inclusive.
type Range struct {
	Start *int
	End   *int
}

func (r *Range) UnmarshalJSON(data []byte) error {
	var pair []*float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("range must be [start, end]: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("range must have two elements, got %d", len(pair))
	}
	r.Start, r.End = intPtr(pair[0]), intPtr(pair[1])
	return nil
}

func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([]*int{r.Start, r.End})
}

func intPtr(f *float64) *int {
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}

// ColumnRef selects a column by name or by position.
type ColumnRef struct {
	Name       string
	Position   int
	ByPosition bool
}

func (c *ColumnRef) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		c.Position, c.ByPosition = int(n), true
		return nil
	}
	return json.Unmarshal(data, &c.Name)
}

func (c ColumnRef) MarshalJSON() ([]byte, error) {
	if c.ByPosition {
		return json.Marshal(c.Position)
	}
	return json.Marshal(c.Name)
}

// DropNA is either a boolean (any column) or a list of column names.
type DropNA struct {
	Any    bool
	Subset []string
}

func (d *DropNA) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		d.Any = b
		return nil
	}
	return json.Unmarshal(data, &d.Subset)
}

func (d DropNA) MarshalJSON() ([]byte, error) {
	if d.Subset != nil {
		return json.Marshal(d.Subset)
	}
	return json.Marshal(d.Any)
}

// StringList decodes from either a single string or a list of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = StringList{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*l = list
	return nil
}

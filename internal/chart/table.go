package chart

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Table is a small column-major frame. Data[c][r] holds the cell of column c, row r.
// A nil cell (or a NaN or infinite float) is a missing value. Index carries the row labels used by
// label-based slicing; it is reset to 0..n-1 at the end of a transform.
type Table struct {
	Columns []string
	Data    [][]any
	Index   []int
}

// NewTable builds a table from row-major values. Short rows are padded with missing cells.
func NewTable(columns []string, rows [][]any) *Table {
	t := &Table{
		Columns: append([]string(nil), columns...),
		Data:    make([][]any, len(columns)),
		Index:   make([]int, len(rows)),
	}
	for c := range columns {
		t.Data[c] = make([]any, len(rows))
	}
	for r, row := range rows {
		t.Index[r] = r
		for c := range columns {
			if c < len(row) {
				t.Data[c][r] = row[c]
			}
		}
	}
	return t
}

func (t *Table) NumRows() int {
	return len(t.Index)
}

// ColumnIndex returns the position of the first column with the given name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Column returns the cells of the named column, or nil when absent.
func (t *Table) Column(name string) []any {
	i := t.ColumnIndex(name)
	if i < 0 {
		return nil
	}
	return t.Data[i]
}

func (t *Table) selectRows(rows []int) *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Data:    make([][]any, len(t.Columns)),
		Index:   make([]int, len(rows)),
	}
	for i, r := range rows {
		out.Index[i] = t.Index[r]
	}
	for c := range t.Columns {
		col := make([]any, len(rows))
		for i, r := range rows {
			col[i] = t.Data[c][r]
		}
		out.Data[c] = col
	}
	return out
}

func (t *Table) selectColumns(cols []int) *Table {
	out := &Table{
		Columns: make([]string, len(cols)),
		Data:    make([][]any, len(cols)),
		Index:   append([]int(nil), t.Index...),
	}
	for i, c := range cols {
		out.Columns[i] = t.Columns[c]
		out.Data[i] = append([]any(nil), t.Data[c]...)
	}
	return out
}

func (t *Table) clone() *Table {
	all := make([]int, len(t.Columns))
	for i := range all {
		all[i] = i
	}
	return t.selectColumns(all)
}

func (t *Table) resetIndex() {
	for i := range t.Index {
		t.Index[i] = i
	}
}

func isMissing(v any) bool {
	if v == nil {
		return true
	}
	if f, ok := v.(float64); ok && !isFinite(f) {
		return true
	}
	return false
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// toNumber converts numeric-like cells. Strings are parsed after trimming.
// NaN and infinities are not numbers here; JSON cannot carry them.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, isFinite(n)
	case float32:
		return float64(n), isFinite(float64(n))
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || !isFinite(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func isNumericValue(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64, int32:
		return !isMissing(v)
	}
	return false
}

func valuesEqual(cell, want any) bool {
	if isMissing(cell) || isMissing(want) {
		return isMissing(cell) && isMissing(want)
	}
	if isNumericValue(cell) && isNumericValue(want) {
		a, _ := toNumber(cell)
		b, _ := toNumber(want)
		return a == b
	}
	switch c := cell.(type) {
	case string:
		w, ok := want.(string)
		return ok && c == w
	case bool:
		w, ok := want.(bool)
		return ok && c == w
	}
	return fmt.Sprint(cell) == fmt.Sprint(want)
}

// compareValues orders numbers numerically and everything else by its string form.
func compareValues(a, b any) int {
	if isNumericValue(a) && isNumericValue(b) {
		x, _ := toNumber(a)
		y, _ := toNumber(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

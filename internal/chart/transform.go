package chart

import (
	"sort"
	"strconv"
)

// applyFilters keeps rows where every filtered column equals the scalar or is a
// member of the listed values. Filters on absent columns are skipped.
func applyFilters(t *Table, filters map[string]any) *Table {
	if len(filters) == 0 {
		return t
	}
	rows := make([]int, 0, t.NumRows())
	for r := 0; r < t.NumRows(); r++ {
		if rowMatches(t, r, filters) {
			rows = append(rows, r)
		}
	}
	return t.selectRows(rows)
}

func rowMatches(t *Table, r int, filters map[string]any) bool {
	for column, want := range filters {
		c := t.ColumnIndex(column)
		if c < 0 {
			continue
		}
		cell := t.Data[c][r]
		if set, ok := want.([]any); ok {
			found := false
			for _, v := range set {
				if valuesEqual(cell, v) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}
		if !valuesEqual(cell, want) {
			return false
		}
	}
	return true
}

func applyTransform(t *Table, tr *Transform) *Table {
	out := t.clone()

	if tr.RowRange != nil {
		out = sliceByPosition(out, tr.RowRange)
	}
	if tr.SliceRows != nil {
		out = sliceByLabel(out, tr.SliceRows)
	}
	if len(tr.Rename) > 0 {
		renameColumns(out, tr.Rename)
	}
	if len(tr.UseColumns) > 0 {
		out = useColumns(out, tr.UseColumns)
	}
	out = dedupeColumns(out)

	for _, name := range tr.ToNumeric {
		if c := out.ColumnIndex(name); c >= 0 {
			for r, v := range out.Data[c] {
				if n, ok := toNumber(v); ok {
					out.Data[c][r] = n
				} else {
					out.Data[c][r] = nil
				}
			}
		}
	}

	for name, factor := range tr.Scale {
		if c := out.ColumnIndex(name); c >= 0 {
			for r, v := range out.Data[c] {
				if isNumericValue(v) {
					n, _ := toNumber(v)
					if scaled := n * factor; isFinite(scaled) {
						out.Data[c][r] = scaled
					} else {
						out.Data[c][r] = nil
					}
				} else {
					out.Data[c][r] = nil
				}
			}
		}
	}

	if len(tr.RenameAfterScale) > 0 {
		renameColumns(out, tr.RenameAfterScale)
	}
	if tr.DropNA != nil {
		out = dropMissing(out, *tr.DropNA)
	}
	if tr.SortBy != nil {
		sortRows(out, *tr.SortBy)
	}

	out.resetIndex()
	return out
}

func sliceByPosition(t *Table, rg *Range) *Table {
	n := t.NumRows()
	start, end := 0, n
	if rg.Start != nil {
		start = clamp(*rg.Start, 0, n)
	}
	if rg.End != nil {
		end = clamp(*rg.End+1, 0, n)
	}
	rows := []int{}
	for r := start; r < end; r++ {
		rows = append(rows, r)
	}
	return t.selectRows(rows)
}

func sliceByLabel(t *Table, rg *Range) *Table {
	rows := []int{}
	for r, label := range t.Index {
		if rg.Start != nil && label < *rg.Start {
			continue
		}
		if rg.End != nil && label > *rg.End {
			continue
		}
		rows = append(rows, r)
	}
	return t.selectRows(rows)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// renameColumns renames by column name first and falls back to the column's position.
func renameColumns(t *Table, mapping map[string]string) {
	for i, name := range t.Columns {
		if to, ok := mapping[name]; ok {
			t.Columns[i] = to
			continue
		}
		if to, ok := mapping[strconv.Itoa(i)]; ok {
			t.Columns[i] = to
		}
	}
}

func useColumns(t *Table, refs []ColumnRef) *Table {
	keep := make([]int, 0, len(refs))
	for _, ref := range refs {
		if ref.ByPosition {
			if ref.Position >= 0 && ref.Position < len(t.Columns) {
				keep = append(keep, ref.Position)
			}
			continue
		}
		if c := t.ColumnIndex(ref.Name); c >= 0 {
			keep = append(keep, c)
		}
	}
	if len(keep) == 0 {
		return t
	}
	return t.selectColumns(keep)
}

func dedupeColumns(t *Table) *Table {
	seen := make(map[string]bool, len(t.Columns))
	keep := make([]int, 0, len(t.Columns))
	for i, name := range t.Columns {
		if seen[name] {
			continue
		}
		seen[name] = true
		keep = append(keep, i)
	}
	if len(keep) == len(t.Columns) {
		return t
	}
	return t.selectColumns(keep)
}

func dropMissing(t *Table, conf DropNA) *Table {
	var cols []int
	switch {
	case conf.Subset != nil:
		for _, name := range conf.Subset {
			if c := t.ColumnIndex(name); c >= 0 {
				cols = append(cols, c)
			}
		}
		if len(cols) == 0 {
			return t
		}
	case conf.Any:
		for c := range t.Columns {
			cols = append(cols, c)
		}
	default:
		return t
	}

	rows := make([]int, 0, t.NumRows())
	for r := 0; r < t.NumRows(); r++ {
		complete := true
		for _, c := range cols {
			if isMissing(t.Data[c][r]) {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, r)
		}
	}
	return t.selectRows(rows)
}

// sortRows is a stable sort on one column with missing values placed last.
func sortRows(t *Table, by SortBy) {
	c := t.ColumnIndex(by.Column)
	if c < 0 {
		return
	}
	key := t.Data[c]
	order := make([]int, t.NumRows())
	for i := range order {
		order[i] = i
	}
	asc := by.ascending()
	sort.SliceStable(order, func(i, j int) bool {
		a, b := key[order[i]], key[order[j]]
		if isMissing(a) || isMissing(b) {
			return !isMissing(a) && isMissing(b)
		}
		if asc {
			return compareValues(a, b) < 0
		}
		return compareValues(a, b) > 0
	})
	sorted := t.selectRows(order)
	t.Data, t.Index = sorted.Data, sorted.Index
}

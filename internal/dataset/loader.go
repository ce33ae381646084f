package dataset

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"datastory/internal/chart"
	"datastory/pkg/logger"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrWorkbookNotFound = errors.New("workbook not found")
	ErrSheetNotFound    = errors.New("sheet not found")
)

const cacheSize = 16

// Workbook maps sheet names to their parsed tables.
type Workbook map[string]*chart.Table

// Loader finds workbooks in a data directory and memoizes parsed workbooks by
// resolved path. Entries are never invalidated: an edited file on disk is only
// picked up after a restart.
type Loader struct {
	Dir   string
	cache *lru.Cache[string, Workbook]
}

func NewLoader(dir string) (*Loader, error) {
	cache, err := lru.New[string, Workbook](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Loader{Dir: dir, cache: cache}, nil
}

// Workbooks lists the .xlsx files of the data directory, skipping Office lock files.
func (l *Loader) Workbooks() ([]string, error) {
	info, err := os.Stat(l.Dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("expected directory missing: %s", l.Dir)
	}
	matches, err := filepath.Glob(filepath.Join(l.Dir, "*.xlsx"))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if strings.HasPrefix(filepath.Base(m), "~$") {
			continue
		}
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

// WorkbookPath resolves a workbook file name. Names written on macOS arrive in NFD,
// so the comparison also accepts NFC/NFD-equivalent names.
func (l *Loader) WorkbookPath(name string) (string, error) {
	candidate := filepath.Join(l.Dir, name)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	workbooks, err := l.Workbooks()
	if err != nil {
		return "", err
	}
	nfc, nfd := norm.NFC.String(name), norm.NFD.String(name)
	for _, path := range workbooks {
		base := filepath.Base(path)
		if norm.NFC.String(base) == nfc || norm.NFD.String(base) == nfd {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: `%s`", ErrWorkbookNotFound, name)
}

// LoadWorkbook parses every sheet of the workbook at path, using the cache when possible.
func (l *Loader) LoadWorkbook(path string) (Workbook, error) {
	if wb, ok := l.cache.Get(path); ok {
		return wb, nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	wb := make(Workbook)
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %s of %s: %w", sheet, path, err)
		}
		wb[sheet] = tableFromRows(rows)
	}
	l.cache.Add(path, wb)
	logger.Sugar.Infof("Loaded workbook %s (%d sheets)", path, len(wb))
	return wb, nil
}

// TableFromMeta returns the sheet a chart refers to, either from data uploaded
// inline with the chart or from a named workbook in the data directory.
func (l *Loader) TableFromMeta(meta chart.Meta) (*chart.Table, error) {
	if meta.Sheet == "" {
		return nil, fmt.Errorf("%w: chart metadata has no sheet", ErrSheetNotFound)
	}

	if meta.UploadedData != nil {
		sheet, ok := meta.UploadedData.Sheets[meta.Sheet]
		if !ok {
			return nil, fmt.Errorf("%w: `%s` in uploaded data", ErrSheetNotFound, meta.Sheet)
		}
		return chart.NewTable(sheet.Columns, sheet.Data), nil
	}

	if meta.Workbook == "" {
		return nil, fmt.Errorf("%w: chart metadata has no workbook", ErrWorkbookNotFound)
	}
	path, err := l.WorkbookPath(meta.Workbook)
	if err != nil {
		return nil, err
	}
	wb, err := l.LoadWorkbook(path)
	if err != nil {
		return nil, err
	}
	tbl, ok := wb[meta.Sheet]
	if !ok {
		return nil, fmt.Errorf("%w: `%s` in %s", ErrSheetNotFound, meta.Sheet, meta.Workbook)
	}
	return tbl, nil
}

// tableFromRows treats the first row as the header. Numeric cells become float64;
// blank, NaN and infinite cells are missing.
func tableFromRows(rows [][]string) *chart.Table {
	if len(rows) == 0 {
		return chart.NewTable(nil, nil)
	}
	header := rows[0]
	width := len(header)
	for _, r := range rows[1:] {
		if len(r) > width {
			width = len(r)
		}
	}
	columns := make([]string, width)
	for i := range columns {
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			columns[i] = strings.TrimSpace(header[i])
		} else {
			columns[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}

	data := make([][]any, 0, len(rows)-1)
	for _, r := range rows[1:] {
		row := make([]any, width)
		for i, cell := range r {
			row[i] = cellValue(cell)
		}
		data = append(data, row)
	}
	return chart.NewTable(columns, data)
}

func cellValue(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

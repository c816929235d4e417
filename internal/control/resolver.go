package control

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	dErrors "kvcheck/pkg/domain-errors"
	"kvcheck/pkg/platform/sentinel"
)

// Spreadsheet layout: the first row is a title, the second the header, and
// data starts on the third. Columns are fixed.
const (
	headerRow = 1
	firstData = 2

	colProcess     = 0
	colDescription = 1
	colWorkerType  = 2
	colWorkerData  = 3
)

// Resolver loads the control table from a document store.
type Resolver struct {
	store    DocumentStore
	fileName string
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a Resolver reading fileName from store.
func NewResolver(store DocumentStore, fileName string, opts ...Option) *Resolver {
	r := &Resolver{store: store, fileName: fileName, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load fetches and parses the control spreadsheet. A missing or unreadable
// spreadsheet is a configuration error.
func (r *Resolver) Load(ctx context.Context) (Table, error) {
	data, err := r.store.Fetch(ctx, r.fileName)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Table{}, dErrors.Wrap(err, dErrors.CodeConfiguration, "control spreadsheet not found")
	}
	if err != nil {
		return Table{}, dErrors.Wrap(err, dErrors.CodeConfiguration, "fetch control spreadsheet")
	}

	entries, err := Parse(data)
	if err != nil {
		return Table{}, dErrors.Wrap(err, dErrors.CodeConfiguration, "parse control spreadsheet")
	}
	table := NewTable(entries...)
	r.logger.DebugContext(ctx, "control table loaded", "file", r.fileName, "processes", table.Processes())
	return table, nil
}

// Parse reads the entries from the first sheet of an xlsx workbook. Rows
// without a process name are skipped; blank cells become empty strings,
// except worker data which becomes nil.
func Parse(data []byte) ([]Entry, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) <= headerRow {
		return nil, fmt.Errorf("sheet %s has no header row", sheets[0])
	}

	var entries []Entry
	for _, row := range rows[min(firstData, len(rows)):] {
		process := cell(row, colProcess)
		if process == "" {
			continue
		}
		e := Entry{
			Process:     process,
			Description: cell(row, colDescription),
			WorkerType:  cell(row, colWorkerType),
		}
		if wd := cell(row, colWorkerData); wd != "" {
			e.WorkerData = &wd
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// cell returns the trimmed value at col; GetRows drops trailing empty cells.
func cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

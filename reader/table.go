package reader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"slotflow/logger"
)

// ErrEmptyTable is returned when an input has no header row.
var ErrEmptyTable = errors.New("table has no header row")

// ErrUnsupportedFormat is returned for file extensions we cannot read.
var ErrUnsupportedFormat = errors.New("unsupported table format")

// Table is a raw tabular input: a header row and string cells. Every row has
// exactly len(Header) cells.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// LoadTable reads a spreadsheet or CSV file from disk.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table [%s]: %w", path, err)
	}
	defer f.Close()

	return ReadTable(f, filepath.Base(path))
}

// ReadTable reads a table from r. The format is chosen from the extension of
// name: .xlsx/.xlsm are read from the first sheet, .csv as comma separated.
func ReadTable(r io.Reader, name string) (*Table, error) {
	log := logger.GetLogger().WithComponent("reader").WithFields(logger.Fields{"table": name})

	var (
		records [][]string
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx", ".xlsm":
		records, err = readXLSX(r)
	case ".csv", ".txt":
		records, err = readCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read table [%s]: %w", name, err)
	}

	table, err := newTable(name, records)
	if err != nil {
		return nil, err
	}

	log.WithFields(logger.Fields{
		"columns": len(table.Header),
		"rows":    len(table.Rows),
	}).Debug("table loaded")
	return table, nil
}

func newTable(name string, records [][]string) (*Table, error) {
	// leading blank lines are not a header
	for len(records) > 0 && isBlank(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyTable)
	}

	header := records[0]
	t := &Table{
		Name:   name,
		Header: append([]string(nil), header...),
		Rows:   make([][]string, 0, len(records)-1),
	}
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := make([]string, len(header))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Package dataset reads and writes the flat retail-sales extract.
package dataset

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/retail-pipeline/internal/model"
)

// StructuralError reports an input whose shape the pipeline cannot work with.
// It is always fatal for the run.
type StructuralError struct {
	Msg string
}

func (e *StructuralError) Error() string {
	return "dataset: structural error: " + e.Msg
}

// IsStructural reports whether err (or any error in its chain) is a StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// Table is the raw extract materialized in memory.
type Table struct {
	Header  []string
	Records []model.Record

	// Unparseable counts cells per column that held text but could not be
	// parsed; those cells are loaded as missing.
	Unparseable map[string]int
}

// naValues are cell contents treated as missing, matching the NA markers
// the extract's producers emit.
var naValues = map[string]bool{
	"":        true,
	"NA":      true,
	"N/A":     true,
	"NaN":     true,
	"nan":     true,
	"-NaN":    true,
	"NULL":    true,
	"null":    true,
	"None":    true,
	"#N/A":    true,
	"<NA>":    true,
	"NaT":     true,
	"n/a":     true,
	"-nan":    true,
	"#NA":     true,
	"1.#QNAN": true,
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
}

// ReadFile reads the extract at path. Files ending in .xlsx are read from
// their first sheet; everything else is parsed as CSV.
func ReadFile(path string) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err := ReadXLSX(path, XLSXOptions{})
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: read %s", path)
		}
		return ReadRows(rows)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}
	return t, nil
}

// ReadCSV parses the raw extract from CSV.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "dataset: parse csv")
	}
	return ReadRows(records)
}

// ReadRows builds a Table from a header row followed by data rows. Every
// column in model.Columns must be present in the header and at least one
// non-blank data row must follow.
func ReadRows(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, &StructuralError{Msg: "input is empty"}
	}

	header := records[0]
	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))] = i
	}
	for _, col := range model.Columns {
		if _, ok := colIdx[col]; !ok {
			return nil, &StructuralError{Msg: "missing required column " + strconv.Quote(col)}
		}
	}
	if len(records) < 2 {
		return nil, &StructuralError{Msg: "input has no data rows"}
	}

	t := &Table{
		Header:      header,
		Records:     make([]model.Record, 0, len(records)-1),
		Unparseable: make(map[string]int),
	}

	for i, row := range records[1:] {
		if isBlankRow(row) {
			continue
		}
		t.Records = append(t.Records, t.parseRow(row, colIdx, i+1))
	}

	if len(t.Records) == 0 {
		return nil, &StructuralError{Msg: "input has no data rows"}
	}
	return t, nil
}

func (t *Table) parseRow(row []string, colIdx map[string]int, line int) model.Record {
	rec := model.Record{
		TransactionID: getCol(row, colIdx, model.ColTransactionID),
		CustomerID:    getCol(row, colIdx, model.ColCustomerID),
		Category:      getCol(row, colIdx, model.ColCategory),
		Item:          getCol(row, colIdx, model.ColItem),
		PaymentMethod: getCol(row, colIdx, model.ColPaymentMethod),
		Location:      getCol(row, colIdx, model.ColLocation),
		Line:          line,
	}
	rec.PricePerUnit = t.parseFloat(row, colIdx, model.ColPricePerUnit)
	rec.Quantity = t.parseFloat(row, colIdx, model.ColQuantity)
	rec.TotalSpent = t.parseFloat(row, colIdx, model.ColTotalSpent)

	if s := getCol(row, colIdx, model.ColTransactionDate); s != "" {
		if d, ok := ParseDate(s); ok {
			rec.TransactionDate = &d
		} else {
			t.Unparseable[model.ColTransactionDate]++
		}
	}

	if s := getCol(row, colIdx, model.ColDiscountApplied); s != "" {
		if b, ok := ParseBool(s); ok {
			rec.DiscountApplied = &b
		} else {
			t.Unparseable[model.ColDiscountApplied]++
		}
	}
	return rec
}

func (t *Table) parseFloat(row []string, colIdx map[string]int, col string) *float64 {
	s := getCol(row, colIdx, col)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		t.Unparseable[col]++
		return nil
	}
	return &v
}

// ParseDate parses a transaction date in any of the accepted layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// ParseBool maps the textual boolean forms found in the extract.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		return true, true
	case "false", "0", "no", "n":
		return false, true
	default:
		return false, false
	}
}

// getCol returns the trimmed, NFC-normalized cell, or "" for NA markers.
func getCol(row []string, colIdx map[string]int, col string) string {
	idx, ok := colIdx[col]
	if !ok || idx >= len(row) {
		return ""
	}
	v := strings.TrimSpace(row[idx])
	if naValues[v] {
		return ""
	}
	return norm.NFC.String(v)
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

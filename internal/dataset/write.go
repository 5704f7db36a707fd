package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/retail-pipeline/internal/model"
)

// Extra columns appended to the dropped-rows artifact.
const (
	ColDropReason  = "Drop_Reason"
	ColHasPrice    = "Has_Price"
	ColHasItem     = "Has_Item"
	ColHasCategory = "Has_Category"
)

// DateLayout is the layout used for every date this package writes.
const DateLayout = "2006-01-02"

var droppedColumns = append(append([]string{}, model.Columns...),
	ColDropReason, ColHasPrice, ColHasItem, ColHasCategory)

// WriteCleanCSV writes records with the raw extract's column shape.
func WriteCleanCSV(w io.Writer, recs []model.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(model.Columns); err != nil {
		return eris.Wrap(err, "dataset: write header")
	}
	for _, r := range recs {
		if err := cw.Write(recordRow(r)); err != nil {
			return eris.Wrapf(err, "dataset: write row %s", r.TransactionID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "dataset: flush clean csv")
}

// WriteDroppedCSV writes dropped rows with their reason and presence flags.
func WriteDroppedCSV(w io.Writer, dropped []model.DroppedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(droppedColumns); err != nil {
		return eris.Wrap(err, "dataset: write dropped header")
	}
	for _, d := range dropped {
		row := append(recordRow(d.Record),
			d.Reason,
			FormatBool(d.HasPrice),
			FormatBool(d.HasItem),
			FormatBool(d.HasCategory),
		)
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "dataset: write dropped row %d", d.Line)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "dataset: flush dropped csv")
}

// WriteUnresolvedCSV writes records whose foreign keys did not resolve,
// with the unresolved key names joined by "|".
func WriteUnresolvedCSV(w io.Writer, refs []model.UnresolvedReference) error {
	cw := csv.NewWriter(w)
	header := append(append([]string{}, model.Columns...), "Unresolved_Keys")
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "dataset: write unresolved header")
	}
	for _, u := range refs {
		row := append(recordRow(u.Record), strings.Join(u.Missing, "|"))
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "dataset: write unresolved row %s", u.Record.TransactionID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "dataset: flush unresolved csv")
}

// WriteFile creates path (and its parent directory) and hands it to write.
func WriteFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "dataset: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "dataset: create %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "dataset: close %s", path)
}

func recordRow(r model.Record) []string {
	discount := ""
	if r.DiscountApplied != nil {
		discount = FormatBool(*r.DiscountApplied)
	}
	return []string{
		r.TransactionID,
		r.CustomerID,
		r.Category,
		r.Item,
		FormatMoney(r.PricePerUnit),
		FormatQuantity(r.Quantity),
		FormatMoney(r.TotalSpent),
		r.PaymentMethod,
		r.Location,
		FormatDate(r.TransactionDate),
		discount,
	}
}

// FormatMoney renders a monetary amount with at least two decimals, or ""
// when missing. Amounts with finer precision keep every digit so a reread
// sees the same value.
func FormatMoney(v *float64) string {
	if v == nil {
		return ""
	}
	d := decimal.NewFromFloat(*v)
	if d.Exponent() < -2 {
		return d.String()
	}
	return d.StringFixed(2)
}

// FormatQuantity renders a quantity in its shortest form, or "" when missing.
func FormatQuantity(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// FormatDate renders a date as YYYY-MM-DD, or "" for the absent-date marker.
func FormatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(DateLayout)
}

// FormatBool renders booleans the way the source extract spells them.
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

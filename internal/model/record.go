package model

import "time"

// Raw extract column names, in file order.
const (
	ColTransactionID   = "Transaction ID"
	ColCustomerID      = "Customer ID"
	ColCategory        = "Category"
	ColItem            = "Item"
	ColPricePerUnit    = "Price Per Unit"
	ColQuantity        = "Quantity"
	ColTotalSpent      = "Total Spent"
	ColPaymentMethod   = "Payment Method"
	ColLocation        = "Location"
	ColTransactionDate = "Transaction Date"
	ColDiscountApplied = "Discount Applied"
)

// Columns lists every column of the raw extract in canonical order.
var Columns = []string{
	ColTransactionID,
	ColCustomerID,
	ColCategory,
	ColItem,
	ColPricePerUnit,
	ColQuantity,
	ColTotalSpent,
	ColPaymentMethod,
	ColLocation,
	ColTransactionDate,
	ColDiscountApplied,
}

// CriticalColumns must be populated on every cleaned record.
var CriticalColumns = []string{
	ColTransactionID,
	ColCategory,
	ColItem,
	ColPricePerUnit,
	ColQuantity,
	ColTotalSpent,
}

// Record is one observed sales event. Empty strings and nil pointers mean
// the value is missing.
type Record struct {
	TransactionID   string     `json:"transaction_id"`
	CustomerID      string     `json:"customer_id"`
	Category        string     `json:"category,omitempty"`
	Item            string     `json:"item,omitempty"`
	PricePerUnit    *float64   `json:"price_per_unit,omitempty"`
	Quantity        *float64   `json:"quantity,omitempty"`
	TotalSpent      *float64   `json:"total_spent,omitempty"`
	PaymentMethod   string     `json:"payment_method,omitempty"`
	Location        string     `json:"location,omitempty"`
	TransactionDate *time.Time `json:"transaction_date,omitempty"` // nil when absent or unparseable
	DiscountApplied *bool      `json:"discount_applied,omitempty"`

	// Line is the 1-based data row in the source file.
	Line int `json:"line"`
}

// Clone returns a deep copy so stages never share mutable pointers.
func (r Record) Clone() Record {
	c := r
	c.PricePerUnit = cloneFloat(r.PricePerUnit)
	c.Quantity = cloneFloat(r.Quantity)
	c.TotalSpent = cloneFloat(r.TotalSpent)
	if r.TransactionDate != nil {
		t := *r.TransactionDate
		c.TransactionDate = &t
	}
	if r.DiscountApplied != nil {
		b := *r.DiscountApplied
		c.DiscountApplied = &b
	}
	return c
}

// IsMissing reports whether the named column holds no value.
func (r Record) IsMissing(col string) bool {
	switch col {
	case ColTransactionID:
		return r.TransactionID == ""
	case ColCustomerID:
		return r.CustomerID == ""
	case ColCategory:
		return r.Category == ""
	case ColItem:
		return r.Item == ""
	case ColPricePerUnit:
		return r.PricePerUnit == nil
	case ColQuantity:
		return r.Quantity == nil
	case ColTotalSpent:
		return r.TotalSpent == nil
	case ColPaymentMethod:
		return r.PaymentMethod == ""
	case ColLocation:
		return r.Location == ""
	case ColTransactionDate:
		return r.TransactionDate == nil
	case ColDiscountApplied:
		return r.DiscountApplied == nil
	default:
		return true
	}
}

// Discount returns the discount flag, treating a missing value as false.
func (r Record) Discount() bool {
	return r.DiscountApplied != nil && *r.DiscountApplied
}

// CloneRecords deep-copies a slice of records.
func CloneRecords(recs []Record) []Record {
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	return out
}

// MissingCounts tallies missing values per column in canonical column order.
func MissingCounts(recs []Record) map[string]int {
	counts := make(map[string]int, len(Columns))
	for _, col := range Columns {
		counts[col] = 0
	}
	for _, r := range recs {
		for _, col := range Columns {
			if r.IsMissing(col) {
				counts[col]++
			}
		}
	}
	return counts
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Drop reasons recorded on DroppedRecord.Reason.
const (
	ReasonMissingIdentifiers = "Missing critical identifiers (Transaction ID or Customer ID)"
	ReasonQuantityAndTotal   = "Missing both Quantity and Total Spent - mathematically unrecoverable"
	ReasonItemNotInferred    = "Item could not be inferred from Category + Price"
	ReasonMissingCategory    = "Missing Category - no recovery rule applies"
	ReasonPriceNotRecovered  = "Price Per Unit could not be recovered"
	ReasonQuantityNotFound   = "Quantity could not be recovered"
	ReasonTotalNotRecovered  = "Total Spent could not be recovered"
)

// Drop stages recorded on DroppedRecord.Stage.
const (
	StageClassify     = "classify"
	StageCompleteness = "completeness"
)

// DroppedRecord is a raw record excluded from the cleaned output.
type DroppedRecord struct {
	Record
	Reason      string `json:"drop_reason"`
	Stage       string `json:"stage"`
	HasPrice    bool   `json:"has_price"`
	HasItem     bool   `json:"has_item"`
	HasCategory bool   `json:"has_category"`
}

// NewDropped captures r with its presence flags as of now.
func NewDropped(r Record, reason, stage string) DroppedRecord {
	return DroppedRecord{
		Record:      r.Clone(),
		Reason:      reason,
		Stage:       stage,
		HasPrice:    r.PricePerUnit != nil,
		HasItem:     r.Item != "",
		HasCategory: r.Category != "",
	}
}

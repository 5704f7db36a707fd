package model

import "time"

// Normalized table names.
const (
	TableCategories     = "categories"
	TableLocations      = "locations"
	TablePaymentMethods = "payment_methods"
	TableCustomers      = "customers"
	TableItems          = "items"
	TableTransactions   = "transactions"
)

// TableNames lists the normalized tables in foreign-key dependency order.
var TableNames = []string{
	TableCategories,
	TableLocations,
	TablePaymentMethods,
	TableCustomers,
	TableItems,
	TableTransactions,
}

// Category is a row of the categories dimension.
type Category struct {
	ID   int    `json:"CategoryID" yaml:"category_id"`
	Name string `json:"CategoryName" yaml:"category_name"`
}

// Location is a row of the locations dimension.
type Location struct {
	ID   int    `json:"LocationID" yaml:"location_id"`
	Name string `json:"LocationName" yaml:"location_name"`
}

// PaymentMethod is a row of the payment_methods dimension.
type PaymentMethod struct {
	ID   int    `json:"PaymentMethodID" yaml:"payment_method_id"`
	Name string `json:"PaymentMethodName" yaml:"payment_method_name"`
}

// Customer is a row of the customers dimension. The natural identifier is the key.
type Customer struct {
	ID string `json:"CustomerID" yaml:"customer_id"`
}

// Item is a row of the items dimension.
type Item struct {
	ID           int     `json:"ItemID" yaml:"item_id"`
	Name         string  `json:"ItemName" yaml:"item_name"`
	PricePerUnit float64 `json:"PricePerUnit" yaml:"price_per_unit"`
	CategoryID   int     `json:"CategoryID" yaml:"category_id"`
}

// Transaction is a row of the transactions fact table.
type Transaction struct {
	TransactionID   string     `json:"TransactionID"`
	CustomerID      string     `json:"CustomerID"`
	ItemID          int        `json:"ItemID"`
	PaymentMethodID int        `json:"PaymentMethodID"`
	LocationID      int        `json:"LocationID"`
	Quantity        float64    `json:"Quantity"`
	TotalPrice      float64    `json:"TotalPrice"`
	TransactionDate *time.Time `json:"TransactionDate"`
	DiscountApplied bool       `json:"DiscountApplied"`
}

// Foreign key names reported on UnresolvedReference.Missing.
const (
	FKCustomer      = "CustomerID"
	FKItem          = "ItemID"
	FKPaymentMethod = "PaymentMethodID"
	FKLocation      = "LocationID"
	FKCategory      = "CategoryID"
)

// UnresolvedReference is a cleaned record whose foreign keys could not all be
// resolved against the dimension tables.
type UnresolvedReference struct {
	Record  Record   `json:"record"`
	Missing []string `json:"missing"`
}

// Document is a denormalized transaction for document-store loaders.
type Document struct {
	TransactionID     string     `json:"TransactionID"`
	CustomerID        string     `json:"CustomerID"`
	CategoryName      string     `json:"CategoryName"`
	ItemName          string     `json:"ItemName"`
	PricePerUnit      float64    `json:"PricePerUnit"`
	Quantity          float64    `json:"Quantity"`
	TotalPrice        float64    `json:"TotalPrice"`
	PaymentMethodName string     `json:"PaymentMethodName"`
	LocationName      string     `json:"LocationName"`
	TransactionDate   *time.Time `json:"TransactionDate"`
	DiscountApplied   bool       `json:"DiscountApplied"`
}

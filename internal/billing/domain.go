package billing

import (
	"time"

	"github.com/maxvolts/maxvolts/internal/lineitems"
)

// QuoteStatus enumerates the quote lifecycle.
type QuoteStatus string

const (
	QuoteStatusNew      QuoteStatus = "new"
	QuoteStatusQuoted   QuoteStatus = "quoted"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusRejected QuoteStatus = "rejected"
	QuoteStatusInvoiced QuoteStatus = "invoiced"
)

// Valid reports whether s is a known quote status.
func (s QuoteStatus) Valid() bool {
	switch s {
	case QuoteStatusNew, QuoteStatusQuoted, QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusInvoiced:
		return true
	}
	return false
}

// InvoiceStatus enumerates the invoice lifecycle.
type InvoiceStatus string

const (
	InvoiceStatusNew      InvoiceStatus = "new"
	InvoiceStatusInvoiced InvoiceStatus = "invoiced"
	InvoiceStatusQuery    InvoiceStatus = "query"
	InvoiceStatusPaid     InvoiceStatus = "paid"
)

// Valid reports whether s is a known invoice status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusNew, InvoiceStatusInvoiced, InvoiceStatusQuery, InvoiceStatusPaid:
		return true
	}
	return false
}

// Line is one persisted line item row. Name, Value, Markup and VATRate
// are the snapshot copied from the catalog product when the line was
// added; TotalValue and TotalVAT always equal the pricing engine's output
// for the line's current quantity and rates.
type Line struct {
	ID          int64   `json:"id" db:"id"`
	ProductID   int64   `json:"product_id" db:"product_id"`
	Name        string  `json:"name" db:"name"`
	Value       float64 `json:"value" db:"value"`
	Markup      float64 `json:"markup" db:"markup"`
	VATRate     float64 `json:"vat_rate" db:"vat_rate"`
	Quantity    float64 `json:"quantity" db:"quantity"`
	Description *string `json:"description,omitempty" db:"description"`
	TotalValue  float64 `json:"total_value" db:"total_value"`
	TotalVAT    float64 `json:"total_vat" db:"total_vat"`
	LineOrder   int     `json:"line_order" db:"line_order"`
}

// StoredTotal implements pricing.Priced.
func (l Line) StoredTotal() float64 { return l.TotalValue }

// StoredVAT implements pricing.Priced.
func (l Line) StoredVAT() float64 { return l.TotalVAT }

// Item converts a persisted row back into a working line item.
func (l Line) Item() lineitems.Item {
	var desc string
	if l.Description != nil {
		desc = *l.Description
	}
	return lineitems.Item{
		ProductID:   l.ProductID,
		Name:        l.Name,
		UnitValue:   l.Value,
		Markup:      l.Markup,
		VATRate:     l.VATRate,
		Quantity:    l.Quantity,
		Description: desc,
		TotalValue:  l.TotalValue,
		TotalVAT:    l.TotalVAT,
	}
}

// Quote is a priced proposal for a client. TotalValue and TotalVAT are
// denormalized sums over the owned lines.
type Quote struct {
	ID             int64       `json:"id" db:"id"`
	ClientID       int64       `json:"client_id" db:"client_id"`
	Status         QuoteStatus `json:"status" db:"status"`
	Notes          *string     `json:"notes,omitempty" db:"notes"`
	TotalValue     float64     `json:"total_value" db:"total_value"`
	TotalVAT       float64     `json:"total_vat" db:"total_vat"`
	CreatedBy      int64       `json:"created_by" db:"created_by"`
	CreatedByEmail string      `json:"created_by_email" db:"created_by_email"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
	Lines          []Line      `json:"lines,omitempty" db:"-"`
}

// Invoice mirrors Quote with its own status set and an optional
// back-reference to the quote it was converted from.
type Invoice struct {
	ID             int64         `json:"id" db:"id"`
	ClientID       int64         `json:"client_id" db:"client_id"`
	QuoteID        *int64        `json:"quote_id,omitempty" db:"quote_id"`
	Status         InvoiceStatus `json:"status" db:"status"`
	Notes          *string       `json:"notes,omitempty" db:"notes"`
	TotalValue     float64       `json:"total_value" db:"total_value"`
	TotalVAT       float64       `json:"total_vat" db:"total_vat"`
	CreatedBy      int64         `json:"created_by" db:"created_by"`
	CreatedByEmail string        `json:"created_by_email" db:"created_by_email"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
	Lines          []Line        `json:"lines,omitempty" db:"-"`
}

// QuoteSummary is a list row with the client name joined in.
type QuoteSummary struct {
	Quote
	ClientName string `json:"client_name" db:"client_name"`
}

// InvoiceSummary is a list row with the client name joined in.
type InvoiceSummary struct {
	Invoice
	ClientName string `json:"client_name" db:"client_name"`
}

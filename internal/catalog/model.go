package catalog

import "time"

// Product is a catalog item. It acts as a template: its pricing fields
// are copied into a line item at selection time, so later edits here
// never touch existing quotes or invoices.
type Product struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Value       float64   `json:"value" db:"value"`
	Description *string   `json:"description,omitempty" db:"description"`
	Markup      float64   `json:"markup" db:"markup"`
	VATRate     float64   `json:"vat_rate" db:"vat_rate"`
	IsVisible   bool      `json:"is_visible" db:"is_visible"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

package billing

import (
	"github.com/maxvolts/maxvolts/internal/catalog"
	"github.com/maxvolts/maxvolts/internal/clients"
)

// LineRequest selects a catalog product for a document line. Value and
// Name are always snapshotted from the product; Markup, VATRate and
// Description may be overridden per line.
type LineRequest struct {
	ProductID   int64    `json:"product_id" validate:"required,gt=0"`
	Quantity    float64  `json:"quantity" validate:"required,gt=0"`
	Markup      *float64 `json:"markup,omitempty" validate:"omitempty,gte=0"`
	VATRate     *float64 `json:"vat_rate,omitempty" validate:"omitempty,gte=0"`
	Description *string  `json:"description,omitempty"`
}

// CreateQuoteRequest creates a quote with its full set of lines.
type CreateQuoteRequest struct {
	ClientID int64         `json:"client_id" validate:"required,gt=0"`
	Status   string        `json:"status" validate:"omitempty,oneof=new quoted accepted rejected"`
	Notes    *string       `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Lines    []LineRequest `json:"lines" validate:"required,min=1,dive"`
}

// UpdateQuoteRequest replaces the header fields and the entire line set.
type UpdateQuoteRequest struct {
	ClientID int64         `json:"client_id" validate:"required,gt=0"`
	Status   string        `json:"status" validate:"required,oneof=new quoted accepted rejected invoiced"`
	Notes    *string       `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Lines    []LineRequest `json:"lines" validate:"required,min=1,dive"`
}

// CreateInvoiceRequest creates a standalone invoice, outside the
// quote conversion path.
type CreateInvoiceRequest struct {
	ClientID int64         `json:"client_id" validate:"required,gt=0"`
	Status   string        `json:"status" validate:"omitempty,oneof=new invoiced query paid"`
	Notes    *string       `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Lines    []LineRequest `json:"lines" validate:"required,min=1,dive"`
}

// UpdateInvoiceRequest replaces the header fields and the entire line set.
type UpdateInvoiceRequest struct {
	ClientID int64         `json:"client_id" validate:"required,gt=0"`
	Status   string        `json:"status" validate:"required,oneof=new invoiced query paid"`
	Notes    *string       `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Lines    []LineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ListRequest filters and pages a document listing.
type ListRequest struct {
	Status   string `json:"status" validate:"omitempty,max=16"`
	ClientID int64  `json:"client_id" validate:"omitempty,gt=0"`
	Limit    int    `json:"limit" validate:"omitempty,gte=1,lte=200"`
	Offset   int    `json:"offset" validate:"omitempty,gte=0"`
}

// LinePreview is the priced echo of a single line selection, used by the
// editor before anything is persisted.
type LinePreview struct {
	ProductID  int64   `json:"product_id"`
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Markup     float64 `json:"markup"`
	VATRate    float64 `json:"vat_rate"`
	Quantity   float64 `json:"quantity"`
	TotalValue float64 `json:"total_value"`
	TotalVAT   float64 `json:"total_vat"`
}

// WizardOptions carries the reference data the document wizard needs up
// front: the selectable clients and the visible catalog products.
type WizardOptions struct {
	Clients  []clients.Client  `json:"clients"`
	Products []catalog.Product `json:"products"`
}

package catalog

// CreateProductRequest carries the catalog form fields.
type CreateProductRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Value       float64 `json:"value" validate:"gte=0"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Markup      float64 `json:"markup" validate:"gte=0"`
	VATRate     float64 `json:"vat_rate" validate:"gte=0,lte=100"`
}

// UpdateProductRequest carries partial product edits. Nil means keep.
type UpdateProductRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Value       *float64 `json:"value,omitempty" validate:"omitempty,gte=0"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	Markup      *float64 `json:"markup,omitempty" validate:"omitempty,gte=0"`
	VATRate     *float64 `json:"vat_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	IsVisible   *bool    `json:"is_visible,omitempty"`
}

// ListProductsRequest narrows the product list.
type ListProductsRequest struct {
	IsVisible *bool `json:"is_visible,omitempty"`
	Limit     int   `json:"limit" validate:"gte=0,lte=1000"`
	Offset    int   `json:"offset" validate:"gte=0"`
}

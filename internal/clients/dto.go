package clients

// CreateClientRequest carries the client form fields.
type CreateClientRequest struct {
	Name      string  `json:"name" validate:"required,max=200"`
	Company   *string `json:"company,omitempty" validate:"omitempty,max=200"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Telephone *string `json:"telephone,omitempty" validate:"omitempty,max=50"`
	Address1  *string `json:"address1,omitempty" validate:"omitempty,max=200"`
	Address2  *string `json:"address2,omitempty" validate:"omitempty,max=200"`
	City      *string `json:"city,omitempty" validate:"omitempty,max=100"`
	County    *string `json:"county,omitempty" validate:"omitempty,max=100"`
	Postcode  *string `json:"postcode,omitempty" validate:"omitempty,max=20"`
}

// UpdateClientRequest carries partial client edits. Nil means keep.
type UpdateClientRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Company   *string `json:"company,omitempty" validate:"omitempty,max=200"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Telephone *string `json:"telephone,omitempty" validate:"omitempty,max=50"`
	Address1  *string `json:"address1,omitempty" validate:"omitempty,max=200"`
	Address2  *string `json:"address2,omitempty" validate:"omitempty,max=200"`
	City      *string `json:"city,omitempty" validate:"omitempty,max=100"`
	County    *string `json:"county,omitempty" validate:"omitempty,max=100"`
	Postcode  *string `json:"postcode,omitempty" validate:"omitempty,max=20"`
	IsVisible *bool   `json:"is_visible,omitempty"`
}

// ListClientsRequest narrows the client list.
type ListClientsRequest struct {
	IsVisible *bool `json:"is_visible,omitempty"`
	Limit     int   `json:"limit" validate:"gte=0,lte=1000"`
	Offset    int   `json:"offset" validate:"gte=0"`
}

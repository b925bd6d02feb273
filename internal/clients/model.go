package clients

import "time"

// Client is a customer of the business, referenced by quotes and invoices.
type Client struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Company   *string   `json:"company,omitempty" db:"company"`
	Email     *string   `json:"email,omitempty" db:"email"`
	Telephone *string   `json:"telephone,omitempty" db:"telephone"`
	Address1  *string   `json:"address1,omitempty" db:"address1"`
	Address2  *string   `json:"address2,omitempty" db:"address2"`
	City      *string   `json:"city,omitempty" db:"city"`
	County    *string   `json:"county,omitempty" db:"county"`
	Postcode  *string   `json:"postcode,omitempty" db:"postcode"`
	IsVisible bool      `json:"is_visible" db:"is_visible"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

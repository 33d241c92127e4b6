package domain

import "time"

// Customer is a billing contact managed through the CRUD endpoints.
type Customer struct {
	ID           int64
	BusinessName string
	FirstName    string
	LastName     string
	TaxID        string
	Email        string
	Phone        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

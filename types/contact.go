package types

import "time"

// Contact is a single address-book record owned by a user.
type Contact struct {
	// ID is the unique identifier of the contact.
	ID int `json:"id" db:"id"`

	// FirstName is the contact's first name.
	FirstName string `json:"first_name" db:"first_name"`

	// LastName is the contact's last name.
	LastName string `json:"last_name" db:"last_name"`

	// Email is the contact's email address, unique across all contacts.
	Email string `json:"email" db:"email"`

	// PhoneNumber is the contact's phone number.
	PhoneNumber string `json:"phone_number" db:"phone_number"`

	// BirthDate is the contact's date of birth, if known.
	BirthDate *time.Time `json:"birth_date" db:"birth_date"`

	// AdditionalData holds free-text notes about the contact.
	AdditionalData string `json:"additional_data" db:"additional_data"`

	// CreatedAt is the timestamp when the contact was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the contact.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// UserID is the identifier of the owning user. Every scoped query
	// filters by it; deleting the owner cascades to the contact.
	UserID int `json:"-" db:"user_id"`
}

// ContactCriteria holds optional equality filters for contact listing.
// Empty fields are omitted from the query.
type ContactCriteria struct {
	FirstName string
	LastName  string
	Email     string
}

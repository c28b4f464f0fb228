package types

import "time"

// Roles a user account can hold. The role gates access to the
// unscoped contact listing endpoint.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleUser      = "user"
)

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the display name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's unique email address. It doubles as the
	// login identifier and the JWT subject.
	Email string `json:"email" db:"email"`

	// Password stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	Password string `json:"-" db:"password"`

	// Avatar is the URL of the user's avatar image, if one was uploaded.
	Avatar string `json:"avatar" db:"avatar"`

	// RefreshToken is the last refresh token issued to the user.
	// A presented refresh token must match it; the stored value is
	// cleared when rotation detects a mismatch.
	RefreshToken string `json:"-" db:"refresh_token"`

	// Role indicates the user's authorization level
	// (one of "admin", "moderator", "user").
	Role string `json:"role" db:"role"`

	// Confirmed reports whether the user completed email verification.
	Confirmed bool `json:"confirmed" db:"confirmed"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PublicUser is the subset of User embedded in API responses that
// reference an account, such as a contact's owner.
type PublicUser struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	Role      string    `json:"role"`
	Confirmed bool      `json:"confirmed"`
	CreatedAt time.Time `json:"created_at"`
}

// Public projects the user onto its API-safe representation.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Avatar:    u.Avatar,
		Role:      u.Role,
		Confirmed: u.Confirmed,
		CreatedAt: u.CreatedAt,
	}
}

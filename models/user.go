package models

import "time"

const (
	// AdminUsername is the bootstrap login created on first run.
	AdminUsername = "admin"
	// DefaultTheme is applied to new accounts until they pick one.
	DefaultTheme = "light"
)

// Account models a reeltrack login with its profile data attached.
// PasswordHash is a bcrypt hash and never leaves the server.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"displayName"`
	Email        string    `json:"email,omitempty"`
	Theme        string    `json:"theme,omitempty"`
	IsAdmin      bool      `json:"isAdmin,omitempty"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public returns a copy with the password hash stripped, safe to serialise
// to API clients.
func (a Account) Public() Account {
	a.PasswordHash = ""
	return a
}

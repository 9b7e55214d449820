package domain

import "time"

// Account statuses. Anything outside this set is treated as unauthorized at
// login rather than as an internal error.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
	StatusBanned    = "banned"
)

type User struct {
	ID            string
	Email         string
	PasswordHash  string // cryptox "salt.hash" encoding
	Role          string
	Status        string
	EmailVerified bool
	TermsAccepted bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Sanitized returns a copy of the user safe to hand to callers: the password
// hash never leaves the credential path.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

package entity

import (
	"time"
)

// User is the aggregate root for the credential domain.
// Password holds a bcrypt hash, never the plain text.
//
// FailedAccessCount and LockoutEnd back the brute-force lockout policy;
// they are mutated only through the repository's atomic operations.
type User struct {
	ID                string
	Email             string
	Phone             string
	Password          string
	FirstName         string
	LastName          string
	EmailConfirmed    bool
	PhoneConfirmed    bool
	TwoFactorEnabled  bool
	FailedAccessCount int
	LockoutEnd        *time.Time
	Roles             []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	LastLoginAt       *time.Time
}

// FullName joins first and last name for display and email greetings.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

package entity

import "time"

// Role represents an authorization role.
// Many-to-many with User via user_roles; role names end up as JWT role claims.
type Role struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

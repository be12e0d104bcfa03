package model

import "time"

// User mirrors a row of the users table.  The booking core only needs the
// identity; credentials are used by the auth endpoints.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
}

// internal/domain/auth/entity.go
package auth

import "time"

type Role string

const (
	RoleClient Role = "client"
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleVendor, RoleAdmin:
		return true
	}
	return false
}

// User is an account of any role. Vendors are users with RoleVendor.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

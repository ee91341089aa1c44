// internal/domain/auth/dto.go
package auth

import "time"

// RegisterRequest for client and vendor registration
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=80"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest for username/password login
type LoginRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse successful login response
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        UserInfo  `json:"user"`
}

// UserInfo minimal user information
type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

func (u *User) Info() UserInfo {
	return UserInfo{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

package core

import (
	"context"
	"time"
)

// Role separates regular requesters from admins, who approve and reject.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a registered requester or approver.
type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAdmin reports whether the user may approve or reject requests.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserService provides user lookup operations.
type UserService interface {
	// GetByEmail finds a user by email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID returns a user by primary key.
	GetByID(ctx context.Context, userID int) (*User, error)

	// List returns all users ordered by name.
	List(ctx context.Context) ([]User, error)
}

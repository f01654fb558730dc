package domain

import (
	"fmt"
	"net/mail"
	"time"
)

// User owns library items, chat turns and API keys.
type User struct {
	ID        int64
	Email     string
	Name      string
	CreatedAt time.Time
}

// NewUser creates a new User instance
func NewUser(id int64, email, name string, createdAt time.Time) *User {
	return &User{
		ID:        id,
		Email:     email,
		Name:      name,
		CreatedAt: createdAt,
	}
}

// ValidateUser validates a User before it is persisted.
func ValidateUser(u *User) error {
	if u == nil {
		return fmt.Errorf("user cannot be nil")
	}

	if u.Email == "" {
		return fmt.Errorf("user Email is required")
	}

	if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("user Email is invalid: %w", err)
	}

	return nil
}

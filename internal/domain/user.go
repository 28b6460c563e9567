package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULID represents a Universally Unique Lexicographically Sortable Identifier
// @Description A string representation of ULID
// @type string
// @format ulid
type ULID = ulid.ULID

// ParseULID parses a user id
func ParseULID(id string) (ulid.ULID, error) {
	parsed, err := ulid.Parse(id)
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("invalid ULID: %w", err)
	}
	return parsed, nil
}

// MetadataMFAFlag is the user metadata field that mirrors an active MFA factor
const MetadataMFAFlag = "mfa"

// User is the slice of the user entity this service reads. Registration and
// the rest of the account lifecycle are owned elsewhere.
type User struct {
	ID        ulid.ULID `json:"id"`
	Username  string    `json:"username"`
	MFA       bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUser creates a new user instance
func NewUser(username string) *User {
	return &User{
		ID:        ulid.Make(),
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
}

// Metadata renders the public metadata of the user. The MFA flag is present
// only while the factor is active.
func (u *User) Metadata() map[string]interface{} {
	meta := map[string]interface{}{
		"id":       u.ID.String(),
		"username": u.Username,
	}
	if u.MFA {
		meta[MetadataMFAFlag] = true
	}
	return meta
}

// UserRepository resolves users by username
type UserRepository interface {
	// Create stores a new user
	Create(ctx context.Context, user *User) error
	// FindByUsername returns the user or ErrUserNotFound
	FindByUsername(ctx context.Context, username string) (*User, error)
	// Exists reports whether the username resolves to a user
	Exists(ctx context.Context, username string) (bool, error)
	// Delete removes the user
	Delete(ctx context.Context, username string) error
}

// UserService exposes user metadata to consumers of the MFA flag
type UserService interface {
	GetMetadata(ctx context.Context, username string) (map[string]interface{}, error)
}

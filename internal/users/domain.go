package users

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a user account.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
	// StatusDeleted is the terminal soft-delete state. Rows keep their data
	// but are excluded from search results.
	StatusDeleted Status = "deleted"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended, StatusDeleted:
		return true
	}
	return false
}

// User represents a managed user account. PasswordHash and PasswordSalt
// never leave the service layer; outward projections use Profile.
type User struct {
	ID                  int64
	Username            string
	Email               string
	FirstName           string
	LastName            string
	RoleID              int64
	Status              Status
	FailedLoginAttempts int
	LastLoginAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time

	PasswordHash string
	PasswordSalt string

	NotificationPrefs map[string]any
}

var (
	// ErrDuplicate indicates the username or email already exists.
	ErrDuplicate = errors.New("users: username or email already exists")
	// ErrHasDependents blocks a hard delete while dependent records reference the user.
	ErrHasDependents = errors.New("users: user has dependent records")
	// ErrWrongPassword indicates the supplied current password did not verify.
	ErrWrongPassword = errors.New("users: current password is incorrect")
	// ErrSelfDelete indicates a principal attempted to delete its own account.
	ErrSelfDelete = errors.New("users: cannot delete own account")
	// ErrAccountLocked indicates too many consecutive failed logins.
	ErrAccountLocked = errors.New("users: account locked after repeated login failures")
	// ErrPasswordPolicy indicates the new password fails the strength rules.
	ErrPasswordPolicy = errors.New("users: password must be at least 8 characters with an uppercase letter and a digit")
	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = errors.New("users: invalid status")
)

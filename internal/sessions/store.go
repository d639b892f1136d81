// Package sessions defines the per-user session store collaborator.
//
// No backing implementation exists yet; NoopStore keeps the API surface
// honest (listing returns nothing, termination terminates nothing) until a
// real store is wired in.
package sessions

import (
	"context"
	"time"
)

// Session describes one active login session of a user.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store lists and terminates a user's sessions.
type Store interface {
	List(ctx context.Context, userID int64) ([]Session, error)
	// Terminate ends all sessions of the user except excludeToken and
	// returns how many were ended.
	Terminate(ctx context.Context, userID int64, excludeToken string) (int, error)
}

// NoopStore is the placeholder implementation.
type NoopStore struct{}

// List always returns no sessions.
func (NoopStore) List(ctx context.Context, userID int64) ([]Session, error) {
	return nil, nil
}

// Terminate always reports zero terminated sessions.
func (NoopStore) Terminate(ctx context.Context, userID int64, excludeToken string) (int, error) {
	return 0, nil
}

var _ Store = NoopStore{}

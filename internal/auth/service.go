package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/meridian-ops/meridian/internal/audit"
	"github.com/meridian-ops/meridian/internal/shared"
	"github.com/meridian-ops/meridian/internal/users"
)

// MaxFailedLogins is the lockout threshold. The counter is cleared by a
// successful login or a password change.
const MaxFailedLogins = 5

// Recorder appends audit entries.
type Recorder interface {
	Record(ctx context.Context, rec audit.Record) error
}

// Service wraps authentication business rules.
type Service struct {
	repo   users.RepositoryPort
	tokens *shared.TokenManager
	audit  Recorder
	folder cases.Caser
}

// NewService constructs a new Service.
func NewService(repo users.RepositoryPort, tokens *shared.TokenManager, recorder Recorder) *Service {
	return &Service{repo: repo, tokens: tokens, audit: recorder, folder: cases.Fold()}
}

// Login validates username/password credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (string, *users.User, error) {
	username = s.folder.String(strings.TrimSpace(username))
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", nil, shared.ErrInvalidCredentials
		}
		return "", nil, err
	}
	if u.Status != users.StatusActive {
		return "", nil, shared.ErrInvalidCredentials
	}
	if u.FailedLoginAttempts >= MaxFailedLogins {
		if err := s.recordFailure(ctx, u.ID, "locked"); err != nil {
			return "", nil, err
		}
		return "", nil, users.ErrAccountLocked
	}
	if !users.VerifyPassword(password, u.PasswordHash, u.PasswordSalt) {
		if _, err := s.repo.IncrementFailedLoginAttempts(ctx, u.ID); err != nil {
			return "", nil, err
		}
		if err := s.recordFailure(ctx, u.ID, "wrong-password"); err != nil {
			return "", nil, err
		}
		return "", nil, shared.ErrInvalidCredentials
	}

	if u.FailedLoginAttempts > 0 {
		if err := s.repo.ResetFailedLoginAttempts(ctx, u.ID); err != nil {
			return "", nil, err
		}
	}
	now := time.Now().UTC()
	if err := s.repo.RecordLogin(ctx, u.ID, now); err != nil {
		return "", nil, err
	}
	token, err := s.tokens.Issue(ctx, u.ID)
	if err != nil {
		return "", nil, err
	}
	if err := s.audit.Record(ctx, audit.Record{ActorID: u.ID, Action: audit.ActionUserLoggedIn, TargetID: u.ID}); err != nil {
		return "", nil, err
	}
	u.LastLoginAt = &now
	u.FailedLoginAttempts = 0
	return token, u, nil
}

// Logout revokes the bearer token.
func (s *Service) Logout(ctx context.Context, principalID int64, token string) error {
	if err := s.tokens.Revoke(ctx, token); err != nil {
		return err
	}
	return s.audit.Record(ctx, audit.Record{ActorID: principalID, Action: audit.ActionUserLoggedOut, TargetID: principalID})
}

func (s *Service) recordFailure(ctx context.Context, userID int64, reason string) error {
	return s.audit.Record(ctx, audit.Record{
		ActorID:  userID,
		Action:   audit.ActionUserLoginFailed,
		TargetID: userID,
		Details:  map[string]any{"reason": reason},
	})
}

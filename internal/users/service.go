package users

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/meridian-ops/meridian/internal/audit"
	"github.com/meridian-ops/meridian/internal/authz"
	"github.com/meridian-ops/meridian/internal/sessions"
	"github.com/meridian-ops/meridian/internal/shared"
)

// AuditTrail is the audit collaborator: append-only writes plus per-target reads.
type AuditTrail interface {
	Record(ctx context.Context, rec audit.Record) error
	ForTarget(ctx context.Context, targetID int64, limit, offset int) ([]audit.Entry, shared.Page, error)
}

// PermissionSource resolves the effective permission names of a user.
type PermissionSource interface {
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

// Service implements the user-management operations. Every operation runs
// the policy gate first, then the storage call, then the audit write; the
// audit write for an outcome is always issued before the call returns.
type Service struct {
	repo     RepositoryPort
	gate     *authz.Gate
	audit    AuditTrail
	perms    PermissionSource
	sessions sessions.Store
	folder   cases.Caser
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, gate *authz.Gate, trail AuditTrail, perms PermissionSource, store sessions.Store) *Service {
	return &Service{
		repo:     repo,
		gate:     gate,
		audit:    trail,
		perms:    perms,
		sessions: store,
		folder:   cases.Fold(),
	}
}

// Canonical returns the stored form of a username or email: trimmed and
// Unicode case-folded, so lookups and uniqueness are case-insensitive.
func (s *Service) Canonical(value string) string {
	return s.folder.String(strings.TrimSpace(value))
}

// List returns all users.
func (s *Service) List(ctx context.Context, principalID int64) ([]User, error) {
	if err := s.authorize(ctx, principalID, 0, authz.OpViewList, authz.Request{}); err != nil {
		return nil, err
	}
	userList, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.record(ctx, principalID, audit.ActionUsersListed, 0, map[string]any{"count": len(userList)}); err != nil {
		return nil, err
	}
	return userList, nil
}

// Get fetches one user.
func (s *Service) Get(ctx context.Context, principalID, targetID int64) (*User, error) {
	if err := s.authorize(ctx, principalID, targetID, authz.OpView, authz.Request{}); err != nil {
		return nil, err
	}
	u, err := s.repo.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.record(ctx, principalID, audit.ActionUserLookedUp, targetID, nil); err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new user account.
func (s *Service) Create(ctx context.Context, principalID int64, in CreateInput) (*User, error) {
	if err := s.authorize(ctx, principalID, 0, authz.OpCreate, authz.Request{}); err != nil {
		return nil, err
	}
	if err := ValidatePasswordPolicy(in.Password); err != nil {
		return nil, err
	}
	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	u := User{
		Username:          s.Canonical(in.Username),
		Email:             s.Canonical(in.Email),
		FirstName:         strings.TrimSpace(in.FirstName),
		LastName:          strings.TrimSpace(in.LastName),
		RoleID:            in.RoleID,
		Status:            StatusActive,
		PasswordSalt:      salt,
		PasswordHash:      HashPassword(in.Password, salt),
		NotificationPrefs: map[string]any{},
	}
	created, err := s.repo.CreateUser(ctx, u)
	if err != nil {
		return nil, err
	}
	details := map[string]any{"username": created.Username}
	if err := s.record(ctx, principalID, audit.ActionUserCreated, created.ID, details); err != nil {
		return nil, err
	}
	return created, nil
}

// Update applies a partial profile update.
func (s *Service) Update(ctx context.Context, principalID, targetID int64, in UpdateInput) (*User, error) {
	fields := in.Fields()
	if err := s.authorize(ctx, principalID, targetID, authz.OpUpdate, authz.Request{Fields: fields}); err != nil {
		return nil, err
	}
	u, err := s.repo.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if in.Username != nil {
		u.Username = s.Canonical(*in.Username)
	}
	if in.Email != nil {
		u.Email = s.Canonical(*in.Email)
	}
	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.RoleID != nil {
		u.RoleID = *in.RoleID
	}
	if in.Status != nil {
		status := Status(*in.Status)
		if !status.Valid() {
			return nil, ErrInvalidStatus
		}
		u.Status = status
	}
	updated, err := s.repo.UpdateUser(ctx, *u)
	if err != nil {
		return nil, err
	}
	if err := s.record(ctx, principalID, audit.ActionUserUpdated, targetID, map[string]any{"fields": fields}); err != nil {
		return nil, err
	}
	return updated, nil
}

// ChangePassword runs the three-path password flow: admin override, self
// change with current-password verification, or denial.
func (s *Service) ChangePassword(ctx context.Context, principalID, targetID int64, in PasswordInput) error {
	if err := s.authorize(ctx, principalID, targetID, authz.OpUpdatePassword, authz.Request{AdminOverride: in.AdminOverride}); err != nil {
		return err
	}
	u, err := s.repo.GetUser(ctx, targetID)
	if err != nil {
		return err
	}
	if !in.AdminOverride {
		if !VerifyPassword(in.CurrentPassword, u.PasswordHash, u.PasswordSalt) {
			if err := s.record(ctx, principalID, audit.ActionPasswordChangeWrongCurrentPassword, targetID, nil); err != nil {
				return err
			}
			return ErrWrongPassword
		}
	}
	if err := ValidatePasswordPolicy(in.NewPassword); err != nil {
		return err
	}
	salt, err := GenerateSalt()
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, targetID, HashPassword(in.NewPassword, salt), salt); err != nil {
		return err
	}
	// Changing the password always clears lockout state.
	if err := s.repo.ResetFailedLoginAttempts(ctx, targetID); err != nil {
		return err
	}
	details := map[string]any{"admin_override": in.AdminOverride}
	return s.record(ctx, principalID, audit.ActionUserPasswordChanged, targetID, details)
}

// Permissions returns the effective permission names of the target user.
func (s *Service) Permissions(ctx context.Context, principalID, targetID int64) ([]string, error) {
	if err := s.authorize(ctx, principalID, targetID, authz.OpViewPermissions, authz.Request{}); err != nil {
		return nil, err
	}
	var grants []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.repo.GetUser(gctx, targetID)
		return err
	})
	g.Go(func() error {
		p, err := s.perms.EffectivePermissions(gctx, targetID)
		grants = p
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := s.record(ctx, principalID, audit.ActionUserPermissionsLookedUp, targetID, nil); err != nil {
		return nil, err
	}
	return grants, nil
}

// Delete removes a user: soft (status flip, default) or hard (row removal,
// refused while dependent records exist).
func (s *Service) Delete(ctx context.Context, principalID, targetID int64, hard bool) error {
	if err := s.authorize(ctx, principalID, targetID, authz.OpDelete, authz.Request{}); err != nil {
		return err
	}
	u, err := s.repo.GetUser(ctx, targetID)
	if err != nil {
		return err
	}
	details := map[string]any{"username": u.Username}
	if hard {
		if err := s.repo.HardDeleteUser(ctx, targetID); err != nil {
			return err
		}
		return s.record(ctx, principalID, audit.ActionUserHardDeleted, targetID, details)
	}
	if err := s.repo.SetStatus(ctx, targetID, StatusDeleted); err != nil {
		return err
	}
	return s.record(ctx, principalID, audit.ActionUserSoftDeleted, targetID, details)
}

// UpdatePreferences replaces the notification preference mapping.
func (s *Service) UpdatePreferences(ctx context.Context, principalID, targetID int64, prefs map[string]any) error {
	if err := s.authorize(ctx, principalID, targetID, authz.OpUpdatePreferences, authz.Request{}); err != nil {
		return err
	}
	if _, err := s.repo.GetUser(ctx, targetID); err != nil {
		return err
	}
	if err := s.repo.UpdateNotificationPrefs(ctx, targetID, prefs); err != nil {
		return err
	}
	return s.record(ctx, principalID, audit.ActionNotificationPreferencesUpdated, targetID, nil)
}

// Search returns users matching the criteria, excluding soft-deleted rows.
func (s *Service) Search(ctx context.Context, principalID int64, c SearchCriteria) ([]User, shared.Page, error) {
	if err := s.authorize(ctx, principalID, 0, authz.OpSearch, authz.Request{}); err != nil {
		return nil, shared.Page{}, err
	}
	if c.Status != "" && (!c.Status.Valid() || c.Status == StatusDeleted) {
		return nil, shared.Page{}, ErrInvalidStatus
	}
	if c.Limit <= 0 {
		c.Limit = shared.DefaultPageLimit
	}
	if c.Offset < 0 {
		c.Offset = 0
	}
	rows, err := s.repo.SearchUsers(ctx, c)
	if err != nil {
		return nil, shared.Page{}, err
	}
	if err := s.record(ctx, principalID, audit.ActionUserSearchPerformed, 0, map[string]any{"count": len(rows)}); err != nil {
		return nil, shared.Page{}, err
	}
	return rows, shared.NewPage(c.Limit, c.Offset, len(rows)), nil
}

// AuditLog returns the audit entries concerning the target user.
func (s *Service) AuditLog(ctx context.Context, principalID, targetID int64, limit, offset int) ([]audit.Entry, shared.Page, error) {
	if err := s.authorize(ctx, principalID, targetID, authz.OpViewAuditLog, authz.Request{}); err != nil {
		return nil, shared.Page{}, err
	}
	if _, err := s.repo.GetUser(ctx, targetID); err != nil {
		return nil, shared.Page{}, err
	}
	entries, page, err := s.audit.ForTarget(ctx, targetID, limit, offset)
	if err != nil {
		return nil, shared.Page{}, err
	}
	if err := s.record(ctx, principalID, audit.ActionAuditLogAccessed, targetID, nil); err != nil {
		return nil, shared.Page{}, err
	}
	return entries, page, nil
}

// Sessions lists the target user's active sessions. Empty until a session
// store collaborator is wired in.
func (s *Service) Sessions(ctx context.Context, principalID, targetID int64) ([]sessions.Session, error) {
	if err := s.authorize(ctx, principalID, targetID, authz.OpViewSessions, authz.Request{}); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetUser(ctx, targetID); err != nil {
		return nil, err
	}
	list, err := s.sessions.List(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.record(ctx, principalID, audit.ActionUserSessionsLookedUp, targetID, map[string]any{"count": len(list)}); err != nil {
		return nil, err
	}
	return list, nil
}

// TerminateSessions ends the target user's sessions and reports how many
// were terminated.
func (s *Service) TerminateSessions(ctx context.Context, principalID, targetID int64) (int, error) {
	if err := s.authorize(ctx, principalID, targetID, authz.OpTerminateSessions, authz.Request{}); err != nil {
		return 0, err
	}
	if _, err := s.repo.GetUser(ctx, targetID); err != nil {
		return 0, err
	}
	terminated, err := s.sessions.Terminate(ctx, targetID, "")
	if err != nil {
		return 0, err
	}
	if err := s.record(ctx, principalID, audit.ActionUserSessionsTerminated, targetID, map[string]any{"count": terminated}); err != nil {
		return 0, err
	}
	return terminated, nil
}

// authorize runs the policy gate and audits a denial before surfacing it.
func (s *Service) authorize(ctx context.Context, principalID, targetID int64, op authz.Operation, req authz.Request) error {
	dec, err := s.gate.Authorize(ctx, principalID, targetID, op, req)
	if err != nil {
		return err
	}
	if dec.Allowed {
		return nil
	}
	details := map[string]any{"operation": string(op), "reason": dec.Reason}
	if err := s.record(ctx, principalID, dec.DenyAction, targetID, details); err != nil {
		return err
	}
	if dec.Reason == authz.ReasonSelfDeleteForbidden {
		return ErrSelfDelete
	}
	return shared.ErrForbidden
}

func (s *Service) record(ctx context.Context, actorID int64, action string, targetID int64, details map[string]any) error {
	return s.audit.Record(ctx, audit.Record{
		ActorID:  actorID,
		Action:   action,
		TargetID: targetID,
		Details:  details,
	})
}

package audit

import (
	"context"
	"errors"

	"github.com/meridian-ops/meridian/internal/shared"
)

// MaxPageLimit caps per-target audit log reads.
const MaxPageLimit = 200

// Service coordinates audit writes and per-target reads.
type Service struct {
	repo RepositoryPort
}

// NewService constructs an audit service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Record persists one audit entry. The client address is taken from the
// request context when present and merged into the stored details.
func (s *Service) Record(ctx context.Context, rec Record) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if rec.Action == "" {
		return errors.New("audit: action required")
	}
	details := make(map[string]any, len(rec.Details)+2)
	for k, v := range rec.Details {
		details[k] = v
	}
	if rec.TargetID != 0 {
		details["target_id"] = rec.TargetID
	}
	if ip := shared.ClientIPFromContext(ctx); ip != "" {
		details["ip"] = ip
	}
	return s.repo.Append(ctx, rec.ActorID, rec.Action, rec.TargetID, details)
}

// ForTarget returns audit entries concerning one user, newest first.
func (s *Service) ForTarget(ctx context.Context, targetID int64, limit, offset int) ([]Entry, shared.Page, error) {
	if limit <= 0 {
		limit = shared.DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	entries, err := s.repo.ListForTarget(ctx, targetID, limit, offset)
	if err != nil {
		return nil, shared.Page{}, err
	}
	return entries, shared.NewPage(limit, offset, len(entries)), nil
}

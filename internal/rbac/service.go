// Package rbac resolves effective permissions for principals. Grants are
// read through a short-lived Redis cache so that repeated policy checks in
// one request burst do not each hit PostgreSQL.
package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how stale a cached grant set may be.
const DefaultCacheTTL = 30 * time.Second

// Service answers permission queries.
type Service struct {
	repo     RepositoryPort
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewService constructs a Service. The cache client may be nil, in which
// case every lookup goes to storage.
func NewService(repo RepositoryPort, cache *redis.Client, cacheTTL time.Duration, logger *slog.Logger) *Service {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Service{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// EffectivePermissions returns the permission names granted to the user.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	if perms, ok := s.fromCache(ctx, userID); ok {
		return perms, nil
	}
	perms, err := s.repo.UserEffectivePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, userID, perms)
	return perms, nil
}

// HasAny reports whether the user holds at least one of the permissions.
func (s *Service) HasAny(ctx context.Context, userID int64, perms ...string) (bool, error) {
	required := normalizePermissions(perms)
	if len(required) == 0 {
		return true, nil
	}
	granted, err := s.EffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true, nil
		}
	}
	return false, nil
}

// Invalidate drops the cached grant set for a user, for callers that change
// role assignments.
func (s *Service) Invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cacheKey(userID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		s.warn("rbac invalidate cache", err)
	}
}

func (s *Service) fromCache(ctx context.Context, userID int64) ([]string, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cacheKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.warn("rbac read cache", err)
		}
		return nil, false
	}
	var perms []string
	if err := json.Unmarshal(raw, &perms); err != nil {
		return nil, false
	}
	return perms, true
}

func (s *Service) toCache(ctx context.Context, userID int64, perms []string) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(perms)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(userID), data, s.cacheTTL).Err(); err != nil {
		s.warn("rbac write cache", err)
	}
}

func (s *Service) cacheKey(userID int64) string {
	return fmt.Sprintf("perms:%d", userID)
}

func (s *Service) warn(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, slog.Any("error", err))
	}
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

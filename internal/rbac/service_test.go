package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ops/meridian/internal/shared"
)

type stubGrantRepo struct {
	perms map[int64][]string
	calls int
}

func (s *stubGrantRepo) UserEffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	s.calls++
	return s.perms[userID], nil
}

func TestHasAnyMatchesAnyPermission(t *testing.T) {
	repo := &stubGrantRepo{perms: map[int64][]string{1: {shared.PermUsersView}}}
	svc := NewService(repo, nil, 0, nil)

	ok, err := svc.HasAny(context.Background(), 1, shared.PermUsersView, shared.PermAdminUsers)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasAny(context.Background(), 1, shared.PermAdminUsers)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasAnyNormalizesCase(t *testing.T) {
	repo := &stubGrantRepo{perms: map[int64][]string{1: {"Users.View"}}}
	svc := NewService(repo, nil, 0, nil)

	ok, err := svc.HasAny(context.Background(), 1, " USERS.VIEW ")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEffectivePermissionsCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := &stubGrantRepo{perms: map[int64][]string{1: {shared.PermAdminUsers}}}
	svc := NewService(repo, client, time.Minute, nil)
	ctx := context.Background()

	first, err := svc.EffectivePermissions(ctx, 1)
	require.NoError(t, err)
	second, err := svc.EffectivePermissions(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.calls, "second read should come from cache")

	svc.Invalidate(ctx, 1)
	_, err = svc.EffectivePermissions(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestCacheExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := &stubGrantRepo{perms: map[int64][]string{1: {shared.PermUsersView}}}
	svc := NewService(repo, client, time.Second, nil)
	ctx := context.Background()

	_, err := svc.EffectivePermissions(ctx, 1)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	_, err = svc.EffectivePermissions(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

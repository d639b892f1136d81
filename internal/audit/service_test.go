package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ops/meridian/internal/shared"
)

type stubRepo struct {
	appended []appendCall
	entries  []Entry

	lastLimit  int
	lastOffset int
}

type appendCall struct {
	actorID  int64
	action   string
	targetID int64
	details  map[string]any
}

func (s *stubRepo) Append(ctx context.Context, actorID int64, action string, targetID int64, details map[string]any) error {
	s.appended = append(s.appended, appendCall{actorID: actorID, action: action, targetID: targetID, details: details})
	return nil
}

func (s *stubRepo) ListForTarget(ctx context.Context, targetID int64, limit, offset int) ([]Entry, error) {
	s.lastLimit = limit
	s.lastOffset = offset
	return s.entries, nil
}

func (s *stubRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func TestRecordMergesTargetAndClientIP(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	ctx := shared.ContextWithClientIP(context.Background(), "203.0.113.7")
	err := svc.Record(ctx, Record{
		ActorID:  1,
		Action:   ActionUserLookedUp,
		TargetID: 2,
		Details:  map[string]any{"via": "api"},
	})
	require.NoError(t, err)
	require.Len(t, repo.appended, 1)

	call := repo.appended[0]
	assert.Equal(t, int64(1), call.actorID)
	assert.Equal(t, ActionUserLookedUp, call.action)
	assert.Equal(t, int64(2), call.targetID)
	assert.Equal(t, int64(2), call.details["target_id"])
	assert.Equal(t, "203.0.113.7", call.details["ip"])
	assert.Equal(t, "api", call.details["via"])
}

func TestRecordRequiresAction(t *testing.T) {
	svc := NewService(&stubRepo{})
	err := svc.Record(context.Background(), Record{ActorID: 1})
	assert.Error(t, err)
}

func TestForTargetAppliesPagingDefaults(t *testing.T) {
	repo := &stubRepo{entries: []Entry{{ID: 1}, {ID: 2}}}
	svc := NewService(repo)

	entries, page, err := svc.ForTarget(context.Background(), 5, 0, -3)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, shared.DefaultPageLimit, repo.lastLimit)
	assert.Equal(t, 0, repo.lastOffset)
	assert.Equal(t, 2, page.Total)
}

func TestForTargetCapsLimit(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	_, _, err := svc.ForTarget(context.Background(), 5, MaxPageLimit*10, 0)
	require.NoError(t, err)
	assert.Equal(t, MaxPageLimit, repo.lastLimit)
}

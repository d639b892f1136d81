package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ops/meridian/internal/observability"
)

type stubPruner struct {
	cutoff  time.Time
	removed int64
	err     error
	calls   int
}

func (p *stubPruner) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	p.calls++
	p.cutoff = cutoff
	return p.removed, p.err
}

func TestAuditRetentionPrunesBeforeCutoff(t *testing.T) {
	pruner := &stubPruner{removed: 7}
	h := NewAuditRetentionHandler(pruner, nil, observability.NewMetrics())

	task, err := NewAuditRetentionTask(90 * 24 * time.Hour)
	require.NoError(t, err)

	require.NoError(t, h.ProcessTask(context.Background(), task))
	assert.Equal(t, 1, pruner.calls)

	want := time.Now().UTC().Add(-90 * 24 * time.Hour)
	assert.WithinDuration(t, want, pruner.cutoff, time.Minute)
}

func TestAuditRetentionRejectsBadPayload(t *testing.T) {
	pruner := &stubPruner{}
	h := NewAuditRetentionHandler(pruner, nil, observability.NewMetrics())

	err := h.ProcessTask(context.Background(), asynq.NewTask(TaskAuditRetention, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, pruner.calls)
}

func TestAuditRetentionRejectsNonPositiveWindow(t *testing.T) {
	pruner := &stubPruner{}
	h := NewAuditRetentionHandler(pruner, nil, observability.NewMetrics())

	task, err := NewAuditRetentionTask(0)
	require.NoError(t, err)

	assert.ErrorIs(t, h.ProcessTask(context.Background(), task), asynq.SkipRetry)
	assert.Zero(t, pruner.calls)
}

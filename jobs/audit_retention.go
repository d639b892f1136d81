package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-ops/meridian/internal/observability"
)

// AuditPruner removes audit entries recorded before a cutoff.
type AuditPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditRetentionHandler processes TaskAuditRetention tasks.
type AuditRetentionHandler struct {
	pruner  AuditPruner
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAuditRetentionHandler constructs the retention handler.
func NewAuditRetentionHandler(pruner AuditPruner, logger *slog.Logger, metrics *observability.Metrics) *AuditRetentionHandler {
	return &AuditRetentionHandler{pruner: pruner, logger: logger, metrics: metrics}
}

// ProcessTask prunes audit entries older than the payload retention window.
func (h *AuditRetentionHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload AuditRetentionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Retention <= 0 {
		return asynq.SkipRetry
	}
	cutoff := time.Now().UTC().Add(-payload.Retention)
	removed, err := h.pruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		h.metrics.JobProcessed(TaskAuditRetention, "error")
		return err
	}
	h.metrics.JobProcessed(TaskAuditRetention, "ok")
	if h.logger != nil {
		h.logger.Info("audit retention run",
			slog.Time("cutoff", cutoff),
			slog.Int64("removed", removed))
	}
	return nil
}

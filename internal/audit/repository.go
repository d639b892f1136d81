package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort defines persistence operations for audit records.
type RepositoryPort interface {
	Append(ctx context.Context, actorID int64, action string, targetID int64, details map[string]any) error
	ListForTarget(ctx context.Context, targetID int64, limit, offset int) ([]Entry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Repository provides PostgreSQL backed persistence for audit_logs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts a new audit record. Rows are never updated or deleted
// outside of the retention job.
func (r *Repository) Append(ctx context.Context, actorID int64, action string, targetID int64, details map[string]any) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return err
	}
	var target any
	if targetID != 0 {
		target = targetID
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_logs (actor_id, action, target_id, details, occurred_at) VALUES ($1, $2, $3, $4, NOW())`,
		actorID, action, target, detailsJSON)
	return err
}

// ListForTarget returns audit records concerning the given user, newest first.
func (r *Repository) ListForTarget(ctx context.Context, targetID int64, limit, offset int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, actor_id, action, details, occurred_at
		 FROM audit_logs
		 WHERE target_id = $1
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		targetID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var detailsJSON []byte
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &detailsJSON, &entry.At); err != nil {
			return nil, err
		}
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &entry.Details); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DeleteOlderThan prunes records past the retention horizon.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ RepositoryPort = (*Repository)(nil)

package rbac

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort resolves permission grants from storage.
type RepositoryPort interface {
	UserEffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

// Repository provides PostgreSQL backed grant resolution.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UserEffectivePermissions returns the permission names granted through the
// user's role.
func (r *Repository) UserEffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT p.name
		 FROM users u
		 JOIN role_permissions rp ON rp.role_id = u.role_id
		 JOIN permissions p ON p.id = rp.permission_id
		 WHERE u.id = $1
		 ORDER BY p.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		perms = append(perms, name)
	}
	return perms, rows.Err()
}

var _ RepositoryPort = (*Repository)(nil)

package repository

import (
	"context"
	"database/sql"

	"poolfi/backend/internal/audit/domain"
)

const (
	insertAuditLogSQL = `INSERT INTO audit_logs (id, pool_id, user_id, action, resource, ip, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	listAuditLogsByPoolSQL = `SELECT id, pool_id, user_id, action, resource, ip, metadata, created_at
FROM audit_logs WHERE pool_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx, insertAuditLogSQL,
		a.ID, nullString(a.PoolID), nullString(a.UserID), a.Action, a.Resource, a.IP, nullString(a.Metadata), a.CreatedAt)
	return err
}

// ListByPool returns audit logs for the pool, newest first, paginated by limit and offset.
func (r *PostgresRepository) ListByPool(ctx context.Context, poolID string, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, listAuditLogsByPoolSQL, poolID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.AuditLog{}
	for rows.Next() {
		var (
			a                    domain.AuditLog
			pool, user, metadata sql.NullString
		)
		if err := rows.Scan(&a.ID, &pool, &user, &a.Action, &a.Resource, &a.IP, &metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.PoolID, a.UserID, a.Metadata = pool.String, user.String, metadata.String
		out = append(out, &a)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

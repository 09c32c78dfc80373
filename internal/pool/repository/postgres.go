package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"poolfi/backend/internal/pool/domain"
)

const (
	listPoolsSQL = `SELECT body, version FROM access_pools ORDER BY position ASC`
	getPoolSQL   = `SELECT body, version FROM access_pools WHERE id = $1`

	insertFirstSQL = `INSERT INTO access_pools (id, kind, position, version, body, created_at, updated_at)
SELECT $1, $2, COALESCE(MIN(position), 0) - 1, 0, $3, $4, $5 FROM access_pools
ON CONFLICT (id) DO NOTHING`
	insertLastSQL = `INSERT INTO access_pools (id, kind, position, version, body, created_at, updated_at)
SELECT $1, $2, COALESCE(MAX(position), 0) + 1, 0, $3, $4, $5 FROM access_pools
ON CONFLICT (id) DO NOTHING`

	updatePoolSQL = `UPDATE access_pools SET body = $1, version = version + 1, updated_at = $2
WHERE id = $3 AND version = $4`
	poolExistsSQL = `SELECT 1 FROM access_pools WHERE id = $1`
)

// PostgresRepository stores pools in the access_pools table. The pool document lives in a jsonb column;
// position orders the list and version guards concurrent updates.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a pool repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListPools returns all pools ordered by position. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListPools(ctx context.Context) ([]*domain.AccessPool, error) {
	rows, err := r.db.QueryContext(ctx, listPoolsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AccessPool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPool returns the pool for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetPool(ctx context.Context, id string) (*domain.AccessPool, error) {
	p, err := scanPool(r.db.QueryRowContext(ctx, getPoolSQL, domain.NormalizeIdentifier(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// CreatePool inserts p before the current first row or after the current last row.
func (r *PostgresRepository) CreatePool(ctx context.Context, p *domain.AccessPool, placement Placement) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.Version = 0
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	q := insertLastSQL
	if placement == PlaceFirst {
		q = insertFirstSQL
	}
	res, err := r.db.ExecContext(ctx, q, p.ID, string(p.Kind), body, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// UpdatePool writes p if the row still has version p.Version.
func (r *PostgresRepository) UpdatePool(ctx context.Context, p *domain.AccessPool) error {
	if err := p.Validate(); err != nil {
		return err
	}
	next := p.Clone()
	next.Version = p.Version + 1
	body, err := json.Marshal(next)
	if err != nil {
		return err
	}
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, updatePoolSQL, body, updatedAt, p.ID, p.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		err := r.db.QueryRowContext(ctx, poolExistsSQL, p.ID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrPoolNotFound
		}
		if err != nil {
			return err
		}
		return domain.ErrVersionConflict
	}
	p.Version = next.Version
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPool(row rowScanner) (*domain.AccessPool, error) {
	var (
		body    []byte
		version int64
	)
	if err := row.Scan(&body, &version); err != nil {
		return nil, err
	}
	var p domain.AccessPool
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("pool repository: decode body: %w", err)
	}
	p.Version = version
	return &p, nil
}

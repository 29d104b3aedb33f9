package location

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of pgxpool.Pool used by PostgresStore.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore reads the branches table.
type PostgresStore struct {
	db Querier
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store backed by pgx.
func NewPostgresStore(db Querier) *PostgresStore {
	if db == nil {
		panic("location: pgx pool required")
	}
	return &PostgresStore{db: db}
}

func (s *PostgresStore) BranchByCode(ctx context.Context, code string) (BranchInfo, error) {
	var b BranchInfo
	err := s.db.QueryRow(ctx, `
		SELECT id::text, code, name, COALESCE(city, '')
		FROM branches
		WHERE code = $1 AND is_active = true`, code).Scan(&b.ID, &b.Code, &b.Name, &b.City)
	if errors.Is(err, pgx.ErrNoRows) {
		return BranchInfo{}, ErrBranchNotFound
	}
	if err != nil {
		return BranchInfo{}, fmt.Errorf("location: query branch: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) ActiveBranches(ctx context.Context) ([]BranchInfo, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, code, name, COALESCE(city, '')
		FROM branches
		WHERE is_active = true
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("location: query branches: %w", err)
	}
	defer rows.Close()

	var out []BranchInfo
	for rows.Next() {
		var b BranchInfo
		if err := rows.Scan(&b.ID, &b.Code, &b.Name, &b.City); err != nil {
			return nil, fmt.Errorf("location: scan branch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

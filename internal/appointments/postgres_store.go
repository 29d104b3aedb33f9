package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool used by PostgresStore.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore reads branches and writes appointments.
type PostgresStore struct {
	db Querier
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store backed by pgx.
func NewPostgresStore(db Querier) *PostgresStore {
	if db == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresStore{db: db}
}

// ActiveBranches lists active branches, main branch first, then by name.
func (s *PostgresStore) ActiveBranches(ctx context.Context) ([]Branch, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, name, COALESCE(address, ''), COALESCE(city, ''),
		       COALESCE(province, ''), COALESCE(phone, '')
		FROM branches
		WHERE is_active = true
		ORDER BY is_main DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("appointments: query branches: %w", err)
	}
	defer rows.Close()

	var branches []Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.Address, &b.City, &b.Province, &b.Phone); err != nil {
			return nil, fmt.Errorf("appointments: scan branch: %w", err)
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

// BookedCounts counts non-cancelled appointments per preferred_time.
func (s *PostgresStore) BookedCounts(ctx context.Context, branchID, date string) (map[string]int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT preferred_time, COUNT(*)
		FROM appointments
		WHERE branch_id = $1::uuid AND preferred_date = $2::date AND status <> 'cancelled'
		GROUP BY preferred_time`, branchID, date)
	if err != nil {
		return nil, fmt.Errorf("appointments: query booked counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			slot  string
			count int
		)
		if err := rows.Scan(&slot, &count); err != nil {
			return nil, fmt.Errorf("appointments: scan booked count: %w", err)
		}
		counts[slot] = count
	}
	return counts, rows.Err()
}

// Insert writes a pending appointment when the slot still has room.
func (s *PostgresStore) Insert(ctx context.Context, appt Appointment, maxPerSlot int) (string, error) {
	const query = `
		INSERT INTO appointments (
			branch_id, branch_name, customer_name, customer_phone, service_type,
			preferred_date, preferred_time, total_price, notes, status
		)
		SELECT $1::uuid, $2, $3, $4, $5, $6::date, $7, $8, $9, 'pending'
		WHERE (
			SELECT COUNT(*) FROM appointments
			WHERE branch_id = $1::uuid AND preferred_date = $6::date
			  AND preferred_time = $7 AND status <> 'cancelled'
		) < $10
		RETURNING id::text`

	var id string
	err := s.db.QueryRow(ctx, query,
		appt.BranchID, appt.BranchName, appt.CustomerName, appt.CustomerPhone,
		strings.Join(appt.ServiceIDs, ", "),
		appt.Date, appt.Time, appt.TotalPrice, appt.Notes, maxPerSlot,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrSlotTaken
	}
	if err != nil {
		return "", fmt.Errorf("appointments: insert appointment: %w", err)
	}
	return id, nil
}

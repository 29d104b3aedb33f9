package appointments

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStoreActiveBranches(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM branches WHERE is_active = true").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "address", "city", "province", "phone"}).
			AddRow("b-1", "Catamarca Centro", "Av. Belgrano 120", "Catamarca", "Catamarca", "3834000000").
			AddRow("b-2", "Salta Centro", "Caseros 50", "Salta", "Salta", ""))

	store := NewPostgresStore(mock)
	branches, err := store.ActiveBranches(context.Background())
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, "Salta", branches[1].Province)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreBookedCounts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT preferred_time, COUNT\\(\\*\\) FROM appointments").
		WithArgs("b-1", "2026-03-03").
		WillReturnRows(pgxmock.NewRows([]string{"preferred_time", "count"}).
			AddRow("09:00", 2).
			AddRow("10:30", 1))

	store := NewPostgresStore(mock)
	counts, err := store.BookedCounts(context.Background(), "b-1", "2026-03-03")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"09:00": 2, "10:30": 1}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreInsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	appt := Appointment{
		BranchID: "b-1", BranchName: "Catamarca Centro", CustomerName: "Juan Pérez",
		CustomerPhone: "5493834000000", ServiceIDs: []string{"alignment", "balancing"},
		Date: "2026-03-03", Time: "10:00", TotalPrice: 60000, Notes: "Reservado via WhatsApp",
	}
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs("b-1", "Catamarca Centro", "Juan Pérez", "5493834000000", "alignment, balancing",
			"2026-03-03", "10:00", 60000, "Reservado via WhatsApp", 2).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("apt-1"))

	store := NewPostgresStore(mock)
	id, err := store.Insert(context.Background(), appt, 2)
	require.NoError(t, err)
	assert.Equal(t, "apt-1", id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreInsertSlotTaken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	store := NewPostgresStore(mock)
	_, err = store.Insert(context.Background(), Appointment{BranchID: "b-1"}, 2)
	assert.ErrorIs(t, err, ErrSlotTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

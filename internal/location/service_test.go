package location

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededService() (*Service, *MemoryStore) {
	store := NewMemoryStore(
		BranchInfo{ID: "br-tuc", Code: CodeTucuman, Name: "Tucumán", City: "San Miguel de Tucumán"},
		BranchInfo{ID: "br-sgo", Code: CodeSantiago, Name: "Santiago del Estero", City: "Santiago del Estero"},
	)
	return NewService(store, nil), store
}

func TestResolve(t *testing.T) {
	svc, _ := seededService()

	res, ok, err := svc.Resolve(context.Background(), "Tucumán")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tucuman", res.City)
	assert.Equal(t, "br-tuc", res.Branch.ID)
}

func TestResolveUnknownOrInactive(t *testing.T) {
	svc, _ := seededService()

	_, ok, err := svc.Resolve(context.Background(), "Mendoza")
	require.NoError(t, err)
	assert.False(t, ok)

	// Salta is a known city but has no active branch in the store.
	_, ok, err = svc.Resolve(context.Background(), "Salta")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveStoreError(t *testing.T) {
	svc, store := seededService()
	store.Err = errors.New("db down")

	_, ok, err := svc.Resolve(context.Background(), "Tucumán")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestBranchNames(t *testing.T) {
	svc, _ := seededService()
	names := svc.BranchNames()
	assert.Equal(t, "Santiago del Estero", names[0])
	assert.Len(t, names, len(DisplayOrder))
}

func TestPostgresStoreBranchByCode(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM branches WHERE code = \\$1").
		WithArgs(CodeTucuman).
		WillReturnRows(pgxmock.NewRows([]string{"id", "code", "name", "city"}).
			AddRow("br-tuc", CodeTucuman, "Tucumán", "San Miguel de Tucumán"))
	mock.ExpectQuery("SELECT (.+) FROM branches WHERE code = \\$1").
		WithArgs(CodeVirgen).
		WillReturnError(pgx.ErrNoRows)

	store := NewPostgresStore(mock)
	b, err := store.BranchByCode(context.Background(), CodeTucuman)
	require.NoError(t, err)
	assert.Equal(t, "br-tuc", b.ID)

	_, err = store.BranchByCode(context.Background(), CodeVirgen)
	assert.ErrorIs(t, err, ErrBranchNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardrounds/rounds-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetPatient_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT doc FROM patients WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetPatient(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPatientByHN(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	doc := []byte(`{"id":"pt-1","hn":"660012345","ward":"MED-3"}`)
	mock.ExpectQuery(`SELECT doc FROM patients WHERE hn = \$1`).
		WithArgs("660012345").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(doc))

	p, err := s.GetPatientByHN(context.Background(), "660012345")
	require.NoError(t, err)
	assert.Equal(t, "pt-1", p.ID)
	assert.Equal(t, "MED-3", p.Ward)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreatePatient(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO patients`).
		WithArgs(pgxmock.AnyArg(), "660012345", "MED-3", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.CreatePatient(context.Background(), &model.Patient{HN: "660012345", Ward: "MED-3"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplacePatient_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE patients SET`).
		WithArgs("660012345", "MED-3", pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.ReplacePatient(context.Background(), &model.Patient{ID: "missing", HN: "660012345", Ward: "MED-3"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetUserByUsername_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, username, display_name, role, password_hash, created_at FROM users`).
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetUserByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendAudit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(pgxmock.AnyArg(), "u-1", "PUT", "patients", "pt-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.AppendAudit(context.Background(), model.AuditEntry{
		UserID:     "u-1",
		Action:     "PUT",
		Resource:   "patients",
		ResourceID: "pt-1",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

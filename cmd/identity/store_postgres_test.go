package identity

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountCols = []string{"id", "name", "email", "password_hash", "status", "deletion_requested_at", "created_at", "updated_at"}

func newMockDirectory(t *testing.T) (*PostgresDirectory, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	d, err := NewPostgresDirectory(mock)
	require.NoError(t, err)
	return d, mock
}

func TestPostgresDirectory_FindByEmail(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d, mock := newMockDirectory(t)

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`FROM "finapp"."accounts" WHERE email_norm = $1`)).
			WithArgs("ada@example.com").
			WillReturnRows(pgxmock.NewRows(accountCols).
				AddRow("0b0c4c3e-6f0e-4d8e-9a57-0d5a4f3c2b1a", "Ada", "Ada@example.com", "hash", "ACTIVE", (*time.Time)(nil), now, now))

		acc, err := d.FindByEmail(ctx, " Ada@Example.com")
		require.NoError(t, err)
		assert.Equal(t, StatusActive, acc.Status)
		assert.Equal(t, "hash", acc.PasswordHash)
		assert.Nil(t, acc.DeletionRequestedAt)
	})

	t.Run("unknown status", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE email_norm = $1`)).
			WithArgs("ada@example.com").
			WillReturnRows(pgxmock.NewRows(accountCols).
				AddRow("0b0c4c3e-6f0e-4d8e-9a57-0d5a4f3c2b1a", "Ada", "Ada@example.com", "hash", "BANNED", (*time.Time)(nil), now, now))

		_, err := d.FindByEmail(ctx, "ada@example.com")
		require.Error(t, err)
		assert.False(t, IsNotFound(err))
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE email_norm = $1`)).
			WithArgs("nobody@example.com").
			WillReturnError(pgx.ErrNoRows)

		_, err := d.FindByEmail(ctx, "nobody@example.com")
		assert.True(t, IsNotFound(err))
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE email_norm = $1`)).
			WithArgs("ada@example.com").
			WillReturnError(errors.New("db down"))

		_, err := d.FindByEmail(ctx, "ada@example.com")
		require.Error(t, err)
		assert.False(t, IsNotFound(err))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDirectory_FindByID_NonUUID(t *testing.T) {
	d, mock := newMockDirectory(t)

	_, err := d.FindByID(context.Background(), "not-a-uuid")
	assert.True(t, IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDirectory_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d, mock := newMockDirectory(t)

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "finapp"."accounts"`)).
			WithArgs(pgxmock.AnyArg(), "Ada", "Ada@example.com", "ada@example.com", "hash", "ACTIVE", now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		acc, err := d.Create(ctx, NewAccount{Name: "Ada", Email: "Ada@example.com", PasswordHash: "hash", Now: now})
		require.NoError(t, err)
		assert.Equal(t, now, acc.CreatedAt)
		assert.NotEmpty(t, acc.ID)
	})

	t.Run("email taken", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "finapp"."accounts"`)).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_accounts_email_norm"})

		_, err := d.Create(ctx, NewAccount{Name: "Ada", Email: "ada@example.com", PasswordHash: "hash", Now: now})
		var ce ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "email", ce.Field)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDirectory_Reactivate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d, mock := newMockDirectory(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "finapp"."accounts"`)).
		WithArgs("ACTIVE", now, "acc-1", "DEACTIVATION_REQUESTED").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, d.Reactivate(ctx, "acc-1", now))

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "finapp"."accounts"`)).
		WithArgs("ACTIVE", now, "acc-2", "DEACTIVATION_REQUESTED").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, d.Reactivate(ctx, "acc-2", now), ErrNotActive)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSchema_RejectsBadIdentifiers(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPostgresDirectory(mock, WithSchema(`bad"schema`))
	assert.Error(t, err)

	d, err := NewPostgresDirectory(mock, WithSchema("tenant_a"))
	require.NoError(t, err)
	assert.Equal(t, `"tenant_a"."accounts"`, d.table())
}

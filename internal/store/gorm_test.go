package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/rampwallet/internal/models"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return NewGormStore(db), mock
}

func TestGormStore_FindUserByEmail(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "kyc_status", "tos_status"}).
			AddRow(id, "a@example.com", "hash", "active", "approved"))

	u, err := s.FindUserByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, models.KYCActive, u.KYCStatus)
	assert.Equal(t, models.TOSApproved, u.TOSStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_FindUserByIDNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.FindUserByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_UpdateUserFieldsMissingRow(t *testing.T) {
	s, mock := newMockStore(t)
	status := models.KYCActive

	mock.ExpectExec(`UPDATE "users" SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateUserFields(context.Background(), uuid.New(), UserFields{KYCStatus: &status})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_UpdateUserFieldsNoopWithoutColumns(t *testing.T) {
	s, mock := newMockStore(t)

	require.NoError(t, s.UpdateUserFields(context.Background(), uuid.New(), UserFields{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ConsumeResetCode(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "users" SET .* WHERE .*reset_code_expires_at > `).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := s.ConsumeResetCode(context.Background(), "a@example.com", "h", time.Now(), "new")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_DeleteUserCascadeCommits(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	for _, table := range []string{"sessions", "activity_logs", "transactions", "wallet_backups"} {
		mock.ExpectExec(`DELETE FROM "` + table + `" WHERE user_id = \$1`).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec(`DELETE FROM "users" WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.DeleteUserCascade(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_DeleteUserCascadeRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "sessions" WHERE user_id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "activity_logs" WHERE user_id = \$1`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.DeleteUserCascade(context.Background(), id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_DeleteSessionIsIdempotent(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM "sessions" WHERE user_id = \$1 AND device_id = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, s.DeleteSession(context.Background(), uuid.New(), "phone"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

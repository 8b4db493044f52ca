package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/rampwallet/internal/models"
)

func seedUser(t *testing.T, s *Memory, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "hash"}
	require.NoError(t, s.InsertUser(context.Background(), u))
	return u
}

func TestMemory_InsertUserRejectsDuplicateEmail(t *testing.T) {
	s := NewMemory()
	seedUser(t, s, "a@example.com")

	err := s.InsertUser(context.Background(), &models.User{Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	u, err := s.FindUserByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.KYCPending, u.KYCStatus)
	assert.Equal(t, models.TOSUnset, u.TOSStatus)
}

func TestMemory_UpsertSessionKeepsOneRowPerDevice(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	userID := uuid.New()

	first := &models.Session{UserID: userID, DeviceID: "phone", TokenHash: "a", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.UpsertSession(ctx, first))
	second := &models.Session{UserID: userID, DeviceID: "phone", TokenHash: "b", ExpiresAt: time.Now().Add(2 * time.Hour)}
	require.NoError(t, s.UpsertSession(ctx, second))

	got, err := s.FindSession(ctx, userID, "phone")
	require.NoError(t, err)
	assert.Equal(t, "b", got.TokenHash)
	assert.Equal(t, first.ID, got.ID)

	require.NoError(t, s.DeleteSession(ctx, userID, "phone"))
	require.NoError(t, s.DeleteSession(ctx, userID, "phone"))
	_, err = s.FindSession(ctx, userID, "phone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ConsumeResetCode(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	u := seedUser(t, s, "r@example.com")
	now := time.Now()

	code := "codehash"
	exp := now.Add(time.Hour)
	require.NoError(t, s.UpdateUserFields(ctx, u.ID, UserFields{ResetCodeHash: &code, ResetCodeExpiresAt: &exp}))

	ok, err := s.ConsumeResetCode(ctx, "r@example.com", "wrong", now, "new")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ConsumeResetCode(ctx, "r@example.com", code, now, "new")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ConsumeResetCode(ctx, "r@example.com", code, now, "newer")
	require.NoError(t, err)
	assert.False(t, ok, "code must be single use")

	got, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.PasswordHash)
	assert.Nil(t, got.ResetCodeHash)
}

func TestMemory_DeleteUserCascade(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	u := seedUser(t, s, "d@example.com")
	other := seedUser(t, s, "keep@example.com")

	require.NoError(t, s.UpsertSession(ctx, &models.Session{UserID: u.ID, DeviceID: "x", ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, s.InsertActivity(ctx, &models.ActivityLog{UserID: u.ID, Action: "login"}))
	require.NoError(t, s.InsertActivity(ctx, &models.ActivityLog{UserID: other.ID, Action: "login"}))
	require.NoError(t, s.InsertTransaction(ctx, &models.Transaction{UserID: u.ID, BridgeTransferID: "tr_1"}))
	require.NoError(t, s.SaveWalletBackup(ctx, &models.WalletBackup{UserID: u.ID, EncryptedMnemonic: "blob"}))

	require.NoError(t, s.DeleteUserCascade(ctx, u.ID))

	_, err := s.FindUserByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindSession(ctx, u.ID, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindWalletBackup(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, s.Activity(u.ID))
	assert.Len(t, s.Activity(other.ID), 1)

	items, total, err := s.ListTransactions(ctx, u.ID, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestMemory_DeleteUserCascadeFailureLeavesEverything(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	u := seedUser(t, s, "f@example.com")
	require.NoError(t, s.UpsertSession(ctx, &models.Session{UserID: u.ID, DeviceID: "x", ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, s.InsertActivity(ctx, &models.ActivityLog{UserID: u.ID, Action: "login"}))

	s.failDeleteAfter = 2
	require.Error(t, s.DeleteUserCascade(ctx, u.ID))

	_, err := s.FindUserByID(ctx, u.ID)
	assert.NoError(t, err)
	_, err = s.FindSession(ctx, u.ID, "x")
	assert.NoError(t, err)
	assert.Len(t, s.Activity(u.ID), 1)
}

func TestMemory_WalletBackupVersioning(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	userID := uuid.New()

	require.NoError(t, s.SaveWalletBackup(ctx, &models.WalletBackup{UserID: userID, EncryptedMnemonic: "v1"}))
	require.NoError(t, s.SaveWalletBackup(ctx, &models.WalletBackup{UserID: userID, EncryptedMnemonic: "v2"}))

	got, err := s.FindWalletBackup(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.EncryptedMnemonic)
	assert.Equal(t, 2, got.Version)
}

func TestMemory_ListTransactionsNegativeOffset(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	userID := uuid.New()
	require.NoError(t, s.InsertTransaction(ctx, &models.Transaction{UserID: userID, BridgeTransferID: "tr_1"}))

	items, total, err := s.ListTransactions(ctx, userID, 10, -50)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, items, 1)
}

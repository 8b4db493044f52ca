// Package store is the credential and account data layer. Callers receive a
// Store value explicitly; there is no package-level connection.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/example/rampwallet/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when inserting a user whose email exists.
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserFields is the set of user columns that may be updated. Nil fields are
// left untouched.
type UserFields struct {
	PasswordHash          *string
	IsVerified            *bool
	KYCStatus             *models.KYCStatus
	TOSStatus             *models.TOSStatus
	ProviderCustomerID    *string
	KYCLinkID             *string
	VerificationCodeHash  *string
	VerificationExpiresAt *time.Time
	ResetCodeHash         *string
	ResetCodeExpiresAt    *time.Time
	ClearVerificationCode bool
}

func (f UserFields) columns() map[string]any {
	cols := map[string]any{}
	if f.PasswordHash != nil {
		cols["password_hash"] = *f.PasswordHash
	}
	if f.IsVerified != nil {
		cols["is_verified"] = *f.IsVerified
	}
	if f.KYCStatus != nil {
		cols["kyc_status"] = *f.KYCStatus
	}
	if f.TOSStatus != nil {
		cols["tos_status"] = *f.TOSStatus
	}
	if f.ProviderCustomerID != nil {
		cols["provider_customer_id"] = *f.ProviderCustomerID
	}
	if f.KYCLinkID != nil {
		cols["kyc_link_id"] = *f.KYCLinkID
	}
	if f.VerificationCodeHash != nil {
		cols["verification_code_hash"] = *f.VerificationCodeHash
	}
	if f.VerificationExpiresAt != nil {
		cols["verification_expires_at"] = *f.VerificationExpiresAt
	}
	if f.ClearVerificationCode {
		cols["verification_code_hash"] = nil
		cols["verification_expires_at"] = nil
	}
	if f.ResetCodeHash != nil {
		cols["reset_code_hash"] = *f.ResetCodeHash
	}
	if f.ResetCodeExpiresAt != nil {
		cols["reset_code_expires_at"] = *f.ResetCodeExpiresAt
	}
	return cols
}

// Store is the persistence contract consumed by the auth core and handlers.
type Store interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByProviderCustomerID(ctx context.Context, customerID string) (*models.User, error)
	InsertUser(ctx context.Context, user *models.User) error
	UpdateUserFields(ctx context.Context, id uuid.UUID, fields UserFields) error
	// ConsumeResetCode sets newHash and clears the reset code in one
	// statement, only if codeHash matches an unexpired code. It reports
	// whether a row was updated.
	ConsumeResetCode(ctx context.Context, email, codeHash string, now time.Time, newHash string) (bool, error)
	DeleteUserCascade(ctx context.Context, id uuid.UUID) error

	UpsertSession(ctx context.Context, session *models.Session) error
	FindSession(ctx context.Context, userID uuid.UUID, deviceID string) (*models.Session, error)
	TouchSession(ctx context.Context, userID uuid.UUID, deviceID string, now time.Time) error
	DeleteSession(ctx context.Context, userID uuid.UUID, deviceID string) error

	InsertActivity(ctx context.Context, entry *models.ActivityLog) error

	SaveWalletBackup(ctx context.Context, backup *models.WalletBackup) error
	FindWalletBackup(ctx context.Context, userID uuid.UUID) (*models.WalletBackup, error)

	InsertTransaction(ctx context.Context, txn *models.Transaction) error
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, int64, error)
	UpdateTransactionState(ctx context.Context, bridgeTransferID, state string) error
}

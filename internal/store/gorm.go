package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/rampwallet/internal/models"
)

// GormStore implements Store on top of a gorm connection pool. Every call
// borrows a connection through WithContext and returns it when the statement
// finishes, on success and error paths alike.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an initialised gorm handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) findUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "email = ?", email)
}

func (s *GormStore) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *GormStore) FindUserByProviderCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	return s.findUser(ctx, "provider_customer_id = ?", customerID)
}

func (s *GormStore) InsertUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (s *GormStore) UpdateUserFields(ctx context.Context, id uuid.UUID, fields UserFields) error {
	cols := fields.columns()
	if len(cols) == 0 {
		return nil
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ConsumeResetCode(ctx context.Context, email, codeHash string, now time.Time, newHash string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? AND reset_code_hash = ? AND reset_code_expires_at > ?", email, codeHash, now).
		Updates(map[string]any{
			"password_hash":         newHash,
			"reset_code_hash":       nil,
			"reset_code_expires_at": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteUserCascade removes the user and every dependent row in a single
// transaction. Any failure rolls the whole unit back.
func (s *GormStore) DeleteUserCascade(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dependents := []any{
			&models.Session{},
			&models.ActivityLog{},
			&models.Transaction{},
			&models.WalletBackup{},
		}
		for _, model := range dependents {
			if err := tx.Where("user_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("delete %T: %w", model, err)
			}
		}

		res := tx.Where("id = ?", id).Delete(&models.User{})
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) UpsertSession(ctx context.Context, session *models.Session) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token_hash", "expires_at", "last_accessed_at", "updated_at"}),
	}).Create(session).Error
}

func (s *GormStore) FindSession(ctx context.Context, userID uuid.UUID, deviceID string) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND device_id = ?", userID, deviceID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (s *GormStore) TouchSession(ctx context.Context, userID uuid.UUID, deviceID string, now time.Time) error {
	return s.db.WithContext(ctx).Model(&models.Session{}).
		Where("user_id = ? AND device_id = ?", userID, deviceID).
		Update("last_accessed_at", now).Error
}

func (s *GormStore) DeleteSession(ctx context.Context, userID uuid.UUID, deviceID string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND device_id = ?", userID, deviceID).
		Delete(&models.Session{}).Error
}

func (s *GormStore) InsertActivity(ctx context.Context, entry *models.ActivityLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// SaveWalletBackup replaces the user's backup and bumps its version.
func (s *GormStore) SaveWalletBackup(ctx context.Context, backup *models.WalletBackup) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"wallet_address":     backup.WalletAddress,
			"encrypted_mnemonic": backup.EncryptedMnemonic,
			"version":            gorm.Expr("wallet_backups.version + 1"),
			"updated_at":         time.Now(),
		}),
	}).Create(backup).Error
}

func (s *GormStore) FindWalletBackup(ctx context.Context, userID uuid.UUID) (*models.WalletBackup, error) {
	var backup models.WalletBackup
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&backup).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &backup, nil
}

func (s *GormStore) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	return s.db.WithContext(ctx).Create(txn).Error
}

func (s *GormStore) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Transaction
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *GormStore) UpdateTransactionState(ctx context.Context, bridgeTransferID, state string) error {
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("bridge_transfer_id = ?", bridgeTransferID).
		Update("state", state)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/rampwallet/internal/models"
)

var errCascadeInjected = errors.New("injected cascade failure")

type sessionKey struct {
	userID   uuid.UUID
	deviceID string
}

// Memory is an in-process Store with the same observable semantics as
// GormStore. It backs unit tests and local runs without postgres.
type Memory struct {
	mu           sync.Mutex
	users        map[uuid.UUID]models.User
	sessions     map[sessionKey]models.Session
	activity     []models.ActivityLog
	backups      map[uuid.UUID]models.WalletBackup
	transactions []models.Transaction

	// failDeleteAfter makes DeleteUserCascade fail after removing the given
	// number of dependent tables. Zero disables it; only tests set it.
	failDeleteAfter int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:    map[uuid.UUID]models.User{},
		sessions: map[sessionKey]models.Session{},
		backups:  map[uuid.UUID]models.WalletBackup{},
	}
}

func stamp(base *models.BaseModel, now time.Time) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

func (m *Memory) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) FindUserByProviderCustomerID(_ context.Context, customerID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.ProviderCustomerID != nil && *u.ProviderCustomerID == customerID {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) InsertUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrDuplicateEmail
		}
	}
	stamp(&user.BaseModel, time.Now())
	if user.KYCStatus == "" {
		user.KYCStatus = models.KYCPending
	}
	if user.TOSStatus == "" {
		user.TOSStatus = models.TOSUnset
	}
	m.users[user.ID] = *user
	return nil
}

func (m *Memory) UpdateUserFields(_ context.Context, id uuid.UUID, f UserFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	if f.PasswordHash != nil {
		u.PasswordHash = *f.PasswordHash
	}
	if f.IsVerified != nil {
		u.IsVerified = *f.IsVerified
	}
	if f.KYCStatus != nil {
		u.KYCStatus = *f.KYCStatus
	}
	if f.TOSStatus != nil {
		u.TOSStatus = *f.TOSStatus
	}
	if f.ProviderCustomerID != nil {
		v := *f.ProviderCustomerID
		u.ProviderCustomerID = &v
	}
	if f.KYCLinkID != nil {
		v := *f.KYCLinkID
		u.KYCLinkID = &v
	}
	if f.VerificationCodeHash != nil {
		v := *f.VerificationCodeHash
		u.VerificationCodeHash = &v
	}
	if f.VerificationExpiresAt != nil {
		v := *f.VerificationExpiresAt
		u.VerificationExpiresAt = &v
	}
	if f.ClearVerificationCode {
		u.VerificationCodeHash = nil
		u.VerificationExpiresAt = nil
	}
	if f.ResetCodeHash != nil {
		v := *f.ResetCodeHash
		u.ResetCodeHash = &v
	}
	if f.ResetCodeExpiresAt != nil {
		v := *f.ResetCodeExpiresAt
		u.ResetCodeExpiresAt = &v
	}
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return nil
}

func (m *Memory) ConsumeResetCode(_ context.Context, email, codeHash string, now time.Time, newHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, u := range m.users {
		if u.Email != email {
			continue
		}
		if u.ResetCodeHash == nil || *u.ResetCodeHash != codeHash {
			return false, nil
		}
		if u.ResetCodeExpiresAt == nil || !now.Before(*u.ResetCodeExpiresAt) {
			return false, nil
		}
		u.PasswordHash = newHash
		u.ResetCodeHash = nil
		u.ResetCodeExpiresAt = nil
		m.users[id] = u
		return true, nil
	}
	return false, nil
}

// DeleteUserCascade works on copies and swaps them in only when every step
// succeeded, mirroring the transactional gorm implementation.
func (m *Memory) DeleteUserCascade(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}

	sessions := map[sessionKey]models.Session{}
	for k, s := range m.sessions {
		if k.userID != id {
			sessions[k] = s
		}
	}
	if m.failDeleteAfter == 1 {
		return errCascadeInjected
	}

	var activity []models.ActivityLog
	for _, a := range m.activity {
		if a.UserID != id {
			activity = append(activity, a)
		}
	}
	if m.failDeleteAfter == 2 {
		return errCascadeInjected
	}

	var transactions []models.Transaction
	for _, t := range m.transactions {
		if t.UserID != id {
			transactions = append(transactions, t)
		}
	}
	if m.failDeleteAfter == 3 {
		return errCascadeInjected
	}

	m.sessions = sessions
	m.activity = activity
	m.transactions = transactions
	delete(m.backups, id)
	delete(m.users, id)
	return nil
}

func (m *Memory) UpsertSession(_ context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey{userID: session.UserID, deviceID: session.DeviceID}
	now := time.Now()
	if existing, ok := m.sessions[key]; ok {
		session.ID = existing.ID
		session.CreatedAt = existing.CreatedAt
	}
	stamp(&session.BaseModel, now)
	m.sessions[key] = *session
	return nil
}

func (m *Memory) FindSession(_ context.Context, userID uuid.UUID, deviceID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionKey{userID: userID, deviceID: deviceID}]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *Memory) TouchSession(_ context.Context, userID uuid.UUID, deviceID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey{userID: userID, deviceID: deviceID}
	if s, ok := m.sessions[key]; ok {
		s.LastAccessedAt = now
		m.sessions[key] = s
	}
	return nil
}

func (m *Memory) DeleteSession(_ context.Context, userID uuid.UUID, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionKey{userID: userID, deviceID: deviceID})
	return nil
}

func (m *Memory) InsertActivity(_ context.Context, entry *models.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamp(&entry.BaseModel, time.Now())
	m.activity = append(m.activity, *entry)
	return nil
}

// Activity returns a copy of the audit entries recorded for userID.
func (m *Memory) Activity(userID uuid.UUID) []models.ActivityLog {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.ActivityLog
	for _, a := range m.activity {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out
}

func (m *Memory) SaveWalletBackup(_ context.Context, backup *models.WalletBackup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, ok := m.backups[backup.UserID]; ok {
		backup.ID = existing.ID
		backup.CreatedAt = existing.CreatedAt
		backup.Version = existing.Version + 1
	} else if backup.Version == 0 {
		backup.Version = 1
	}
	stamp(&backup.BaseModel, now)
	m.backups[backup.UserID] = *backup
	return nil
}

func (m *Memory) FindWalletBackup(_ context.Context, userID uuid.UUID) (*models.WalletBackup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.backups[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m *Memory) InsertTransaction(_ context.Context, txn *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamp(&txn.BaseModel, time.Now())
	m.transactions = append(m.transactions, *txn)
	return nil
}

func (m *Memory) ListTransactions(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var mine []models.Transaction
	for _, t := range m.transactions {
		if t.UserID == userID {
			mine = append(mine, t)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool {
		return mine[i].CreatedAt.After(mine[j].CreatedAt)
	})

	total := int64(len(mine))
	if offset < 0 {
		offset = 0
	}
	if offset >= len(mine) {
		return []models.Transaction{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(mine) {
		end = len(mine)
	}
	return mine[offset:end], total, nil
}

func (m *Memory) UpdateTransactionState(_ context.Context, bridgeTransferID, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.transactions {
		if m.transactions[i].BridgeTransferID == bridgeTransferID {
			m.transactions[i].State = state
			m.transactions[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*GormStore)(nil)
)

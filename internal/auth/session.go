package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/rampwallet/internal/models"
	"github.com/example/rampwallet/internal/store"
)

// SessionTracker binds tokens to (user, device) pairs. Its expiry is
// independent of the token's own expiry.
type SessionTracker struct {
	store store.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewSessionTracker returns a tracker whose sessions live for ttl.
func NewSessionTracker(st store.Store, ttl time.Duration) *SessionTracker {
	return &SessionTracker{store: st, ttl: ttl, now: time.Now}
}

// HashToken returns the hex sha256 digest stored instead of the raw token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Bind creates or replaces the session for (userID, deviceID).
func (t *SessionTracker) Bind(ctx context.Context, userID uuid.UUID, deviceID, token string) (*models.Session, error) {
	now := t.now()
	session := &models.Session{
		UserID:         userID,
		DeviceID:       deviceID,
		TokenHash:      HashToken(token),
		ExpiresAt:      now.Add(t.ttl),
		LastAccessedAt: now,
	}
	if err := t.store.UpsertSession(ctx, session); err != nil {
		return nil, fmt.Errorf("upsert session: %w", err)
	}
	return session, nil
}

// Check requires an unexpired session for (userID, deviceID) that was bound
// to token, and records the access.
func (t *SessionTracker) Check(ctx context.Context, userID uuid.UUID, deviceID, token string) error {
	session, err := t.store.FindSession(ctx, userID, deviceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionInvalid
		}
		return fmt.Errorf("find session: %w", err)
	}

	now := t.now()
	if !session.Valid(now) {
		return ErrSessionInvalid
	}
	if subtle.ConstantTimeCompare([]byte(session.TokenHash), []byte(HashToken(token))) != 1 {
		return ErrSessionInvalid
	}

	if err := t.store.TouchSession(ctx, userID, deviceID, now); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// Revoke deletes the session if there is one.
func (t *SessionTracker) Revoke(ctx context.Context, userID uuid.UUID, deviceID string) error {
	if err := t.store.DeleteSession(ctx, userID, deviceID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

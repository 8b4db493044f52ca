package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/example/rampwallet/internal/models"
	"github.com/example/rampwallet/internal/store"
)

// Identity is the resolved caller attached to a request. It is rebuilt from
// the store on every request.
type Identity struct {
	UserID             uuid.UUID
	Email              string
	IsVerified         bool
	KYCStatus          models.KYCStatus
	TOSStatus          models.TOSStatus
	ProviderCustomerID string
	DeviceID           string
}

func identityFromUser(u *models.User) *Identity {
	id := &Identity{
		UserID:     u.ID,
		Email:      u.Email,
		IsVerified: u.IsVerified,
		KYCStatus:  u.KYCStatus,
		TOSStatus:  u.TOSStatus,
	}
	if u.ProviderCustomerID != nil {
		id.ProviderCustomerID = *u.ProviderCustomerID
	}
	return id
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingCredential
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMissingCredential
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrMissingCredential
	}
	return token, nil
}

// Resolver turns an Authorization header into an Identity.
type Resolver struct {
	tokens   *TokenService
	store    store.Store
	sessions *SessionTracker
}

// NewResolver wires the token service, store and session tracker.
func NewResolver(tokens *TokenService, st store.Store, sessions *SessionTracker) *Resolver {
	return &Resolver{tokens: tokens, store: st, sessions: sessions}
}

// Resolve authenticates the header. When deviceID is non-empty the token must
// also match an unexpired session for that device; an empty deviceID skips
// session binding entirely.
func (r *Resolver) Resolve(ctx context.Context, authorization, deviceID string) (*Identity, error) {
	token, err := BearerToken(authorization)
	if err != nil {
		return nil, err
	}

	userID, err := r.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := r.store.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownSubject
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	identity := identityFromUser(user)
	if deviceID != "" {
		if err := r.sessions.Check(ctx, user.ID, deviceID, token); err != nil {
			return nil, err
		}
		identity.DeviceID = deviceID
	}
	return identity, nil
}

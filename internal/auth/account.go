package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/example/rampwallet/internal/models"
	"github.com/example/rampwallet/internal/ratelimit"
	"github.com/example/rampwallet/internal/store"
)

const minPasswordLength = 8

// AttemptLimiter throttles repeated failures per key.
type AttemptLimiter interface {
	Check(ctx context.Context, key string) error
	Fail(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// Service implements the credential lifecycle: registration, login,
// password changes and resets, email verification, logout and deletion.
type Service struct {
	store     store.Store
	hasher    Hasher
	tokens    *TokenService
	sessions  *SessionTracker
	limiter   AttemptLimiter
	sender    CodeSender
	resetTTL  time.Duration
	verifyTTL time.Duration
	now       func() time.Time

	dummyMu   sync.Mutex
	dummyHash string
}

// Option customises a Service.
type Option func(*Service)

// WithLimiter throttles failed logins and reset attempts.
func WithLimiter(l AttemptLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithCodeSender sets how verification and reset codes are delivered.
func WithCodeSender(cs CodeSender) Option {
	return func(s *Service) { s.sender = cs }
}

// WithCodeTTLs overrides the reset and verification code lifetimes.
func WithCodeTTLs(reset, verify time.Duration) Option {
	return func(s *Service) {
		s.resetTTL = reset
		s.verifyTTL = verify
	}
}

// WithServiceClock overrides the time source.
func WithServiceClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds the account service.
func NewService(st store.Store, hasher Hasher, tokens *TokenService, sessions *SessionTracker, opts ...Option) *Service {
	s := &Service{
		store:     st,
		hasher:    hasher,
		tokens:    tokens,
		sessions:  sessions,
		resetTTL:  time.Hour,
		verifyTTL: 10 * time.Minute,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.timingHash()
	return s
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token         string            `json:"token"`
	ExpiresAt     time.Time         `json:"expires_at"`
	User          models.PublicUser `json:"user"`
	SessionBound  bool              `json:"session_bound"`
	SessionExpiry *time.Time        `json:"session_expires_at,omitempty"`
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	DeviceID  string
	IP        string
}

// LoginInput carries the login form. DeviceID opts into session binding.
type LoginInput struct {
	Email    string
	Password string
	DeviceID string
	IP       string
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return "", fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	return addr.Address, nil
}

// Register creates an unverified account and signs the caller in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.FirstName) == "" {
		return nil, fmt.Errorf("%w: first name is required", ErrInvalidInput)
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: hash,
		IsVerified:   false,
		KYCStatus:    models.KYCPending,
		TOSStatus:    models.TOSUnset,
	}
	if err := s.store.InsertUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if err := s.issueVerificationCode(ctx, user); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("verification code not delivered")
	}

	result, err := s.signIn(ctx, user, in.DeviceID)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, s.store, &models.ActivityLog{
		UserID: user.ID, Action: "register", DeviceID: in.DeviceID, IPAddress: in.IP,
	})
	return result, nil
}

// Login authenticates email and password. Unknown emails and wrong
// passwords produce the same ErrInvalidCredentials after the same bcrypt
// work.
func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := strings.TrimSpace(in.Email)
	limitKey := "login:" + email

	if err := s.checkLimit(ctx, limitKey); err != nil {
		return nil, err
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.hasher.Verify(in.Password, s.timingHash())
		s.failLimit(ctx, limitKey)
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		s.failLimit(ctx, limitKey)
		return nil, ErrInvalidCredentials
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, limitKey); err != nil {
			log.Warn().Err(err).Msg("failed to reset login limiter")
		}
	}

	result, err := s.signIn(ctx, user, in.DeviceID)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, s.store, &models.ActivityLog{
		UserID: user.ID, Action: "login", DeviceID: in.DeviceID, IPAddress: in.IP,
	})
	return result, nil
}

func (s *Service) signIn(ctx context.Context, user *models.User, deviceID string) (*AuthResult, error) {
	token, expires, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	result := &AuthResult{Token: token, ExpiresAt: expires, User: user.Public()}
	if deviceID != "" {
		session, err := s.sessions.Bind(ctx, user.ID, deviceID, token)
		if err != nil {
			return nil, err
		}
		result.SessionBound = true
		result.SessionExpiry = &session.ExpiresAt
	}
	return result, nil
}

// ChangePassword replaces the password after re-checking the current one
// against the stored hash.
func (s *Service) ChangePassword(ctx context.Context, id *Identity, current, next string) error {
	user, err := s.loadIdentityUser(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, user.PasswordHash) {
		return ErrIncorrectCurrentPassword
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdateUserFields(ctx, user.ID, store.UserFields{PasswordHash: &hash}); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	recordActivity(ctx, s.store, &models.ActivityLog{
		UserID: user.ID, Action: "password_change", DeviceID: id.DeviceID,
	})
	return nil
}

// Logout revokes the device session when deviceID is given. It succeeds
// whether or not a session existed.
func (s *Service) Logout(ctx context.Context, id *Identity, deviceID string) error {
	if deviceID != "" {
		if err := s.sessions.Revoke(ctx, id.UserID, deviceID); err != nil {
			return err
		}
	}

	recordActivity(ctx, s.store, &models.ActivityLog{
		UserID: id.UserID, Action: "logout", DeviceID: deviceID,
	})
	return nil
}

// ForgotPassword issues a reset code when the email belongs to an account.
// The result never reveals whether it does.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if err := s.checkLimit(ctx, "forgot:"+email); err != nil {
		return err
	}
	s.failLimit(ctx, "forgot:"+email)

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup email: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate reset code: %w", err)
	}
	codeHash := hashCode(code)
	expires := s.now().Add(s.resetTTL)

	if err := s.store.UpdateUserFields(ctx, user.ID, store.UserFields{
		ResetCodeHash:      &codeHash,
		ResetCodeExpiresAt: &expires,
	}); err != nil {
		return fmt.Errorf("store reset code: %w", err)
	}

	if s.sender != nil {
		if err := s.sender.SendCode(ctx, user.Email, PurposePasswordReset, code); err != nil {
			log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("reset code not delivered")
		}
	}

	recordActivity(ctx, s.store, &models.ActivityLog{UserID: user.ID, Action: "password_reset_requested"})
	return nil
}

// ResetPassword consumes a reset code and sets the new password in one
// store operation. A code can be used once.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = strings.TrimSpace(email)
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	limitKey := "reset:" + email
	if err := s.checkLimit(ctx, limitKey); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	ok, err := s.store.ConsumeResetCode(ctx, email, hashCode(strings.TrimSpace(code)), s.now(), hash)
	if err != nil {
		return fmt.Errorf("consume reset code: %w", err)
	}
	if !ok {
		s.failLimit(ctx, limitKey)
		return ErrInvalidResetCode
	}

	if user, err := s.store.FindUserByEmail(ctx, email); err == nil {
		recordActivity(ctx, s.store, &models.ActivityLog{UserID: user.ID, Action: "password_reset"})
	}
	return nil
}

// VerifyEmail marks the account verified when code matches the last
// verification code sent to it.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	email = strings.TrimSpace(email)
	limitKey := "verify:" + email
	if err := s.checkLimit(ctx, limitKey); err != nil {
		return err
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.failLimit(ctx, limitKey)
			return ErrInvalidVerificationCode
		}
		return fmt.Errorf("lookup email: %w", err)
	}
	if user.IsVerified {
		return nil
	}

	if !codeMatches(strings.TrimSpace(code), user.VerificationCodeHash) ||
		user.VerificationExpiresAt == nil || !s.now().Before(*user.VerificationExpiresAt) {
		s.failLimit(ctx, limitKey)
		return ErrInvalidVerificationCode
	}

	verified := true
	if err := s.store.UpdateUserFields(ctx, user.ID, store.UserFields{
		IsVerified:            &verified,
		ClearVerificationCode: true,
	}); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}

	recordActivity(ctx, s.store, &models.ActivityLog{UserID: user.ID, Action: "email_verified"})
	return nil
}

// ResendVerification sends a fresh verification code to an unverified account.
func (s *Service) ResendVerification(ctx context.Context, id *Identity) error {
	user, err := s.loadIdentityUser(ctx, id)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return nil
	}
	return s.issueVerificationCode(ctx, user)
}

// DeleteAccount re-checks the password and removes the account together
// with its sessions, activity, transactions and wallet backup.
func (s *Service) DeleteAccount(ctx context.Context, id *Identity, password string) error {
	user, err := s.loadIdentityUser(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return ErrIncorrectCurrentPassword
	}

	if err := s.store.DeleteUserCascade(ctx, user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnknownSubject
		}
		return fmt.Errorf("delete account: %w", err)
	}

	log.Info().Str("user_id", user.ID.String()).Msg("account deleted")
	return nil
}

func (s *Service) issueVerificationCode(ctx context.Context, user *models.User) error {
	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate verification code: %w", err)
	}
	codeHash := hashCode(code)
	expires := s.now().Add(s.verifyTTL)

	if err := s.store.UpdateUserFields(ctx, user.ID, store.UserFields{
		VerificationCodeHash:  &codeHash,
		VerificationExpiresAt: &expires,
	}); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}

	if s.sender == nil {
		return nil
	}
	return s.sender.SendCode(ctx, user.Email, PurposeVerification, code)
}

func (s *Service) loadIdentityUser(ctx context.Context, id *Identity) (*models.User, error) {
	mustIdentity(id)
	user, err := s.store.FindUserByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownSubject
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// timingHash is a real hash of a random-looking string, compared against on
// unknown emails so that both login failures cost one bcrypt verification.
// A failed computation is not cached and is retried on the next call.
func (s *Service) timingHash() string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()

	if s.dummyHash != "" {
		return s.dummyHash
	}
	hash, err := s.hasher.Hash("rampwallet-timing-equalizer")
	if err != nil {
		log.Error().Err(err).Msg("failed to compute timing hash")
		return ""
	}
	s.dummyHash = hash
	return s.dummyHash
}

// checkLimit returns ratelimit.ErrRateLimited when the key is blocked. A
// limiter outage is logged and the attempt is allowed.
func (s *Service) checkLimit(ctx context.Context, key string) error {
	if s.limiter == nil {
		return nil
	}
	err := s.limiter.Check(ctx, key)
	if err == nil {
		return nil
	}
	if errors.Is(err, ratelimit.ErrRateLimited) {
		return err
	}
	log.Warn().Err(err).Msg("attempt limiter unavailable")
	return nil
}

func (s *Service) failLimit(ctx context.Context, key string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Fail(ctx, key); err != nil && !errors.Is(err, ratelimit.ErrRateLimited) {
		log.Warn().Err(err).Msg("attempt limiter unavailable")
	}
}

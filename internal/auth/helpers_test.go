package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/rampwallet/internal/store"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type captureSender struct {
	mu    sync.Mutex
	codes map[string]string
}

func newCaptureSender() *captureSender {
	return &captureSender{codes: map[string]string{}}
}

func (c *captureSender) SendCode(_ context.Context, email string, purpose CodePurpose, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[string(purpose)+":"+email] = code
	return nil
}

func (c *captureSender) code(purpose CodePurpose, email string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[string(purpose)+":"+email]
}

type fixture struct {
	store    *store.Memory
	tokens   *TokenService
	sessions *SessionTracker
	resolver *Resolver
	svc      *Service
	sender   *captureSender
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	st := store.NewMemory()
	tokens, err := NewTokenService(testSecret, time.Hour, "test")
	require.NoError(t, err)
	sessions := NewSessionTracker(st, 7*24*time.Hour)
	sender := newCaptureSender()

	opts = append([]Option{WithCodeSender(sender)}, opts...)
	svc := NewService(st, NewBcryptHasher(bcrypt.MinCost), tokens, sessions, opts...)

	return &fixture{
		store:    st,
		tokens:   tokens,
		sessions: sessions,
		resolver: NewResolver(tokens, st, sessions),
		svc:      svc,
		sender:   sender,
	}
}

func (f *fixture) register(t *testing.T, email, password string) *AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  password,
	})
	require.NoError(t, err)
	return res
}

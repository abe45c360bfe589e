package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-chat/internal/cache"
	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/repository"
	"github.com/weiawesome/wes-io-chat/pkg/jwt"
)

type fakeVerifier struct {
	tokens map[string]string
}

func (f *fakeVerifier) ValidateToken(token string) (*jwt.Claims, error) {
	id, ok := f.tokens[token]
	if !ok {
		return nil, jwt.ErrInvalidToken
	}
	return &jwt.Claims{UserID: id}, nil
}

type fakeUsers struct {
	repository.UserRepository
	users map[string]*domain.User
	calls atomic.Int32
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.calls.Add(1)
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*domain.User
	getErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]*domain.User)}
}

func (m *memoryCache) Get(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.entries[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return u, nil
}

func (m *memoryCache) Set(_ context.Context, u *domain.User, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[u.ID] = u
	return nil
}

func (m *memoryCache) Close() error { return nil }

func newFixture() (*fakeVerifier, *fakeUsers) {
	v := &fakeVerifier{tokens: map[string]string{"good": "u1", "orphan": "gone"}}
	users := &fakeUsers{users: map[string]*domain.User{"u1": {ID: "u1", FullName: "Alice"}}}
	return v, users
}

func TestAuthenticateResolvesUser(t *testing.T) {
	v, users := newFixture()
	a := NewAuthenticator(v, users, nil, time.Minute)

	u, err := a.Authenticate(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.FullName)
}

func TestAuthenticateFailures(t *testing.T) {
	v, users := newFixture()
	a := NewAuthenticator(v, users, nil, time.Minute)

	for _, token := range []string{"", "forged", "orphan"} {
		_, err := a.Authenticate(context.Background(), token)
		assert.ErrorIs(t, err, domain.ErrAuthFailure, "token %q", token)
	}
}

func TestAuthenticateUsesCache(t *testing.T) {
	v, users := newFixture()
	c := newMemoryCache()
	a := NewAuthenticator(v, users, c, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := a.Authenticate(context.Background(), "good")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), users.calls.Load())
}

func TestAuthenticateFallsBackWhenCacheFails(t *testing.T) {
	v, users := newFixture()
	c := newMemoryCache()
	c.getErr = errors.New("connection refused")
	a := NewAuthenticator(v, users, c, time.Minute)

	u, err := a.Authenticate(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}

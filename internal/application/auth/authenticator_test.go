package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/atelier/internal/domain"
	"github.com/rezkam/atelier/internal/infrastructure/keygen"
)

// memRepo stores keys by short token.
type memRepo struct {
	mu        sync.Mutex
	keys      map[string]*domain.APIKey
	touched   []string
	touchErr  error
	createErr error
}

func newMemRepo() *memRepo {
	return &memRepo{keys: make(map[string]*domain.APIKey)}
}

func (m *memRepo) FindByShortToken(ctx context.Context, shortToken string) (*domain.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[shortToken]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *k
	return &c, nil
}

func (m *memRepo) UpdateLastUsed(ctx context.Context, keyID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched = append(m.touched, keyID)
	return m.touchErr
}

func (m *memRepo) Create(ctx context.Context, key *domain.APIKey) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key.ShortToken] = key
	return nil
}

func (m *memRepo) touchedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.touched...)
}

func issue(t *testing.T, repo *memRepo, role string) string {
	t.Helper()
	key, err := Issue(context.Background(), repo, IssueInput{Name: "test", ActorID: "user-1", Role: role})
	require.NoError(t, err)
	return key
}

func shutdown(t *testing.T, a *Authenticator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx))
}

func TestIssue(t *testing.T) {
	repo := newMemRepo()

	key := issue(t, repo, "Client")
	parts, err := keygen.ParseAPIKey(key)
	require.NoError(t, err)
	assert.Equal(t, KeyService, parts.Service)

	stored := repo.keys[parts.ShortToken]
	require.NotNil(t, stored)
	assert.Equal(t, domain.RoleClient, stored.Role)
	assert.Equal(t, "user-1", stored.ActorID)
	assert.NotContains(t, stored.LongSecretHash, parts.LongSecret)

	_, err = Issue(context.Background(), repo, IssueInput{ActorID: "x", Role: "janitor"})
	assert.ErrorIs(t, err, domain.ErrUnknownRole)

	_, err = Issue(context.Background(), repo, IssueInput{ActorID: " ", Role: "admin"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	repo.createErr = errors.New("unique violation")
	_, err = Issue(context.Background(), repo, IssueInput{ActorID: "x", Role: "admin"})
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	repo := newMemRepo()
	a := NewAuthenticator(repo, Config{})
	key := issue(t, repo, "designer")

	actor, err := a.Authenticate(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{ID: "user-1", Role: domain.RoleDesigner}, actor)

	shutdown(t, a)
	assert.Len(t, repo.touchedIDs(), 1, "shutdown drains last_used_at updates")
}

func TestAuthenticate_Rejects(t *testing.T) {
	repo := newMemRepo()
	a := NewAuthenticator(repo, Config{})
	defer shutdown(t, a)

	key := issue(t, repo, "admin")
	parts, _ := keygen.ParseAPIKey(key)

	other, err := keygen.GenerateAPIKey(KeyType, "billing", KeyVersion)
	require.NoError(t, err)

	tests := []struct {
		name  string
		key   string
		setup func()
	}{
		{name: "malformed", key: "not-a-key"},
		{name: "other service", key: other.FullKey},
		{name: "unknown token", key: "sk-atelier-v1-000000000000-" + parts.LongSecret},
		{name: "wrong secret", key: "sk-atelier-v1-" + parts.ShortToken + "-wrong"},
		{name: "inactive", key: key, setup: func() { repo.keys[parts.ShortToken].IsActive = false }},
		{name: "expired", key: key, setup: func() {
			past := time.Now().Add(-time.Hour)
			repo.keys[parts.ShortToken].IsActive = true
			repo.keys[parts.ShortToken].ExpiresAt = &past
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			_, err := a.Authenticate(context.Background(), tt.key)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}

func TestAuthenticate_FullQueueDropsUpdate(t *testing.T) {
	repo := newMemRepo()
	a := &Authenticator{
		repo:             repo,
		touches:          make(chan touch, 1),
		stop:             make(chan struct{}),
		operationTimeout: time.Second,
		now:              func() time.Time { return time.Now().UTC() },
	}
	key := issue(t, repo, "admin")

	// No worker running: the first touch fills the queue, the second is dropped.
	for range 2 {
		_, err := a.Authenticate(context.Background(), key)
		require.NoError(t, err)
	}
	assert.Len(t, a.touches, 1)
}

func TestShutdown_Idempotent(t *testing.T) {
	repo := newMemRepo()
	repo.touchErr = errors.New("db down")
	a := NewAuthenticator(repo, Config{UpdateQueueSize: 4})

	key := issue(t, repo, "client")
	_, err := a.Authenticate(context.Background(), key)
	require.NoError(t, err)

	shutdown(t, a)
	shutdown(t, a)
}

func TestAuthenticate_UnknownTokenStillHashes(t *testing.T) {
	repo := newMemRepo()
	a := NewAuthenticator(repo, Config{})
	defer shutdown(t, a)

	var hashed []string
	a.hash = func(secret string) string {
		hashed = append(hashed, secret)
		return keygen.HashSecret(secret)
	}

	// Well-formed key whose short token was never stored.
	parts, err := keygen.GenerateAPIKey(KeyType, KeyService, KeyVersion)
	require.NoError(t, err)

	_, err = a.Authenticate(context.Background(), parts.FullKey)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, []string{parts.LongSecret}, hashed, "a miss must cost the same hash as a wrong secret")

	// The dummy hash never matches a real secret.
	_, err = a.Authenticate(context.Background(), "sk-atelier-v1-"+parts.ShortToken+"-atelier-unknown-key")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

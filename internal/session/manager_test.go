package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bloggery/apiserver/internal/auth"
	"github.com/bloggery/apiserver/internal/store"
	"github.com/bloggery/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-session-secret"

func newTestManager(t *testing.T) (*Manager, *MemoryStore) {
	t.Helper()
	memStore := NewMemoryStore()
	manager, err := NewManager(memStore, testSecret, time.Hour)
	require.NoError(t, err)
	return manager, memStore
}

func TestManagerRequiresSecret(t *testing.T) {
	_, err := NewManager(NewMemoryStore(), "", time.Hour)
	assert.Error(t, err)
}

func TestIssueResolveRoundtrip(t *testing.T) {
	ctx := context.Background()
	manager, memStore := newTestManager(t)

	token, err := manager.Issue(ctx, 42)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, 1, memStore.Len())

	session, err := manager.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, 42, session.UserID)
	assert.True(t, session.ExpiresAt.After(time.Now()))
}

func TestResolveUnknownToken(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	_, err := manager.Resolve(ctx, "never-issued")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = manager.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestResolveExpiredToken(t *testing.T) {
	ctx := context.Background()
	manager, memStore := newTestManager(t)

	token, err := auth.NewToken()
	require.NoError(t, err)
	require.NoError(t, memStore.Create(ctx, types.Session{
		TokenHash: auth.HashToken([]byte(testSecret), token),
		UserID:    7,
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	_, err = manager.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)
	// Expired rows are deleted on sight.
	assert.Equal(t, 0, memStore.Len())
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	manager, memStore := newTestManager(t)

	token, err := manager.Issue(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, manager.Revoke(ctx, token))
	_, err = manager.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, 0, memStore.Len())

	// Revoking again is a no-op, not an error.
	assert.NoError(t, manager.Revoke(ctx, token))
}

func TestRevokeUser(t *testing.T) {
	ctx := context.Background()
	manager, memStore := newTestManager(t)

	first, err := manager.Issue(ctx, 5)
	require.NoError(t, err)
	second, err := manager.Issue(ctx, 5)
	require.NoError(t, err)
	other, err := manager.Issue(ctx, 6)
	require.NoError(t, err)

	require.NoError(t, manager.RevokeUser(ctx, 5))
	assert.Equal(t, 1, memStore.Len())

	// The durable rows are gone even if cache entries linger.
	hash := auth.HashToken([]byte(testSecret), first)
	_, err = memStore.Get(ctx, hash)
	assert.ErrorIs(t, err, store.ErrNotFound)
	hash = auth.HashToken([]byte(testSecret), second)
	_, err = memStore.Get(ctx, hash)
	assert.ErrorIs(t, err, store.ErrNotFound)

	session, err := manager.Resolve(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, 6, session.UserID)
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	manager, memStore := newTestManager(t)

	_, err := manager.Issue(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, memStore.Create(ctx, types.Session{
		TokenHash: "stale",
		UserID:    2,
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	deleted, err := manager.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 1, memStore.Len())
}

// failingStore simulates a database outage: every durable operation
// fails with the same underlying error.
type failingStore struct {
	err error
}

func (s *failingStore) Create(ctx context.Context, session types.Session) error {
	return s.err
}

func (s *failingStore) Get(ctx context.Context, tokenHash string) (types.Session, error) {
	return types.Session{}, s.err
}

func (s *failingStore) Delete(ctx context.Context, tokenHash string) error {
	return s.err
}

func (s *failingStore) DeleteByUser(ctx context.Context, userID int) error {
	return s.err
}

func (s *failingStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, s.err
}

func TestResolveStoreOutage(t *testing.T) {
	ctx := context.Background()
	errDown := errors.New("connection refused")
	manager, err := NewManager(&failingStore{err: errDown}, testSecret, time.Hour)
	require.NoError(t, err)

	// An outage must surface as the underlying error, never as a
	// missing session.
	_, err = manager.Resolve(ctx, "some-live-token")
	assert.ErrorIs(t, err, errDown)
	assert.NotErrorIs(t, err, ErrNoSession)
}

func TestTokensNeverStoredRaw(t *testing.T) {
	ctx := context.Background()
	manager, memStore := newTestManager(t)

	token, err := manager.Issue(ctx, 9)
	require.NoError(t, err)

	_, err = memStore.Get(ctx, token)
	assert.ErrorIs(t, err, store.ErrNotFound, "store must be keyed by hash, not raw token")

	hash := auth.HashToken([]byte(testSecret), token)
	session, err := memStore.Get(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, 9, session.UserID)
}

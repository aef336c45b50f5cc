// Package session maps opaque client tokens to authenticated users.
//
// A token handed to the client is never stored directly: the manager
// keeps an HMAC of it, so the sessions table is useless to anyone who
// obtains a copy. Lookups go through an in-process cache; the durable
// store is the source of truth and every cache entry can be rebuilt
// from it.
package session

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/bloggery/apiserver/internal/auth"
	"github.com/bloggery/apiserver/internal/logutil"
	"github.com/bloggery/apiserver/internal/store"
	"github.com/bloggery/apiserver/types"
)

// ErrNoSession is returned when a token is missing, unknown, or expired.
// Store outages are not collapsed into it; they propagate as distinct
// errors so callers can report them as transient failures.
var ErrNoSession = errors.New("no session")

// Store defines durable persistence for sessions. Get reports a missing
// session as store.ErrNotFound; any other error means the store itself
// failed.
type Store interface {
	Create(ctx context.Context, session types.Session) error
	Get(ctx context.Context, tokenHash string) (types.Session, error)
	Delete(ctx context.Context, tokenHash string) error
	DeleteByUser(ctx context.Context, userID int) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Manager issues, resolves, and revokes sessions. Tokens are independent
// capabilities; no lock is held across requests beyond the cache's own
// sharded internals.
type Manager struct {
	store  Store
	cache  *bigcache.BigCache
	secret []byte
	ttl    time.Duration
}

func NewManager(store Store, secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	cache, err := bigcache.New(context.Background(), bigcache.DefaultConfig(ttl))
	if err != nil {
		return nil, err
	}
	return &Manager{
		store:  store,
		cache:  cache,
		secret: []byte(secret),
		ttl:    ttl,
	}, nil
}

// TTL reports the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a session for the user and returns the opaque token the
// client must present on subsequent requests.
func (m *Manager) Issue(ctx context.Context, userID int) (string, error) {
	token, err := auth.NewToken()
	if err != nil {
		return "", err
	}

	now := time.Now()
	session := types.Session{
		TokenHash: auth.HashToken(m.secret, token),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Create(ctx, session); err != nil {
		return "", err
	}
	m.cacheSet(session)
	return token, nil
}

// Resolve returns the session bound to the token. Missing, unknown, and
// expired tokens all yield ErrNoSession; a failing store yields the
// underlying error, logged, so an outage is never mistaken for a dead
// token. Expired rows are deleted on sight rather than by a scan.
//
// Resolve does not check that the bound user still exists; callers that
// hand out user data must re-fetch the user and treat a missing record
// as anonymous.
func (m *Manager) Resolve(ctx context.Context, token string) (types.Session, error) {
	if token == "" {
		return types.Session{}, ErrNoSession
	}
	tokenHash := auth.HashToken(m.secret, token)

	if session, ok := m.cacheGet(tokenHash); ok {
		if session.Expired(time.Now()) {
			_ = m.cache.Delete(tokenHash)
			_ = m.store.Delete(ctx, tokenHash)
			return types.Session{}, ErrNoSession
		}
		return session, nil
	}

	session, err := m.store.Get(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Session{}, ErrNoSession
		}
		logger := logutil.GetOrDefault(ctx)
		logger.Error().Err(err).Msg("session lookup failed")
		return types.Session{}, fmt.Errorf("session lookup: %w", err)
	}
	if session.Expired(time.Now()) {
		_ = m.store.Delete(ctx, tokenHash)
		return types.Session{}, ErrNoSession
	}
	m.cacheSet(session)
	return session, nil
}

// Revoke invalidates a token. Revoking an unknown or already revoked
// token succeeds; logout is unconditional.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	tokenHash := auth.HashToken(m.secret, token)
	_ = m.cache.Delete(tokenHash)
	return m.store.Delete(ctx, tokenHash)
}

// RevokeUser invalidates every session bound to the user. Used when an
// account is deleted. Cache entries for the user may linger until they
// expire, but resolving them leads to a user that no longer exists,
// which callers treat as anonymous.
func (m *Manager) RevokeUser(ctx context.Context, userID int) error {
	return m.store.DeleteByUser(ctx, userID)
}

// PurgeExpired deletes expired session rows from the durable store.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx, time.Now())
}

// Cache entries hold the user id and expiry; created-at is not needed
// to answer a resolve.
const cacheEntrySize = 16

func (m *Manager) cacheSet(session types.Session) {
	buf := make([]byte, cacheEntrySize)
	binary.BigEndian.PutUint64(buf[0:8], uint64(session.UserID))
	binary.BigEndian.PutUint64(buf[8:16], uint64(session.ExpiresAt.Unix()))
	_ = m.cache.Set(session.TokenHash, buf)
}

func (m *Manager) cacheGet(tokenHash string) (types.Session, bool) {
	buf, err := m.cache.Get(tokenHash)
	if err != nil || len(buf) != cacheEntrySize {
		return types.Session{}, false
	}
	return types.Session{
		TokenHash: tokenHash,
		UserID:    int(binary.BigEndian.Uint64(buf[0:8])),
		ExpiresAt: time.Unix(int64(binary.BigEndian.Uint64(buf[8:16])), 0),
	}, true
}

// Package cache stores the token pair behind each browser session id so a
// signed-in session survives a frontend restart. Only the backend-issued
// session is persisted; bootstrap state (profile, resolution progress) is
// always rebuilt in memory from it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"kiteretsu_web/internal/model"
)

const (
	// SessionKeyPrefix is the key prefix for session records
	SessionKeyPrefix = "session:sid:"

	// SessionTTL matches the backend's refresh token lifetime; a record older
	// than this cannot be refreshed anyway.
	SessionTTL = 30 * 24 * time.Hour
)

// SessionCache persists session records keyed by browser session id.
type SessionCache interface {
	// Put stores or replaces the record for sid.
	Put(ctx context.Context, sid string, session *model.Session) error

	// Get returns the record for sid, or (nil, nil) when none exists.
	Get(ctx context.Context, sid string) (*model.Session, error)

	// Delete removes the record for sid. Deleting a missing record is not an
	// error.
	Delete(ctx context.Context, sid string) error
}

// =============================================================================
// In-memory implementation (default: single-instance deployments)
// =============================================================================

// MemorySessionCache keeps records in process memory.
type MemorySessionCache struct {
	mu       sync.RWMutex
	sessions map[string]memoryRecord
}

type memoryRecord struct {
	session model.Session
	expires time.Time
}

// NewMemorySessionCache creates an empty in-memory cache.
func NewMemorySessionCache() *MemorySessionCache {
	return &MemorySessionCache{sessions: make(map[string]memoryRecord)}
}

func (c *MemorySessionCache) Put(ctx context.Context, sid string, session *model.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if len(c.sessions) > 1024 {
		c.prune(now)
	}
	c.sessions[sid] = memoryRecord{
		session: *session,
		expires: now.Add(SessionTTL),
	}
	return nil
}

// prune drops expired records so the map stays bounded. Caller holds the lock.
func (c *MemorySessionCache) prune(now time.Time) {
	for sid, rec := range c.sessions {
		if now.After(rec.expires) {
			delete(c.sessions, sid)
		}
	}
}

func (c *MemorySessionCache) Get(ctx context.Context, sid string) (*model.Session, error) {
	c.mu.RLock()
	rec, ok := c.sessions[sid]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if time.Now().After(rec.expires) {
		c.mu.Lock()
		delete(c.sessions, sid)
		c.mu.Unlock()
		return nil, nil
	}
	session := rec.session
	return &session, nil
}

func (c *MemorySessionCache) Delete(ctx context.Context, sid string) error {
	c.mu.Lock()
	delete(c.sessions, sid)
	c.mu.Unlock()
	return nil
}

// =============================================================================
// Redis implementation (multi-instance deployments)
// =============================================================================

// RedisSessionCache stores records as JSON strings with a TTL.
type RedisSessionCache struct {
	client *redis.Client
}

// NewRedisSessionCache creates a SessionCache backed by Redis.
func NewRedisSessionCache(client *redis.Client) *RedisSessionCache {
	return &RedisSessionCache{client: client}
}

func sessionKey(sid string) string {
	return SessionKeyPrefix + sid
}

func (c *RedisSessionCache) Put(ctx context.Context, sid string, session *model.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}
	if err := c.client.Set(ctx, sessionKey(sid), raw, SessionTTL).Err(); err != nil {
		return fmt.Errorf("store session record: %w", err)
	}
	return nil
}

func (c *RedisSessionCache) Get(ctx context.Context, sid string) (*model.Session, error) {
	raw, err := c.client.Get(ctx, sessionKey(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session record: %w", err)
	}
	var session model.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session record: %w", err)
	}
	return &session, nil
}

func (c *RedisSessionCache) Delete(ctx context.Context, sid string) error {
	if err := c.client.Del(ctx, sessionKey(sid)).Err(); err != nil {
		return fmt.Errorf("delete session record: %w", err)
	}
	return nil
}

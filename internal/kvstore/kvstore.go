package kvstore

import (
	"context"
	"sync"
	"time"
)

// Store is a string key-value store. Get reports a missing key with ok=false
// rather than an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// SetNX stores value only when key is absent and reports whether it did.
	// A zero ttl means the key never expires.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// AcquireLock takes the lock named key for ttl if it is free. token
	// identifies the holder and must be passed to ReleaseLock.
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// ReleaseLock frees the lock only while token still holds it
	ReleaseLock(ctx context.Context, key, token string) error
}

// LockKey is the key a lock named key is stored under
func LockKey(key string) string {
	return "lock:" + key
}

type memoryItem struct {
	value     string
	expiresAt time.Time
}

// Memory is an in-process Store for development and tests
type Memory struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

// Get returns the value stored under key
func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.lookup(key)
	return item.value, ok, nil
}

// Set stores value under key without expiry
func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = memoryItem{value: value}
	return nil
}

// SetNX stores value under key if the key is absent or expired
func (m *Memory) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lookup(key); ok {
		return false, nil
	}

	item := memoryItem{value: value}
	if ttl > 0 {
		item.expiresAt = m.now().Add(ttl)
	}
	m.items[key] = item
	return true, nil
}

// AcquireLock takes the lock named key if it is free or expired
func (m *Memory) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return m.SetNX(ctx, LockKey(key), token, ttl)
}

// ReleaseLock deletes the lock if token holds it
func (m *Memory) ReleaseLock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item, ok := m.lookup(LockKey(key)); ok && item.value == token {
		delete(m.items, LockKey(key))
	}
	return nil
}

// lookup must be called with mu held
func (m *Memory) lookup(key string) (memoryItem, bool) {
	item, ok := m.items[key]
	if !ok {
		return memoryItem{}, false
	}
	if !item.expiresAt.IsZero() && !m.now().Before(item.expiresAt) {
		delete(m.items, key)
		return memoryItem{}, false
	}
	return item, true
}

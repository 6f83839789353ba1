package core

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of the Storage interface.
// It is the default device-storage stand-in: state survives for the
// process lifetime only.
type MemoryStore struct {
	mu     sync.RWMutex
	store  map[string]memoryEntry
	logger Logger
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		store:  make(map[string]memoryEntry),
		logger: &NoOpLogger{},
	}
}

// SetLogger configures the logger for this store
func (m *MemoryStore) SetLogger(logger Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// Get retrieves a value. A missing or expired key returns ("", nil).
func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.store[key]
	if !exists {
		m.logger.Debug("Storage miss", map[string]interface{}{
			"operation": "storage_get",
			"key":       key,
			"result":    "miss",
		})
		return "", nil
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		m.logger.Debug("Storage entry expired", map[string]interface{}{
			"operation":  "storage_get",
			"key":        key,
			"result":     "expired",
			"expired_at": entry.expiresAt.Format(time.RFC3339),
		})
		return "", nil
	}

	m.logger.Debug("Storage hit", map[string]interface{}{
		"operation": "storage_get",
		"key":       key,
		"result":    "hit",
	})
	return entry.value, nil
}

// Set stores a value with optional TTL (ttl <= 0 means no expiry).
func (m *MemoryStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	logFields := map[string]interface{}{
		"operation":  "storage_set",
		"key":        key,
		"value_size": len(value),
		"has_ttl":    ttl > 0,
	}
	if ttl > 0 {
		logFields["ttl"] = ttl.String()
	}
	m.logger.Debug("Storage set", logFields)

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	m.store[key] = entry
	return nil
}

// Delete removes a value
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, existed := m.store[key]
	delete(m.store, key)

	m.logger.Debug("Storage delete", map[string]interface{}{
		"operation": "storage_delete",
		"key":       key,
		"existed":   existed,
	})
	return nil
}

// Keys lists the live (non-expired) keys
func (m *MemoryStore) Keys(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	keys := make([]string, 0, len(m.store))
	for k, entry := range m.store {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}

package auth

import (
	"context"
	"sync"
	"time"
)

// suffixLen is how many trailing token characters identify a registry entry.
const suffixLen = 8

// Registry records session tokens that have been seen so they can be
// revoked later. It is bookkeeping only: Verify never consults it, and a
// missing entry says nothing about a token's validity.
type Registry interface {
	// RegisterSeen records the token until expiresAt. Re-registering an
	// existing entry is a no-op.
	RegisterSeen(ctx context.Context, userID, token string, expiresAt time.Time) error
	// Revoke removes the entry for the token and reports whether one existed.
	Revoke(ctx context.Context, userID, token string) (bool, error)
	// Len returns the number of unexpired entries.
	Len(ctx context.Context) (int, error)
}

func registryKey(userID, token string) string {
	suffix := token
	if len(token) > suffixLen {
		suffix = token[len(token)-suffixLen:]
	}
	return userID + ":" + suffix
}

// MemoryRegistry is a process-local Registry. Entries are not visible to
// other instances.
type MemoryRegistry struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (r *MemoryRegistry) RegisterSeen(_ context.Context, userID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if !now.Before(expiresAt) {
		return nil
	}
	key := registryKey(userID, token)
	if exp, ok := r.entries[key]; ok && now.Before(exp) {
		return nil
	}
	r.entries[key] = expiresAt
	return nil
}

func (r *MemoryRegistry) Revoke(_ context.Context, userID, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey(userID, token)
	exp, ok := r.entries[key]
	if !ok {
		return false, nil
	}
	delete(r.entries, key)
	return r.now().Before(exp), nil
}

// Len drops expired entries and returns how many remain.
func (r *MemoryRegistry) Len(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for k, exp := range r.entries {
		if !now.Before(exp) {
			delete(r.entries, k)
		}
	}
	return len(r.entries), nil
}

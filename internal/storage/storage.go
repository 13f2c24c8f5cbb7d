// Package storage stores generated documents such as tax receipts and
// invoices in an object bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// Store writes objects to a bucket and reports where they can be fetched.
type Store interface {
	// Put uploads data under key and returns the object's URL.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)

	// Ping reports whether the bucket is reachable.
	Ping(ctx context.Context) error
}

// Object is a stored blob and its content type.
type Object struct {
	ContentType string
	Data        []byte
}

// MemoryStore keeps objects in process memory. It backs development and
// tests.
type MemoryStore struct {
	bucket string

	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemoryStore creates an empty in-memory bucket.
func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{bucket: bucket, objects: make(map[string]Object)}
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if key = strings.TrimLeft(key, "/"); key == "" {
		return "", fmt.Errorf("object key is required")
	}

	s.mu.Lock()
	s.objects[key] = Object{ContentType: contentType, Data: append([]byte(nil), data...)}
	s.mu.Unlock()

	return "memory://" + s.bucket + "/" + key, nil
}

// Get returns the object stored under key.
func (s *MemoryStore) Get(key string) (Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return Object{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return obj, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error { return nil }

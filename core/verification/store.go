package verification

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"
)

// Record is the stored state of the current code.
type Record struct {
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issued_at"`
}

// Store persists the current code per key.
type Store interface {
	// Save overwrites the record under key and keeps it for retention.
	Save(ctx context.Context, key string, rec Record, retention time.Duration) error
	// Get returns ErrNotFound when no record exists.
	Get(ctx context.Context, key string) (Record, error)
	// Consume deletes the record only if its code equals code, reporting whether it did.
	Consume(ctx context.Context, key, code string) (bool, error)
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	rec     Record
	expires time.Time
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Save(ctx context.Context, key string, rec Record, retention time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{rec: rec, expires: time.Now().Add(retention)}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.liveLocked(key)
	if !ok {
		return Record{}, ErrNotFound
	}
	return e.rec, nil
}

func (s *MemoryStore) Consume(ctx context.Context, key, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.liveLocked(key)
	if !ok || subtle.ConstantTimeCompare([]byte(e.rec.Code), []byte(code)) != 1 {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) liveLocked(key string) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if time.Now().After(e.expires) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

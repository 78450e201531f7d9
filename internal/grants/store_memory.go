package grants

import (
	"context"
	"fmt"
	"sync"
	"time"

	"custodia/pkg/platform/sentinel"
)

// MemoryStore keeps grants in memory for tests and single-node dev runs.
// Expired records are dropped lazily on read.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	clock   func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewMemory constructs an empty in-memory grant store.
func NewMemory(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]*Record),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Put(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Key] = cloneRecord(record)
	return nil
}

func (s *MemoryStore) Create(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[record.Key]; ok && !existing.Expired(s.clock()) {
		return fmt.Errorf("grant key %q occupied: %w", record.Key, sentinel.ErrConflict)
	}
	s.records[record.Key] = cloneRecord(record)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Record, error) {
	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("grant not found: %w", sentinel.ErrNotFound)
	}
	if record.Expired(s.clock()) {
		s.mu.Lock()
		delete(s.records, key)
		s.mu.Unlock()
		return nil, fmt.Errorf("grant not found: %w", sentinel.ErrNotFound)
	}
	return cloneRecord(record), nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *MemoryStore) RemoveAll(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.records, key)
	}
	return nil
}

func (s *MemoryStore) GetAllByClientID(_ context.Context, clientID string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.clock()
	var out []*Record
	for _, record := range s.records {
		if record.ClientID != clientID || record.Expired(now) {
			continue
		}
		out = append(out, cloneRecord(record))
	}
	return out, nil
}

// cloneRecord guards callers against aliasing the stored map.
func cloneRecord(r *Record) *Record {
	clone := *r
	if r.Data != nil {
		clone.Data = make(map[string]string, len(r.Data))
		for k, v := range r.Data {
			clone.Data[k] = v
		}
	}
	return &clone
}

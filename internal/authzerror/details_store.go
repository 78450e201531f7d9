package authzerror

import (
	"context"
	"sync"
	"time"
)

// MemoryDetailsStore holds failure details recorded by the authorize flow
// until the outgoing redirect is rewritten. Entries are short-lived and
// dropped on read or after maxAge.
type MemoryDetailsStore struct {
	mu      sync.Mutex
	entries map[string]detailsEntry
	maxAge  time.Duration
	clock   func() time.Time
}

type detailsEntry struct {
	details  Details
	recorded time.Time
}

// NewMemoryDetailsStore constructs a store whose entries expire after maxAge.
func NewMemoryDetailsStore(maxAge time.Duration) *MemoryDetailsStore {
	return &MemoryDetailsStore{
		entries: make(map[string]detailsEntry),
		maxAge:  maxAge,
		clock:   time.Now,
	}
}

// Put records the details behind an error id.
func (s *MemoryDetailsStore) Put(errorID string, details Details) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[errorID] = detailsEntry{details: details, recorded: s.clock()}
}

// Resolve returns the details for errorID, consuming the entry. Unknown or
// expired ids resolve to nil.
func (s *MemoryDetailsStore) Resolve(_ context.Context, errorID string) (*Details, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[errorID]
	if !ok {
		return nil, nil
	}
	delete(s.entries, errorID)
	if s.clock().Sub(entry.recorded) > s.maxAge {
		return nil, nil
	}
	details := entry.details
	return &details, nil
}

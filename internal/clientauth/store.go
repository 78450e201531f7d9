package clientauth

import (
	"context"
	"fmt"
	"sync"

	"custodia/pkg/platform/sentinel"
)

// ClientStore resolves registered clients. Registration itself belongs to the
// holder's admission pipeline; this subsystem only reads.
type ClientStore interface {
	FindByClientID(ctx context.Context, clientID string) (*Client, error)
}

// MemoryClientStore keeps registered clients in memory for tests and dev runs.
type MemoryClientStore struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewMemoryClientStore constructs an empty in-memory client store.
func NewMemoryClientStore() *MemoryClientStore {
	return &MemoryClientStore{clients: make(map[string]*Client)}
}

// Register adds a client, validating its invariants.
func (s *MemoryClientStore) Register(client *Client) error {
	if err := client.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *client
	s.clients[client.ClientID] = &clone
	return nil
}

func (s *MemoryClientStore) FindByClientID(_ context.Context, clientID string) (*Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if client, ok := s.clients[clientID]; ok {
		clone := *client
		return &clone, nil
	}
	return nil, fmt.Errorf("client not found: %w", sentinel.ErrNotFound)
}

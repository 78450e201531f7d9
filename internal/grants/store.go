package grants

import "context"

// Error Contract:
// All store methods follow this pattern:
// - Get returns sentinel.ErrNotFound when the key is absent or expired
// - Create returns sentinel.ErrConflict when the key is already occupied
// - Remove and RemoveAll are no-ops for absent keys, never an error
// - Infrastructure failures are returned wrapped with context
type Store interface {
	// Put stores or replaces a record.
	Put(ctx context.Context, record *Record) error
	// Create stores a record only if its key is unoccupied.
	Create(ctx context.Context, record *Record) error
	// Get fetches a live record by key.
	Get(ctx context.Context, key string) (*Record, error)
	// Remove deletes a record by key. Removing an absent key is a no-op.
	Remove(ctx context.Context, key string) error
	// RemoveAll deletes a batch of keys. Absent keys are skipped.
	RemoveAll(ctx context.Context, keys []string) error
	// GetAllByClientID lists live records tagged with the client id.
	GetAllByClientID(ctx context.Context, clientID string) ([]*Record, error)
}

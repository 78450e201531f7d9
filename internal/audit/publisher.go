package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Publisher is the sink for audit events. Emission is best-effort for
// operational sinks; callers must not fail a customer flow on a publish error.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Recorder is anything that accepts a serialized audit record. The Kafka
// producer satisfies this; tests swap in a capture.
type Recorder interface {
	Produce(ctx context.Context, key, value []byte)
}

// KafkaPublisher serializes events as JSON and hands them to the record
// producer keyed by client id, so per-client ordering is preserved.
type KafkaPublisher struct {
	recorder Recorder
	logger   *slog.Logger
}

func NewKafkaPublisher(recorder Recorder, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{recorder: recorder, logger: logger}
}

func (p *KafkaPublisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "failed to serialize audit event",
				"action", event.Action,
				"error", err,
			)
		}
		return err
	}

	p.recorder.Produce(ctx, []byte(event.ClientID), payload)
	return nil
}

// MemoryPublisher keeps events in memory for tests and single-node dev runs.
type MemoryPublisher struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Emit(_ context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of the captured events.
func (p *MemoryPublisher) Events() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Event{}, p.events...)
}

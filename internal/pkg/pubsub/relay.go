// Package pubsub relays notification payloads between API instances so a
// notification created on one instance reaches WebSocket clients connected
// to any other.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrClosed is returned when publishing on a closed relay
var ErrClosed = errors.New("pubsub: relay closed")

// Envelope is one message on the relay
type Envelope struct {
	UserID  uuid.UUID       `json:"userId"`
	Payload json.RawMessage `json:"payload"`
}

// Handler consumes envelopes delivered by a relay
type Handler func(Envelope)

// Relay publishes envelopes and delivers them to subscribers
type Relay interface {
	Publish(ctx context.Context, env Envelope) error
	// Subscribe delivers envelopes to h until ctx is done or the relay
	// is closed. It blocks.
	Subscribe(ctx context.Context, h Handler) error
	Close() error
}

// LocalRelay delivers envelopes in process. It is used when Redis is
// disabled and in tests.
type LocalRelay struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	nextID   int
	closed   bool
	done     chan struct{}
}

// NewLocalRelay creates an in-process relay
func NewLocalRelay() *LocalRelay {
	return &LocalRelay{
		handlers: make(map[int]Handler),
		done:     make(chan struct{}),
	}
}

// Publish hands env to every subscriber synchronously
func (r *LocalRelay) Publish(_ context.Context, env Envelope) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	for _, h := range r.handlers {
		h(env)
	}
	return nil
}

func (r *LocalRelay) Subscribe(ctx context.Context, h Handler) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	id := r.nextID
	r.nextID++
	r.handlers[id] = h
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.handlers, id)
		r.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return nil
	}
}

// Subscribers returns the number of active subscriptions
func (r *LocalRelay) Subscribers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

func (r *LocalRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.done)
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/ballot/internal/client/client"
	"github.com/google/uuid"
)

var (
	// ErrSubmissionInFlight is returned when a request of the same kind is
	// still waiting for the backend.
	ErrSubmissionInFlight = errors.New("request already in progress")
	// ErrStaleResponse is returned when a response arrives after the flow
	// moved on (for example a logout while the request was pending). The
	// response is dropped.
	ErrStaleResponse = errors.New("response arrived too late and was ignored")
	// ErrInvalidState is returned for an action the current step does not
	// offer.
	ErrInvalidState = errors.New("action not available now")
)

type requestKind string

// tracker allows one pending request per kind, each tagged with a fresh
// request id. Only the response whose id is still current may change state.
type tracker struct {
	mu      sync.Mutex
	pending map[requestKind]string
	newID   func() string
}

func newTracker() *tracker {
	return &tracker{pending: map[requestKind]string{}, newID: uuid.NewString}
}

// begin reserves kind and returns a context carrying the request id.
func (t *tracker) begin(ctx context.Context, kind requestKind) (context.Context, string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, busy := t.pending[kind]; busy {
		return ctx, "", ErrSubmissionInFlight
	}
	id := t.newID()
	t.pending[kind] = id
	return client.WithRequestID(ctx, id), id, nil
}

// finish releases kind and reports whether id was still the current request.
func (t *tracker) finish(kind requestKind, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending[kind] != id {
		return false
	}
	delete(t.pending, kind)
	return true
}

func (t *tracker) busy(kind requestKind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[kind]
	return ok
}

// reset forgets every pending request; their responses become stale.
func (t *tracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.pending)
}

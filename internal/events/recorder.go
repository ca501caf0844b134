package events

import (
	"context"
	"sync"
)

// Recorded is one call captured by a Recorder
type Recorded struct {
	Key       string
	Event     any
	RequestID string
}

// Recorder is an in-memory Publisher for tests. Err, when set, is returned
// from every Publish call after the event has been recorded.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
	Err    error
}

func (r *Recorder) Publish(_ context.Context, key string, event any, reqID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Key: key, Event: event, RequestID: reqID})
	return r.Err
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.events))
	copy(out, r.events)
	return out
}

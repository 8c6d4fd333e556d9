// Package events carries commit outcomes from the interaction controller to
// anything that wants to observe them: the host, a TUI status line, or a
// message bus.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Type is the kind of commit outcome.
type Type string

// Event types.
const (
	Committed Type = "committed"
	Rejected  Type = "rejected"
)

// Event describes one resolved commit.
type Event struct {
	Type   Type      `json:"type"`
	ItemID string    `json:"item_id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`

	// Reason is the commit failure reason. Empty for committed events.
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// JSON returns the event encoded as JSON.
func (e Event) JSON() []byte {
	data, _ := json.Marshal(e)
	return data
}

// Parse decodes an event produced by [Event.JSON].
func Parse(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher receives commit outcomes. Publish must not block for long; the
// controller calls it from the commit goroutine.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

// Publish implements [Publisher].
func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	notify chan struct{}
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

// Publish implements [Publisher].
func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Last returns the most recent event.
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Notify returns a channel that receives after each Publish. Signals are
// coalesced.
func (r *Recorder) Notify() <-chan struct{} { return r.notify }

// Multi fans an event out to several publishers. The first error is
// returned after every publisher has been called.
type Multi []Publisher

// Publish implements [Publisher].
func (m Multi) Publish(ctx context.Context, e Event) error {
	var first error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

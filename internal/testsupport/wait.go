package testsupport

import (
	"context"
	"sync"
	"testing"
	"time"

	"vidtrack/internal/notifications"
)

// WaitFor polls cond until it returns true or the timeout elapses.
func WaitFor(t testing.TB, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out after %s waiting for %s", timeout, what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// RecordingNotifier captures published notifications.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	data   []notifications.Payload
}

// Publish implements notifications.Service.
func (r *RecordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.data = append(r.data, payload)
	return nil
}

// Count returns how many times event was published.
func (r *RecordingNotifier) Count(event notifications.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

// Payloads returns the payloads published for event in order.
func (r *RecordingNotifier) Payloads(event notifications.Event) []notifications.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notifications.Payload
	for i, e := range r.events {
		if e == event {
			out = append(out, r.data[i])
		}
	}
	return out
}

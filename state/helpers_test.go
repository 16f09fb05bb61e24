package state_test

import (
	"context"
	"sync"

	"github.com/tailored-agentic-units/substate/observability"
	"github.com/tailored-agentic-units/substate/state"
)

func nested() map[string]any {
	return map[string]any{
		"foo": map[string]any{
			"bar": map[string]any{"a": 1},
		},
		"baz": map[string]any{"b": 2},
	}
}

// recorder is a Subscriber that keeps every notification it receives.
type recorder struct {
	values    []any
	changes   []state.Change
	errs      []error
	completed int
}

func (r *recorder) Next(value any, change state.Change) {
	r.values = append(r.values, value)
	r.changes = append(r.changes, change)
}

func (r *recorder) Error(err error) {
	r.errs = append(r.errs, err)
}

func (r *recorder) Complete() {
	r.completed++
}

func (r *recorder) last() any {
	if len(r.values) == 0 {
		return nil
	}
	return r.values[len(r.values)-1]
}

type captureObserver struct {
	mu     sync.Mutex
	events []observability.Event
}

func (c *captureObserver) OnEvent(ctx context.Context, event observability.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureObserver) ofType(t observability.EventType) []observability.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []observability.Event
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

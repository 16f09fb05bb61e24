package state

import "github.com/tailored-agentic-units/substate/observability"

// Middleware observes commits broadcast by the node it is registered on. It
// runs after every subscriber has been notified.
type Middleware func(change Change, value any)

// MiddlewareFactory builds a Middleware for the node it is registered on.
type MiddlewareFactory func(n *Node) Middleware

// MiddlewareSource is accepted by RegisterMiddleware and Create: either a
// Middleware or a MiddlewareFactory.
type MiddlewareSource interface {
	Bind(n *Node) Middleware
}

// Bind returns m.
func (m Middleware) Bind(*Node) Middleware {
	return m
}

// Bind invokes the factory with n.
func (f MiddlewareFactory) Bind(n *Node) Middleware {
	if f == nil {
		return nil
	}
	return f(n)
}

// RegisterMiddleware enables edit lists on n and registers each entry,
// invoking factories with n.
//
// Middleware only sees commits broadcast by the node it is registered on.
// Updates through a derived node commit at the root, so middleware on a
// derived node never runs; such registrations are accepted and reported
// through an EventMiddlewareInert warning.
func (n *Node) RegisterMiddleware(entries ...MiddlewareSource) {
	n.EnablePatches()

	registered := 0
	for _, e := range entries {
		if e == nil {
			continue
		}
		if m := e.Bind(n); m != nil {
			n.middleware.add(m)
			registered++
		}
	}

	n.emit(EventMiddlewareRegister, observability.LevelVerbose, map[string]any{
		"registered": registered,
		"total":      n.middleware.len(),
	})
	if n.source != nil && registered > 0 {
		n.emit(EventMiddlewareInert, observability.LevelWarning, map[string]any{
			"source_id": n.source.id,
		})
	}
}

package state

import (
	"sync"

	"github.com/tailored-agentic-units/substate/observability"
)

// Subscriber receives a node's notifications.
type Subscriber interface {
	Next(value any, change Change)
	Error(err error)
	Complete()
}

// Handlers adapts functions to Subscriber. Nil handlers are ignored.
type Handlers struct {
	OnNext     func(value any, change Change)
	OnError    func(err error)
	OnComplete func()
}

func (h Handlers) Next(value any, change Change) {
	if h.OnNext != nil {
		h.OnNext(value, change)
	}
}

func (h Handlers) Error(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

func (h Handlers) Complete() {
	if h.OnComplete != nil {
		h.OnComplete()
	}
}

// Subscription cancels a subscription. Unsubscribe is idempotent and does
// not affect a broadcast already in flight.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	once    sync.Once
	release func()
}

func (s *subscription) Unsubscribe() {
	if s.release != nil {
		s.once.Do(s.release)
	}
}

// Subscribe registers s for the node's notifications.
//
// On a closed node s is completed immediately and the returned Subscription
// does nothing. Otherwise, if the node currently holds a value, s receives it
// synchronously before Subscribe returns.
//
// Subscribing to a derived node subscribes a filtering projection to its
// source, recursively, so the registration ends up on the root: s is
// notified only when its slice of the root value changes.
func (n *Node) Subscribe(s Subscriber) Subscription {
	if s == nil {
		s = Handlers{}
	}
	if n.Closed() {
		s.Complete()
		return &subscription{}
	}
	if n.custom != nil {
		return n.custom(n, s)
	}

	if v := n.Value(); v != nil {
		s.Next(v, Change{})
	}

	id := n.subscribers.add(s)
	n.emit(EventNodeSubscribe, observability.LevelVerbose, map[string]any{
		"subscribers": n.subscribers.len(),
	})

	return &subscription{release: func() {
		if n.subscribers.remove(id) {
			n.emit(EventNodeUnsubscribe, observability.LevelVerbose, map[string]any{
				"subscribers": n.subscribers.len(),
			})
		}
	}}
}

// Next broadcasts value to every current subscriber, then to every
// middleware, in registration order. Commits on a root call it; it is
// exported for nodes driven by a custom subscribe implementation.
func (n *Node) Next(value any, change Change) {
	n.mu.Lock()
	if n.source == nil {
		n.value = value
	}
	closed := n.closed
	n.mu.Unlock()

	if closed {
		return
	}

	for _, s := range n.subscribers.snapshot() {
		s.Next(value, change)
	}
	for _, m := range n.middleware.snapshot() {
		m(change, value)
	}
}

// Error delivers err to every subscriber, then closes the node. Calls after
// the node is closed have no effect.
func (n *Node) Error(err error) {
	subs, ok := n.close()
	if !ok {
		return
	}

	msg := "<nil>"
	if err != nil {
		msg = err.Error()
	}
	n.emit(EventNodeError, observability.LevelError, map[string]any{
		"error":       msg,
		"subscribers": len(subs),
	})

	for _, s := range subs {
		s.Error(err)
	}
}

// Complete notifies every subscriber of completion, then closes the node.
// Calls after the node is closed have no effect.
func (n *Node) Complete() {
	subs, ok := n.close()
	if !ok {
		return
	}

	n.emit(EventNodeComplete, observability.LevelInfo, map[string]any{
		"subscribers": len(subs),
	})

	for _, s := range subs {
		s.Complete()
	}
}

// close marks the node closed and takes its subscribers. It reports false if
// the node was already closed.
func (n *Node) close() ([]Subscriber, bool) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil, false
	}
	n.closed = true
	n.mu.Unlock()

	return n.subscribers.drain(), true
}

package state

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/substate/draft"
	"github.com/tailored-agentic-units/substate/observability"
)

// SubscribeFunc replaces a node's default subscribe behavior. It receives the
// node being subscribed to.
type SubscribeFunc func(n *Node, s Subscriber) Subscription

// Node is an observable, immutable state container.
//
// A root node owns a value snapshot that each commit replaces. A derived node
// (created by Isolate) owns nothing: its value is computed from its source
// through a lens on every access, its writes are forwarded to the source, and
// its subscriptions are filtered projections of the source's subscriptions.
// Every write anywhere in a tree therefore executes as exactly one commit and
// one broadcast at the root.
type Node struct {
	id       string
	observer observability.Observer

	mu      sync.Mutex
	value   any
	tag     string
	patches bool
	closed  bool

	source *Node
	get    getter
	set    setter
	custom SubscribeFunc

	subscribers *registry[Subscriber]
	middleware  *registry[Middleware]
}

// Option configures a Node at construction.
type Option func(*Node)

// WithObserver routes node events to observer. Nodes derived from this node
// inherit it.
func WithObserver(observer observability.Observer) Option {
	return func(n *Node) { n.observer = observer }
}

// WithTag sets the node's debug label.
func WithTag(tag string) Option {
	return func(n *Node) { n.tag = tag }
}

// WithPatches makes every commit on the node produce edit lists.
func WithPatches() Option {
	return func(n *Node) { n.patches = true }
}

// WithSubscribe installs a custom subscribe implementation.
func WithSubscribe(fn SubscribeFunc) Option {
	return func(n *Node) { n.custom = fn }
}

// New creates a root node holding initial. A nil initial value means the
// node has no value yet: subscribers are not notified until the first commit.
//
// Example:
//
//	root := state.New(map[string]any{"count": 1}, state.WithPatches())
//	root.Update(func(d *draft.Draft) error {
//	    d.Set("count", 2)
//	    return nil
//	})
func New(initial any, opts ...Option) *Node {
	n := newNode()
	n.value = initial
	for _, opt := range opts {
		opt(n)
	}
	if n.observer == nil {
		n.observer = observability.NoOpObserver{}
	}

	n.emit(EventNodeCreate, observability.LevelVerbose, map[string]any{
		"patches":   n.patches,
		"has_value": initial != nil,
	})
	return n
}

func newNode() *Node {
	return &Node{
		id:          uuid.New().String(),
		subscribers: newRegistry[Subscriber](),
		middleware:  newRegistry[Middleware](),
	}
}

// ID returns the node's unique identifier.
func (n *Node) ID() string {
	return n.id
}

// Tag returns the node's debug label.
func (n *Node) Tag() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tag
}

// SetTag sets the node's debug label. It has no functional effect.
func (n *Node) SetTag(tag string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tag = tag
}

// Source returns the node this node was derived from, or nil for a root.
func (n *Node) Source() *Node {
	return n.source
}

// Value returns the node's current value. For derived nodes it is computed
// from the source's current value on every call.
func (n *Node) Value() any {
	if n.source != nil {
		return n.get(n.source.Value())
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	return n.value
}

// EnablePatches makes subsequent commits on this node produce edit lists.
// Nodes already derived from it keep the setting they were created with.
func (n *Node) EnablePatches() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.patches = true
}

// PatchesEnabled reports whether commits on this node produce edit lists.
func (n *Node) PatchesEnabled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.patches
}

// Closed reports whether Error or Complete has been called on the node.
func (n *Node) Closed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

// SubscriberCount returns the number of subscribers registered directly on
// this node. Subscriptions to derived nodes register on the root, so a
// derived node normally reports zero.
func (n *Node) SubscriberCount() int {
	return n.subscribers.len()
}

// MiddlewareCount returns the number of middleware registered on this node.
func (n *Node) MiddlewareCount() int {
	return n.middleware.len()
}

// Observable returns the node itself. It marks Node as an Observable.
func (n *Node) Observable() Subscribable {
	return n
}

func (n *Node) produceOptions() []draft.Option {
	if n.PatchesEnabled() {
		return []draft.Option{draft.WithEdits()}
	}
	return nil
}

func (n *Node) emit(t observability.EventType, level observability.Level, data map[string]any) {
	if data == nil {
		data = make(map[string]any, 2)
	}
	data["node_id"] = n.id
	if tag := n.Tag(); tag != "" {
		data["tag"] = tag
	}

	n.observer.OnEvent(context.Background(), observability.Event{
		Type:      t,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "state",
		Data:      data,
	})
}

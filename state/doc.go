// Package state provides a hierarchical, observable, immutable state tree.
//
// A root Node holds a value. Isolate derives read/write views onto nested
// parts of that value through lenses; derived nodes can be isolated further.
// Every Update, wherever it is called, becomes a single commit at the root,
// and the commit is fanned back out to exactly the subscribers whose slice of
// the value changed.
//
// # Values
//
// Values are JSON-like trees of map[string]any, []any and leaves, committed
// through package draft. Committed values are never mutated; untouched
// subtrees are shared between versions, so identity comparisons are a valid
// change test.
//
//	root := state.New(map[string]any{
//	    "foo": map[string]any{"bar": map[string]any{"a": 1}},
//	    "baz": map[string]any{"b": 2},
//	})
//	bar := root.Isolate(state.Key("foo")).Isolate(state.Key("bar"))
//
//	bar.Update(func(d *draft.Draft) error {
//	    d.Set("a", 4)
//	    return nil
//	})
//	// root.Value() now holds foo.bar == {a: 4}; baz is the same map as before.
//
// # Subscriptions
//
// Subscribe delivers the current value synchronously, then every change.
// Subscriptions on derived nodes register filtering projections on the root
// and only fire when the projected value is not shallow-equal to the
// previous projection.
//
// # Edit Lists and Middleware
//
// With patches enabled (WithPatches, EnablePatches, Create or
// RegisterMiddleware), each commit carries forward and inverse edit lists.
// Middleware receives them after subscribers are notified.
//
// # Concurrency
//
// Updates and broadcasts are synchronous and run on the caller's goroutine.
// Registries are safe to modify from any goroutine, and no lock is held
// while subscribers or middleware run, so handlers may call back into the
// tree. Concurrent Update calls on one tree must be serialized by the
// caller.
package state

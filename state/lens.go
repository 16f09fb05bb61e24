package state

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/tailored-agentic-units/substate/draft"
	"github.com/tailored-agentic-units/substate/observability"
)

type getter func(parent any) any

type setter func(parent *draft.Draft, child any, edits []draft.Edit) error

// Lens focuses a parent value on a child value and writes a child value back
// into a parent draft. Lenses are built with Key, Index or Custom.
type Lens interface {
	// resolve returns the lens's accessor pair; ok is false for a lens that
	// cannot focus anything.
	resolve() (get getter, set setter, ok bool)
	String() string
}

type keyLens string

// Key focuses the object member named k. A blank k is not a valid lens.
func Key(k string) Lens {
	return keyLens(k)
}

func (k keyLens) String() string {
	return string(k)
}

func (k keyLens) resolve() (getter, setter, bool) {
	if strings.TrimSpace(string(k)) == "" {
		return nil, nil, false
	}
	key := string(k)

	get := func(parent any) any {
		if m, ok := parent.(map[string]any); ok {
			return m[key]
		}
		return nil
	}
	set := func(parent *draft.Draft, child any, _ []draft.Edit) error {
		parent.Set(key, child)
		return parent.Err()
	}
	return get, set, true
}

type indexLens int

// Index focuses the array element at i. A negative i is not a valid lens.
func Index(i int) Lens {
	return indexLens(i)
}

func (i indexLens) String() string {
	return "[" + strconv.Itoa(int(i)) + "]"
}

func (i indexLens) resolve() (getter, setter, bool) {
	if i < 0 {
		return nil, nil, false
	}
	idx := int(i)

	get := func(parent any) any {
		if sl, ok := parent.([]any); ok && idx < len(sl) {
			return sl[idx]
		}
		return nil
	}
	set := func(parent *draft.Draft, child any, _ []draft.Edit) error {
		parent.Set(idx, child)
		return parent.Err()
	}
	return get, set, true
}

// Custom is a lens built from functions.
//
// Get reads the child from a parent value and is required. Set writes a
// whole child value into a parent draft. Focus, when provided, returns the
// draft location Get reads from; writes then replay the child's edits (or
// reconcile the child's members when edits are unavailable) at that location
// instead of replacing the child wholesale, which keeps the parent's edit
// list as fine-grained as the child's. A child commit that replaced the whole
// value is written through Set when there is one.
type Custom struct {
	Name  string
	Get   func(parent any) any
	Set   func(parent *draft.Draft, child any) error
	Focus func(parent *draft.Draft) *draft.Draft
}

func (c Custom) String() string {
	if c.Name != "" {
		return c.Name
	}
	return "custom"
}

func (c Custom) resolve() (getter, setter, bool) {
	if c.Get == nil {
		return nil, nil, false
	}
	return c.Get, c.write, true
}

func (c Custom) write(parent *draft.Draft, child any, edits []draft.Edit) error {
	var dest *draft.Draft
	if c.Focus != nil {
		dest = c.Focus(parent)
	}
	wholesale := len(edits) == 1 && edits[0].IsRoot()

	switch {
	case c.Set != nil && (wholesale || dest == nil):
		return c.Set(parent, child)
	case dest == nil:
		return ErrReadOnlyLens
	case wholesale:
		dest.Replace(child)
	case edits != nil:
		return dest.Apply(edits)
	default:
		reconcile(dest, child)
	}
	return dest.Err()
}

// reconcile makes dest equal to next by member: keys missing from next are
// removed and the rest assigned. Arrays are resized and assigned by index.
// Values of any other kind, or of a different kind than dest, replace dest.
func reconcile(dest *draft.Draft, next any) {
	switch nv := next.(type) {
	case map[string]any:
		cur, ok := dest.Value().(map[string]any)
		if !ok {
			dest.Replace(next)
			return
		}
		for _, k := range slices.Sorted(maps.Keys(cur)) {
			if _, keep := nv[k]; !keep {
				dest.Delete(k)
			}
		}
		for _, k := range slices.Sorted(maps.Keys(nv)) {
			dest.Set(k, nv[k])
		}
	case []any:
		cur, ok := dest.Value().([]any)
		if !ok {
			dest.Replace(next)
			return
		}
		for i := len(cur) - 1; i >= len(nv); i-- {
			dest.Delete(i)
		}
		for i, v := range nv {
			dest.Set(i, v)
		}
	default:
		dest.Replace(next)
	}
}

// Isolate derives a node focused on the part of n's value selected by l.
//
// A nil lens, a blank Key, a negative Index, or a Custom lens without Get
// returns n itself. The derived node copies n's patch setting and observer
// at the time of the call.
//
// Example:
//
//	foo := root.Isolate(state.Key("foo"))
//	bar := foo.Isolate(state.Custom{
//	    Get: func(p any) any { return p.(map[string]any)["bar"] },
//	    Set: func(d *draft.Draft, v any) error { d.Set("bar", v); return nil },
//	})
func (n *Node) Isolate(l Lens) *Node {
	if l == nil {
		return n
	}
	get, set, ok := l.resolve()
	if !ok {
		return n
	}

	child := newNode()
	child.observer = n.observer
	child.source = n
	child.get = get
	child.set = set
	child.patches = n.PatchesEnabled()
	child.custom = project(n, get)

	child.emit(EventNodeIsolate, observability.LevelVerbose, map[string]any{
		"source_id": n.id,
		"lens":      l.String(),
	})
	return child
}

// project subscribes to source on behalf of s, forwarding only projections
// that differ from the previous one seen by this subscription.
func project(source *Node, get getter) SubscribeFunc {
	return func(_ *Node, s Subscriber) Subscription {
		var prev any
		return source.Subscribe(Handlers{
			OnNext: func(value any, _ Change) {
				next := get(value)
				if draft.ShallowEqual(next, prev) {
					return
				}
				prev = next
				s.Next(next, Change{})
			},
			OnError:    s.Error,
			OnComplete: s.Complete,
		})
	}
}

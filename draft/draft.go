// Package draft turns a mutation callback into the next immutable value of a
// JSON-like tree, optionally describing the transition as forward and
// inverse edit lists.
//
// Values are trees of map[string]any objects, []any arrays and leaves. A
// commit never mutates its base: only the containers on a written path are
// cloned, once per commit, and every untouched container is shared with the
// next value, so untouched subtrees keep their identity.
//
//	res, err := draft.Produce(base, func(d *draft.Draft) error {
//	    d.At("baz").Set("b", 3)
//	    return nil
//	}, draft.WithEdits())
//
// res.Edits is [{/baz/b replace 3}] and res.Inverse is [{/baz/b replace 2}].
package draft

// Draft is a mutable view of a value being committed, scoped at a path
// inside the commit's root. Drafts are only valid inside the Recipe that
// received them.
//
// The first failing operation records an error that fails the whole commit;
// subsequent operations are no-ops. Values read from a draft are shared with
// it and must be treated as read-only.
type Draft struct {
	s    *session
	base Path
}

// Recipe mutates a draft. Returning an error aborts the commit.
type Recipe func(d *Draft) error

// Result is the outcome of a commit.
type Result struct {
	Value   any
	Edits   []Edit
	Inverse []Edit
}

type options struct {
	edits bool
}

// Option configures Produce.
type Option func(*options)

// WithEdits makes Produce return forward and inverse edit lists.
func WithEdits() Option {
	return func(o *options) { o.edits = true }
}

// Produce runs recipe against a draft of base and returns the next value.
//
// If the recipe changes nothing, Result.Value is base itself. If the recipe
// fails, the error is returned unchanged and base is untouched. Without
// WithEdits, Result.Edits and Result.Inverse are nil; with it they are
// non-nil, possibly empty.
func Produce(base any, recipe Recipe, opts ...Option) (Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := newSession(base)
	if recipe != nil {
		if err := recipe(&Draft{s: s, base: Path{}}); err != nil {
			return Result{}, err
		}
	}
	if s.err != nil {
		return Result{}, s.err
	}

	res := Result{Value: s.root}
	if len(s.edits) == 0 {
		res.Value = base
	}
	if o.edits {
		res.Edits = append([]Edit{}, s.edits...)
		res.Inverse = s.backward()
	}
	return res, nil
}

// Apply replays edits against base in order and returns the resulting value.
func Apply(base any, edits []Edit) (any, error) {
	res, err := Produce(base, func(d *Draft) error {
		return d.Apply(edits)
	})
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// Err returns the first error recorded by the commit this draft belongs to.
func (d *Draft) Err() error {
	return d.s.err
}

// Path returns the location of this draft inside the commit's root.
func (d *Draft) Path() Path {
	return d.base.with()
}

// At returns a draft scoped at keys below d. The location need not exist yet;
// writes through the returned draft create missing objects and arrays.
func (d *Draft) At(keys ...Key) *Draft {
	return &Draft{s: d.s, base: d.base.with(normalizePath(keys)...)}
}

// Value returns the current value at the draft's location, or nil.
func (d *Draft) Value() any {
	v, _ := d.s.lookup(d.base)
	return v
}

// Exists reports whether the draft's location currently holds a value.
func (d *Draft) Exists() bool {
	_, ok := d.s.lookup(d.base)
	return ok
}

// Lookup returns the member under key and whether it exists.
func (d *Draft) Lookup(key Key) (any, bool) {
	return d.s.lookup(d.base.with(normalizeKey(key)))
}

// Get returns the member under key, or nil.
func (d *Draft) Get(key Key) any {
	v, _ := d.Lookup(key)
	return v
}

// Len returns the number of members of the object or array at the draft's
// location, and 0 for anything else.
func (d *Draft) Len() int {
	switch v := d.Value().(type) {
	case map[string]any:
		return len(v)
	case []any:
		return len(v)
	}
	return 0
}

// Set assigns value under key. For arrays, an index equal to the length
// appends. An absent location becomes an object (string key) or array (int
// key). Assigning the current value is a no-op.
func (d *Draft) Set(key Key, value any) {
	if d.s.err != nil {
		return
	}
	d.s.fail(d.s.set(d.base, key, value))
}

// Delete removes key. Array elements above the index shift down. Deleting
// an absent key is a no-op.
func (d *Draft) Delete(key Key) {
	if d.s.err != nil {
		return
	}
	d.s.fail(d.s.remove(d.base, key))
}

// Append adds value to the end of the array at the draft's location.
func (d *Draft) Append(value any) {
	if d.s.err != nil {
		return
	}
	n := 0
	if sl, ok := d.Value().([]any); ok {
		n = len(sl)
	}
	d.s.fail(d.s.set(d.base, n, value))
}

// Replace swaps the whole value at the draft's location.
func (d *Draft) Replace(value any) {
	if d.s.err != nil {
		return
	}
	d.s.fail(d.s.replace(d.base, value))
}

// Apply replays edits, whose paths are relative to the draft's location.
func (d *Draft) Apply(edits []Edit) error {
	for _, e := range edits {
		if d.s.err != nil {
			break
		}
		d.s.fail(d.s.apply(d.base, e))
	}
	return d.s.err
}

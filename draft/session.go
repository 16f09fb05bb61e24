package draft

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// session holds the copy-on-write state of one commit. Containers in owned
// were allocated by this session and may be mutated in place; everything
// else is shared with the base value and must be cloned before writing.
type session struct {
	root    any
	owned   map[uintptr]struct{}
	edits   []Edit
	inverse []Edit
	err     error
}

func newSession(base any) *session {
	return &session{
		root:  base,
		owned: make(map[uintptr]struct{}),
	}
}

func (s *session) fail(err error) {
	if err != nil && s.err == nil {
		s.err = err
	}
}

func (s *session) record(forward, inverse Edit) {
	s.edits = append(s.edits, forward)
	s.inverse = append(s.inverse, inverse)
}

// backward returns the inverse edits in application order.
func (s *session) backward() []Edit {
	out := make([]Edit, len(s.inverse))
	for i, e := range s.inverse {
		out[len(out)-1-i] = e
	}
	return out
}

func (s *session) isOwned(v any) bool {
	_, ok := s.owned[reflect.ValueOf(v).Pointer()]
	return ok
}

func (s *session) own(v any) {
	s.owned[reflect.ValueOf(v).Pointer()] = struct{}{}
}

func (s *session) lookup(path Path) (any, bool) {
	cur := s.root
	for _, k := range path {
		next, ok := child(cur, k)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// adopt returns an owned copy of container v, or a new container shaped for
// hint when v is absent. created reports the latter.
func (s *session) adopt(v any, hint Key) (owned any, created bool, err error) {
	switch c := v.(type) {
	case map[string]any:
		if c != nil && s.isOwned(c) {
			return c, false, nil
		}
		cl := make(map[string]any, len(c)+1)
		maps.Copy(cl, c)
		s.own(cl)
		return cl, false, nil
	case []any:
		if cap(c) > 0 && s.isOwned(c) {
			return c, false, nil
		}
		cl := make([]any, len(c), len(c)+1)
		copy(cl, c)
		s.own(cl)
		return cl, false, nil
	case nil:
		switch hint.(type) {
		case string:
			m := make(map[string]any)
			s.own(m)
			return m, true, nil
		case int:
			sl := make([]any, 0, 1)
			s.own(sl)
			return sl, true, nil
		}
		return nil, false, ErrKeyType
	}
	return nil, false, ErrNotContainer
}

// put replaces the value at path. Every container above path must already
// be owned and path itself must exist.
func (s *session) put(path Path, v any) {
	if len(path) == 0 {
		s.root = v
		return
	}
	parent, _ := s.lookup(path[:len(path)-1])
	switch c := parent.(type) {
	case map[string]any:
		c[path[len(path)-1].(string)] = v
	case []any:
		c[path[len(path)-1].(int)] = v
	}
}

// attach stores value under k in the owned container found at parentPath.
// Appending to a slice re-homes the grown slice at parentPath.
func (s *session) attach(parentPath Path, parent any, k Key, value any) error {
	switch c := parent.(type) {
	case map[string]any:
		key, ok := k.(string)
		if !ok {
			return ErrKeyType
		}
		c[key] = value
		return nil
	case []any:
		i, ok := k.(int)
		if !ok {
			return ErrKeyType
		}
		switch {
		case i >= 0 && i < len(c):
			c[i] = value
			return nil
		case i == len(c):
			s.resize(parentPath, append(c, value))
			return nil
		}
		return ErrIndexOutOfRange
	}
	return ErrNotContainer
}

// resize re-homes an owned slice whose length changed.
func (s *session) resize(path Path, next []any) {
	if cap(next) > 0 && !s.isOwned(next) {
		s.own(next)
	}
	s.put(path, next)
}

// container returns an owned container at path, cloning shared containers
// and creating absent ones along the way. hint is the key the caller will
// use on the returned container.
func (s *session) container(path Path, hint Key) (any, error) {
	hintAt := func(i int) Key {
		if i < len(path) {
			return path[i]
		}
		return hint
	}

	v, created, err := s.adopt(s.root, hintAt(0))
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", Path{}, err)
	}
	if created {
		s.record(
			Edit{Path: Path{}, Op: OpReplace, Value: empty(v)},
			Edit{Path: Path{}, Op: OpReplace, Value: s.root},
		)
	}
	s.root = v

	for i, k := range path {
		at := path[:i+1].with()
		cur, _ := child(v, k)
		next, created, err := s.adopt(cur, hintAt(i+1))
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", at, err)
		}
		if err := s.attach(path[:i], v, k, next); err != nil {
			return nil, fmt.Errorf("write %s: %w", at, err)
		}
		if created {
			s.record(
				Edit{Path: at, Op: OpAdd, Value: empty(next)},
				Edit{Path: at, Op: OpRemove},
			)
		}
		v = next
	}
	return v, nil
}

func (s *session) set(base Path, key Key, value any) error {
	key = normalizeKey(key)
	path := base.with(key)
	old, existed := s.lookup(path)
	if existed && Identical(old, value) {
		return nil
	}

	c, err := s.container(base, key)
	if err != nil {
		return err
	}
	if err := s.attach(base, c, key, value); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}

	if existed {
		s.record(Edit{Path: path, Op: OpReplace, Value: value}, Edit{Path: path, Op: OpReplace, Value: old})
	} else {
		s.record(Edit{Path: path, Op: OpAdd, Value: value}, Edit{Path: path, Op: OpRemove})
	}
	return nil
}

// insert adds value at key. Inside arrays the elements at and above the
// index shift up; elsewhere it behaves as set.
func (s *session) insert(base Path, key Key, value any) error {
	key = normalizeKey(key)
	path := base.with(key)

	parent, _ := s.lookup(base)
	sl, isSlice := parent.([]any)
	i, isIndex := key.(int)
	if !isSlice || !isIndex || i == len(sl) {
		return s.set(base, key, value)
	}
	if i < 0 || i > len(sl) {
		return fmt.Errorf("add %s: %w", path, ErrIndexOutOfRange)
	}

	c, err := s.container(base, key)
	if err != nil {
		return err
	}
	s.resize(base, slices.Insert(c.([]any), i, value))
	s.record(Edit{Path: path, Op: OpAdd, Value: value}, Edit{Path: path, Op: OpRemove})
	return nil
}

func (s *session) remove(base Path, key Key) error {
	key = normalizeKey(key)
	path := base.with(key)
	old, ok := s.lookup(path)
	if !ok {
		return nil
	}

	c, err := s.container(base, key)
	if err != nil {
		return err
	}

	switch c := c.(type) {
	case map[string]any:
		delete(c, key.(string))
	case []any:
		i := key.(int)
		s.resize(base, slices.Delete(c, i, i+1))
	}
	s.record(Edit{Path: path, Op: OpRemove}, Edit{Path: path, Op: OpAdd, Value: old})
	return nil
}

func (s *session) replace(base Path, value any) error {
	if len(base) > 0 {
		return s.set(base[:len(base)-1], base[len(base)-1], value)
	}
	old := s.root
	if Identical(old, value) {
		return nil
	}
	s.root = value
	s.record(Edit{Path: Path{}, Op: OpReplace, Value: value}, Edit{Path: Path{}, Op: OpReplace, Value: old})
	return nil
}

func (s *session) apply(base Path, e Edit) error {
	p := normalizePath(e.Path)
	if len(p) == 0 {
		switch e.Op {
		case OpAdd, OpReplace:
			return s.replace(base, e.Value)
		case OpRemove:
			return s.replace(base, nil)
		}
		return fmt.Errorf("%s %s: %w", e.Op, p, ErrUnknownOp)
	}

	parent := base.with(p[:len(p)-1]...)
	key := p[len(p)-1]
	switch e.Op {
	case OpAdd:
		return s.insert(parent, key, e.Value)
	case OpReplace:
		return s.set(parent, key, e.Value)
	case OpRemove:
		return s.remove(parent, key)
	}
	return fmt.Errorf("%s %s: %w", e.Op, p, ErrUnknownOp)
}

func child(container any, k Key) (any, bool) {
	switch c := container.(type) {
	case map[string]any:
		key, ok := k.(string)
		if !ok {
			return nil, false
		}
		v, ok := c[key]
		return v, ok
	case []any:
		i, ok := k.(int)
		if !ok || i < 0 || i >= len(c) {
			return nil, false
		}
		return c[i], true
	}
	return nil, false
}

func empty(container any) any {
	if _, ok := container.([]any); ok {
		return []any{}
	}
	return map[string]any{}
}

package draft

import (
	"fmt"
	"math"
	"strings"
)

// Key addresses one level of a value tree: a string for object fields and an
// int for array indices.
type Key = any

// Path is a sequence of keys from the root of a value to a nested value.
// An empty Path addresses the value itself.
type Path []Key

// String renders the path in JSON Pointer form, e.g. "/foo/0/bar".
func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, k := range p {
		b.WriteByte('/')
		fmt.Fprint(&b, k)
	}
	return b.String()
}

// with returns a new Path extending p. The receiver is never aliased.
func (p Path) with(keys ...Key) Path {
	out := make(Path, 0, len(p)+len(keys))
	out = append(out, p...)
	return append(out, keys...)
}

// Op identifies the kind of an Edit.
type Op string

const (
	OpAdd     Op = "add"
	OpReplace Op = "replace"
	OpRemove  Op = "remove"
)

// Edit is one path-scoped operation in a forward or inverse edit list.
type Edit struct {
	Path  Path `json:"path"`
	Op    Op   `json:"op"`
	Value any  `json:"value,omitempty"`
}

// IsRoot reports whether the edit targets the whole value.
func (e Edit) IsRoot() bool {
	return len(e.Path) == 0
}

// normalizeKey converts numeric keys decoded from JSON or YAML documents
// into int indices.
func normalizeKey(k Key) Key {
	switch v := k.(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	case float32:
		if f := float64(v); f == math.Trunc(f) {
			return int(f)
		}
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
	}
	return k
}

func normalizePath(p Path) Path {
	out := make(Path, len(p))
	for i, k := range p {
		out[i] = normalizeKey(k)
	}
	return out
}

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tailored-agentic-units/substate/draft"
	"github.com/tailored-agentic-units/substate/state"
)

// parsePath splits a dotted path into keys. Non-negative integer segments
// become array indices. An empty path, or ".", addresses the document root.
func parsePath(p string) ([]draft.Key, error) {
	if p == "" || p == "." {
		return nil, nil
	}

	parts := strings.Split(p, ".")
	keys := make([]draft.Key, len(parts))
	for i, part := range parts {
		if strings.TrimSpace(part) == "" {
			return nil, fmt.Errorf("invalid path %q: empty segment", p)
		}
		if n, err := strconv.Atoi(part); err == nil && n >= 0 {
			keys[i] = n
			continue
		}
		keys[i] = part
	}
	return keys, nil
}

// focus is a lens onto the member at k. Writes replay the child's edits at
// that member, so commits keep paths down to the leaf that changed.
func focus(k draft.Key) state.Lens {
	return state.Custom{
		Name: fmt.Sprint(k),
		Get: func(parent any) any {
			switch c := parent.(type) {
			case map[string]any:
				if s, ok := k.(string); ok {
					return c[s]
				}
			case []any:
				if i, ok := k.(int); ok && i < len(c) {
					return c[i]
				}
			}
			return nil
		},
		Focus: func(d *draft.Draft) *draft.Draft {
			return d.At(k)
		},
	}
}

func resolve(root *state.Node, keys []draft.Key) *state.Node {
	n := root
	for _, k := range keys {
		n = n.Isolate(focus(k))
	}
	return n
}

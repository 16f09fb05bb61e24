// Package history records the edit lists of a root node's commits and
// replays them to undo and redo.
//
// A History is bound to a node by registering its middleware:
//
//	h := history.New(100)
//	root := state.Create(initial, h.Middleware())
//	...
//	if h.CanUndo() {
//	    h.Undo()
//	}
//
// Undo and Redo commit through Node.Update, so subscribers observe them like
// any other change.
package history

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tailored-agentic-units/substate/draft"
	"github.com/tailored-agentic-units/substate/state"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrUnbound       = errors.New("history is not bound to a node")
)

type step struct {
	edits   []draft.Edit
	inverse []draft.Edit
}

// History is an undo/redo stack over one node's commits.
type History struct {
	mu        sync.Mutex
	limit     int
	node      *state.Node
	undo      []step
	redo      []step
	replaying bool
}

// New creates a History keeping at most limit undo steps. A limit of zero
// or less keeps every step.
func New(limit int) *History {
	return &History{limit: limit}
}

// Middleware returns a factory that binds h to the node it is registered on
// and records that node's commits. Binding again moves h to the new node
// and clears both stacks; commits of a previously bound node are ignored.
func (h *History) Middleware() state.MiddlewareFactory {
	return func(n *state.Node) state.Middleware {
		h.mu.Lock()
		if h.node != n {
			h.undo, h.redo = nil, nil
		}
		h.node = n
		h.mu.Unlock()

		return func(change state.Change, _ any) {
			h.record(n, change)
		}
	}
}

func (h *History) record(n *state.Node, change state.Change) {
	if len(change.Edits) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.replaying || h.node != n {
		return
	}
	h.undo = append(h.undo, step{edits: change.Edits, inverse: change.Inverse})
	if h.limit > 0 && len(h.undo) > h.limit {
		h.undo = h.undo[len(h.undo)-h.limit:]
	}
	h.redo = nil
}

// Undo reverts the most recent recorded commit.
func (h *History) Undo() error {
	return h.replay(&h.undo, &h.redo, ErrNothingToUndo, func(s step) []draft.Edit { return s.inverse })
}

// Redo re-applies the most recently undone commit.
func (h *History) Redo() error {
	return h.replay(&h.redo, &h.undo, ErrNothingToRedo, func(s step) []draft.Edit { return s.edits })
}

func (h *History) replay(from, to *[]step, empty error, edits func(step) []draft.Edit) error {
	h.mu.Lock()
	if h.node == nil {
		h.mu.Unlock()
		return ErrUnbound
	}
	if len(*from) == 0 {
		h.mu.Unlock()
		return empty
	}
	s := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]
	node := h.node
	h.replaying = true
	h.mu.Unlock()

	_, err := node.Update(func(d *draft.Draft) error {
		return d.Apply(edits(s))
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	h.replaying = false
	if err != nil {
		*from = append(*from, s)
		return fmt.Errorf("replay failed: %w", err)
	}
	*to = append(*to, s)
	return nil
}

// CanUndo reports whether Undo has a step to revert.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0
}

// CanRedo reports whether Redo has a step to re-apply.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

// Len returns the number of undo and redo steps held.
func (h *History) Len() (undo, redo int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo), len(h.redo)
}

// Clear drops every recorded step.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo, h.redo = nil, nil
}

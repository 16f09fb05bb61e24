package state

import (
	"github.com/tailored-agentic-units/substate/draft"
	"github.com/tailored-agentic-units/substate/observability"
)

// Mutator mutates a draft of a node's current value in place, or replaces
// it through d.Replace. Returning an error aborts the update.
type Mutator func(d *draft.Draft) error

// Change describes a commit. Edits and Inverse are nil when the committing
// node does not produce edit lists.
type Change struct {
	Edits   []draft.Edit
	Inverse []draft.Edit
}

// Result is returned by Update: the node's next value and the edits of the
// commit performed on it.
type Result struct {
	Value any
	Change
}

// Update commits m against the node's current value.
//
// On a root node the next value is stored and broadcast to subscribers, then
// to middleware, before Update returns. On a derived node nothing is stored
// locally: the next value is written into the source through the lens, which
// recurses until the root commits, so a write through any number of derived
// nodes yields exactly one broadcast.
//
// A failing mutator leaves the state unchanged and its error is returned as
// is.
func (n *Node) Update(m Mutator) (Result, error) {
	res, err := draft.Produce(n.Value(), draft.Recipe(m), n.produceOptions()...)
	if err != nil {
		n.emit(EventNodeCommitFailed, observability.LevelWarning, map[string]any{
			"error": err.Error(),
		})
		return Result{}, err
	}
	change := Change{Edits: res.Edits, Inverse: res.Inverse}

	if n.source != nil {
		_, err := n.source.Update(func(d *draft.Draft) error {
			return n.set(d, res.Value, res.Edits)
		})
		if err != nil {
			return Result{}, err
		}
		return Result{Value: res.Value, Change: change}, nil
	}

	n.mu.Lock()
	n.value = res.Value
	n.mu.Unlock()

	n.emit(EventNodeCommit, observability.LevelVerbose, map[string]any{
		"edits":       len(res.Edits),
		"subscribers": n.subscribers.len(),
	})
	n.Next(res.Value, change)

	return Result{Value: res.Value, Change: change}, nil
}

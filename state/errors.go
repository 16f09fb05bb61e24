package state

import "errors"

// ErrReadOnlyLens is returned by Update on a node derived through a Custom
// lens that has no Set function and no Focus to write through.
var ErrReadOnlyLens = errors.New("lens cannot write to its source")

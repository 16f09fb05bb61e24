package draft

import "errors"

// Sentinel errors for draft operations. Returned errors wrap these with the
// operation and path that failed.
var (
	ErrNotContainer    = errors.New("value is not an object or array")
	ErrKeyType         = errors.New("key type does not match container")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrUnknownOp       = errors.New("unknown edit operation")
)

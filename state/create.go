package state

// Create returns a root node holding initial with edit lists enabled and
// the given middleware registered.
func Create(initial any, middleware ...MiddlewareSource) *Node {
	n := New(initial, WithPatches())
	if len(middleware) > 0 {
		n.RegisterMiddleware(middleware...)
	}
	return n
}

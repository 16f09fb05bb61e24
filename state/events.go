package state

import "github.com/tailored-agentic-units/substate/observability"

const (
	// Node lifecycle
	EventNodeCreate   observability.EventType = "node.create"
	EventNodeIsolate  observability.EventType = "node.isolate"
	EventNodeError    observability.EventType = "node.error"
	EventNodeComplete observability.EventType = "node.complete"

	// Commits
	EventNodeCommit       observability.EventType = "node.commit"
	EventNodeCommitFailed observability.EventType = "node.commit.failed"

	// Subscriptions
	EventNodeSubscribe   observability.EventType = "node.subscribe"
	EventNodeUnsubscribe observability.EventType = "node.unsubscribe"

	// Middleware
	EventMiddlewareRegister observability.EventType = "node.middleware"
	EventMiddlewareInert    observability.EventType = "node.middleware.inert"
)

package core

import "context"

// BaseNode defines the core interface for all nodes in the workflow.
// It follows the three-phase execution model: Prep -> Exec -> Post.
//
// Type parameters:
//   - State: the shared state passed through the workflow
//   - PrepResult: the type returned by Prep and consumed by Exec
//   - ExecResult: the type returned by Exec and consumed by Post
type BaseNode[State any, PrepResult any, ExecResult any] interface {
	// Prep reads from shared state and builds the input for Exec.
	// It must not mutate state.
	Prep(state *State) (PrepResult, error)

	// Exec performs the unit of work. It may be called several times for
	// one Prep result; attempt carries the errors of earlier calls.
	Exec(ctx context.Context, prep PrepResult, attempt Attempt) (ExecResult, error)

	// Post writes validated results to state and selects the next action.
	Post(state *State, prep PrepResult, exec ExecResult) (Action, error)
}

// Fallback is implemented by nodes that can produce a degraded result once
// every exec attempt has failed. Nodes without it halt the flow instead.
type Fallback[PrepResult any, ExecResult any] interface {
	ExecFallback(prep PrepResult, err error) (ExecResult, error)
}

// BatchBaseNode is the batch variant: Prep returns an ordered list of items
// and ExecItem runs once per item, in order.
type BatchBaseNode[State any, Item any, Result any] interface {
	Prep(state *State) ([]Item, error)

	// ExecItem processes one item. prior holds the results of the items
	// before it, in order, and nothing else.
	ExecItem(ctx context.Context, item Item, prior []Result, attempt Attempt) (Result, error)

	// Post receives one result per item, aligned with items.
	Post(state *State, items []Item, results []Result) (Action, error)
}

// ItemFallback is the per-item counterpart of Fallback.
type ItemFallback[Item any, Result any] interface {
	ItemFallback(item Item, err error) (Result, error)
}

// Workflow represents a unit of execution that can be connected to other workflows.
// Both Node and Flow implement this interface, enabling composition.
type Workflow[State any] interface {
	// Name identifies the workflow in logs, spans and errors.
	Name() string

	// Run executes the workflow and returns an action for routing.
	// A non-nil error is always a *FatalError and halts the enclosing flow.
	Run(ctx context.Context, state *State) (Action, error)

	// GetSuccessor returns the successor workflow for a given action.
	GetSuccessor(action Action) Workflow[State]

	// AddSuccessor connects a successor workflow for a specific action.
	// Returns the successor for chaining.
	AddSuccessor(successor Workflow[State], action ...Action) Workflow[State]
}

package core

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/pocketomega/repotutor/internal/observability"
)

// maxFlowIterations is an independent safety cap on the number of node
// transitions per Run call. It guards against misconfigured successor
// graphs that revisit nodes forever.
const maxFlowIterations = 200

// Flow orchestrates the execution of connected workflows using action-based routing.
// It implements the Workflow interface, allowing flows to be nested.
type Flow[State any] struct {
	links[State]
	name      string
	startNode Workflow[State]
	runID     string
}

// NewFlow creates a new Flow with the given start node.
func NewFlow[State any](name string, startNode Workflow[State]) *Flow[State] {
	return &Flow[State]{name: name, startNode: startNode}
}

// Name implements Workflow.
func (f *Flow[State]) Name() string { return f.name }

// WithRunID tags the flow's trace span with a run identifier.
func (f *Flow[State]) WithRunID(id string) *Flow[State] {
	f.runID = id
	return f
}

// Run implements Workflow.Run. It executes the chain of workflows.
//
// The chain ends when the current node's action has no successor, either on
// the node itself or at flow level. A FatalError from any node halts the
// chain and is returned unchanged.
func (f *Flow[State]) Run(ctx context.Context, state *State) (Action, error) {
	start := time.Now()
	ctx, span := observability.StartRunSpan(ctx, f.name, f.runID)
	action, err := f.run(ctx, state)
	observability.EndSpanWithError(span, err)
	observability.NewMetricsRecorder().RecordRun(ctx, err == nil, time.Since(start))
	return action, err
}

func (f *Flow[State]) run(ctx context.Context, state *State) (Action, error) {
	current := f.startNode
	if current == nil {
		log.Printf("[Flow] %s: started with no start node", f.name)
		return ActionFailure, &FatalError{Node: f.name, Err: errors.New("flow has no start node")}
	}

	lastAction := ActionDefault
	for i := 0; current != nil; i++ {
		if i >= maxFlowIterations {
			log.Printf("[Flow] %s: maxFlowIterations (%d) reached, aborting", f.name, maxFlowIterations)
			return ActionFailure, &FatalError{Node: f.name, Err: errors.New("too many node transitions")}
		}

		// Check context cancellation between node transitions
		if err := ctx.Err(); err != nil {
			log.Printf("[Flow] %s: context cancelled before %s: %v", f.name, current.Name(), err)
			return ActionFailure, &FatalError{Node: current.Name(), Err: err}
		}

		action, err := current.Run(ctx, state)
		if err != nil {
			log.Printf("[Flow] %s: halted at %s: %v", f.name, current.Name(), err)
			return ActionFailure, fatal(current.Name(), 0, err)
		}
		lastAction = action

		// Look for successor in current node first, then flow-level
		next := current.GetSuccessor(action)
		if next == nil {
			next = f.GetSuccessor(action)
		}
		current = next
	}
	return lastAction, nil
}

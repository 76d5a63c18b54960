package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pocketomega/repotutor/internal/observability"
)

// links holds the action → successor table shared by nodes and flows.
type links[State any] struct {
	successors map[Action]Workflow[State]
}

// AddSuccessor connects a successor workflow for a given action.
// With no action the successor is registered for ActionDefault.
func (l *links[State]) AddSuccessor(workflow Workflow[State], action ...Action) Workflow[State] {
	if workflow == nil {
		return workflow
	}
	if l.successors == nil {
		l.successors = make(map[Action]Workflow[State])
	}
	if len(action) == 0 {
		l.successors[ActionDefault] = workflow
	} else {
		l.successors[action[0]] = workflow
	}
	return workflow
}

// GetSuccessor returns the successor for the given action.
func (l *links[State]) GetSuccessor(action Action) Workflow[State] {
	return l.successors[action]
}

// Node wraps a BaseNode implementation with retry logic and successor routing.
// It implements the Workflow interface.
type Node[State any, PrepResult any, ExecResult any] struct {
	links[State]
	name   string
	node   BaseNode[State, PrepResult, ExecResult]
	policy RetryPolicy
}

// NewNode creates a new Node wrapping the given BaseNode implementation.
func NewNode[State any, PrepResult any, ExecResult any](
	name string,
	basenode BaseNode[State, PrepResult, ExecResult],
	policy RetryPolicy,
) *Node[State, PrepResult, ExecResult] {
	return &Node[State, PrepResult, ExecResult]{
		name:   name,
		node:   basenode,
		policy: policy.normalized(),
	}
}

// Name implements Workflow.
func (n *Node[State, PrepResult, ExecResult]) Name() string { return n.name }

// Policy returns the node's normalized retry policy.
func (n *Node[State, PrepResult, ExecResult]) Policy() RetryPolicy { return n.policy }

// Run implements Workflow.Run. It executes the full Prep → Exec → Post lifecycle.
func (n *Node[State, PrepResult, ExecResult]) Run(ctx context.Context, state *State) (Action, error) {
	start := time.Now()
	ctx, span := observability.StartNodeSpan(ctx, n.name)
	action, attempts, err := n.run(ctx, state)
	observability.EndSpanWithError(span, err)
	observability.NewMetricsRecorder().RecordNodeExecution(ctx, n.name, time.Since(start), attempts, err)
	return action, err
}

func (n *Node[State, PrepResult, ExecResult]) run(ctx context.Context, state *State) (Action, int, error) {
	prep, err := n.node.Prep(state)
	if err != nil {
		return ActionFailure, 0, fatal(n.name, 0, fmt.Errorf("prep: %w", err))
	}

	exec, attempts, err := Retry(ctx, n.policy, func(ctx context.Context, a Attempt) (ExecResult, error) {
		return n.node.Exec(ctx, prep, a)
	})
	if err != nil {
		exec, err = n.runFallback(ctx, prep, attempts, err)
		if err != nil {
			return ActionFailure, attempts, err
		}
	}

	action, err := n.node.Post(state, prep, exec)
	if err != nil {
		return ActionFailure, attempts, fatal(n.name, attempts, fmt.Errorf("post: %w", err))
	}
	return action, attempts, nil
}

// runFallback runs the node's fallback after exec gave up. Without a fallback,
// or when the context ended, the failure becomes fatal.
func (n *Node[State, PrepResult, ExecResult]) runFallback(ctx context.Context, prep PrepResult, attempts int, cause error) (ExecResult, error) {
	var zero ExecResult
	if ctx.Err() != nil {
		return zero, fatal(n.name, attempts, ctx.Err())
	}
	fb, ok := n.node.(Fallback[PrepResult, ExecResult])
	if !ok {
		return zero, fatal(n.name, attempts, cause)
	}
	log.Printf("[Node] %s: exec failed after %d attempt(s), using fallback: %v", n.name, attempts, cause)
	result, err := fb.ExecFallback(prep, cause)
	if err != nil {
		return zero, fatal(n.name, attempts, fmt.Errorf("fallback: %w", err))
	}
	return result, nil
}

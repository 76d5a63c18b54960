package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pocketomega/repotutor/internal/observability"
)

// BatchNode runs a BatchBaseNode's ExecItem once per prepared item,
// sequentially and in order. Every item yields exactly one result: a failed
// item goes through ItemFallback, or halts the flow when there is none.
type BatchNode[State any, Item any, Result any] struct {
	links[State]
	name   string
	node   BatchBaseNode[State, Item, Result]
	policy RetryPolicy
}

// NewBatchNode creates a BatchNode wrapping the given implementation.
// The retry policy applies to each item separately.
func NewBatchNode[State any, Item any, Result any](
	name string,
	basenode BatchBaseNode[State, Item, Result],
	policy RetryPolicy,
) *BatchNode[State, Item, Result] {
	return &BatchNode[State, Item, Result]{
		name:   name,
		node:   basenode,
		policy: policy.normalized(),
	}
}

// Name implements Workflow.
func (b *BatchNode[State, Item, Result]) Name() string { return b.name }

// Run implements Workflow.Run.
func (b *BatchNode[State, Item, Result]) Run(ctx context.Context, state *State) (Action, error) {
	start := time.Now()
	ctx, span := observability.StartNodeSpan(ctx, b.name)
	action, calls, err := b.run(ctx, state)
	observability.EndSpanWithError(span, err)
	observability.NewMetricsRecorder().RecordNodeExecution(ctx, b.name, time.Since(start), calls, err)
	return action, err
}

// run returns the total number of ExecItem calls across all items.
func (b *BatchNode[State, Item, Result]) run(ctx context.Context, state *State) (Action, int, error) {
	items, err := b.node.Prep(state)
	if err != nil {
		return ActionFailure, 0, fatal(b.name, 0, fmt.Errorf("prep: %w", err))
	}

	results := make([]Result, 0, len(items))
	calls := 0
	for i, item := range items {
		// Full slice expression: the item sees earlier results only and
		// cannot append into the shared backing array.
		prior := results[:i:i]
		result, attempts, err := Retry(ctx, b.policy, func(ctx context.Context, a Attempt) (Result, error) {
			return b.node.ExecItem(ctx, item, prior, a)
		})
		calls += attempts
		if err != nil {
			result, err = b.recoverItem(ctx, i, item, attempts, err)
			if err != nil {
				return ActionFailure, calls, err
			}
		}
		results = append(results, result)
		observability.AddSpanEvent(ctx, "batch.item.done")
	}

	action, err := b.node.Post(state, items, results)
	if err != nil {
		return ActionFailure, calls, fatal(b.name, 0, fmt.Errorf("post: %w", err))
	}
	return action, calls, nil
}

func (b *BatchNode[State, Item, Result]) recoverItem(ctx context.Context, index int, item Item, attempts int, cause error) (Result, error) {
	var zero Result
	if ctx.Err() != nil {
		return zero, fatal(b.name, attempts, ctx.Err())
	}
	fb, ok := b.node.(ItemFallback[Item, Result])
	if !ok {
		return zero, fatal(b.name, attempts, fmt.Errorf("item %d: %w", index, cause))
	}
	log.Printf("[Node] %s: item %d failed after %d attempt(s), using fallback: %v", b.name, index, attempts, cause)
	result, err := fb.ItemFallback(item, cause)
	if err != nil {
		return zero, fatal(b.name, attempts, fmt.Errorf("item %d fallback: %w", index, err))
	}
	return result, nil
}

package tutorial

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/pocketomega/repotutor/internal/core"
	"github.com/pocketomega/repotutor/internal/parse"
	"github.com/pocketomega/repotutor/internal/prompt"
)

type orderInput struct {
	request string
	count   int
}

// orderNode asks for the order in which to teach the abstractions.
type orderNode struct {
	deps Deps
}

func (n *orderNode) Prep(state *State) (orderInput, error) {
	var ctxText strings.Builder
	fmt.Fprintf(&ctxText, "Project Summary:\n%s\n\n", state.Relationships.Summary)
	ctxText.WriteString("Relationships (Indices refer to abstractions above):\n")
	for _, r := range state.Relationships.Details {
		fmt.Fprintf(&ctxText, "- From %d (%s) to %d (%s): %s\n",
			r.From, state.Abstractions[r.From].Name, r.To, state.Abstractions[r.To].Name, r.Label)
	}

	request, err := n.deps.Prompts.Render(prompt.Order, map[string]any{
		"Project":  state.Project.Name,
		"Listing":  abstractionListing(state.Abstractions),
		"Context":  ctxText.String(),
		"MaxIndex": len(state.Abstractions) - 1,
	})
	if err != nil {
		return orderInput{}, err
	}
	return orderInput{request: request, count: len(state.Abstractions)}, nil
}

func (n *orderNode) Exec(ctx context.Context, in orderInput, attempt core.Attempt) ([]int, error) {
	request, err := withCorrection(n.deps.Prompts, in.request, attempt)
	if err != nil {
		return nil, core.Permanent(err)
	}
	return ask(ctx, n.deps.Gateway, request, func(resp string) ([]int, error) {
		raw, err := parse.Decode[[]parse.Index](resp)
		if err != nil {
			return nil, core.ParseError(err)
		}
		order := parse.Ints(raw)
		if err := CheckPermutation(order, in.count); err != nil {
			return nil, err
		}
		return order, nil
	})
}

// ExecFallback teaches the abstractions in the order they were identified.
func (n *orderNode) ExecFallback(in orderInput, err error) ([]int, error) {
	log.Printf("[Order] Falling back to identification order: %v", err)
	return allIndices(in.count), nil
}

func (n *orderNode) Post(state *State, _ orderInput, order []int) (core.Action, error) {
	state.ChapterOrder = order
	log.Printf("[Order] Chapter order: %v", order)
	n.deps.report(StageOrderChapters, "ordered %d chapters", len(order))
	return core.ActionDefault, nil
}

// CheckPermutation returns a ValidationError unless order lists every index
// in [0, n) exactly once. The error names the missing, duplicate and
// out-of-range indices.
func CheckPermutation(order []int, n int) error {
	counts := make([]int, n)
	var outOfRange, duplicate, missing []int
	for _, idx := range order {
		if idx < 0 || idx >= n {
			outOfRange = append(outOfRange, idx)
			continue
		}
		counts[idx]++
		if counts[idx] == 2 {
			duplicate = append(duplicate, idx)
		}
	}
	for i, c := range counts {
		if c == 0 {
			missing = append(missing, i)
		}
	}
	if len(outOfRange) == 0 && len(duplicate) == 0 && len(missing) == 0 {
		return nil
	}

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, fmt.Sprintf("missing indices %v", missing))
	}
	if len(duplicate) > 0 {
		problems = append(problems, fmt.Sprintf("duplicate indices %v", duplicate))
	}
	if len(outOfRange) > 0 {
		problems = append(problems, fmt.Sprintf("out-of-range indices %v", outOfRange))
	}
	return core.Validationf("order must list every index from 0 to %d exactly once: %s", n-1, strings.Join(problems, "; "))
}

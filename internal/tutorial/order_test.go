package tutorial

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pocketomega/repotutor/internal/core"
	"github.com/pocketomega/repotutor/internal/llm/llmtest"
)

func orderStage(deps Deps) core.Workflow[State] {
	return core.NewNode[State, orderInput, []int]("OrderChapters", &orderNode{deps: deps}, deps.Policy)
}

func relatedState() *State {
	state := identifiedState()
	state.Relationships = Relationships{
		Summary: "A tiny greeting program.",
		Details: []Relationship{{From: 0, To: 1, Label: "uses"}},
	}
	return state
}

func TestOrder_UsesModelOrder(t *testing.T) {
	provider := llmtest.New(orderReply)
	state := relatedState()
	runNode(t, orderStage(newDeps(provider, core.NoRetry)), state)

	if diff := cmp.Diff([]int{1, 0}, state.ChapterOrder); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(provider.Prompts()[0], "- From 0 (Alpha) to 1 (Beta): uses") {
		t.Error("prompt should list relationships by name")
	}
}

func TestOrder_MalformedFallsBackToIdentity(t *testing.T) {
	for run := 0; run < 2; run++ {
		provider := llmtest.Always("```yaml\n- 0\n- 0\n```")
		state := relatedState()
		runNode(t, orderStage(newDeps(provider, core.RetryPolicy{MaxAttempts: 3})), state)

		if diff := cmp.Diff([]int{0, 1}, state.ChapterOrder); diff != "" {
			t.Errorf("run %d: fallback mismatch (-want +got):\n%s", run, diff)
		}
		if provider.Calls() != 3 {
			t.Errorf("run %d: calls = %d, want 3", run, provider.Calls())
		}
	}
}

func TestOrder_CorrectionNamesViolation(t *testing.T) {
	provider := llmtest.New("```yaml\n- 1\n- 1\n```", orderReply)
	state := relatedState()
	runNode(t, orderStage(newDeps(provider, core.RetryPolicy{MaxAttempts: 3})), state)

	if diff := cmp.Diff([]int{1, 0}, state.ChapterOrder); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	second := provider.Prompts()[1]
	if !strings.Contains(second, "missing indices [0]") || !strings.Contains(second, "duplicate indices [1]") {
		t.Errorf("corrective prompt should name the violation:\n%s", second)
	}
}

func TestCheckPermutation(t *testing.T) {
	tests := []struct {
		name  string
		order []int
		n     int
		want  string // empty means valid
	}{
		{"identity", []int{0, 1, 2}, 3, ""},
		{"shuffled", []int{2, 0, 1}, 3, ""},
		{"missing", []int{0, 2}, 3, "missing indices [1]"},
		{"duplicate", []int{0, 1, 1, 2}, 3, "duplicate indices [1]"},
		{"out of range", []int{0, 1, 2, 3}, 3, "out-of-range indices [3]"},
		{"all at once", []int{0, 0, -1}, 3, "missing indices [1 2]; duplicate indices [0]; out-of-range indices [-1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPermutation(tt.order, tt.n)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if core.KindOf(err) != core.KindValidation {
				t.Errorf("kind = %v, want validation", core.KindOf(err))
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

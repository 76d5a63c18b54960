package tutorial

import (
	"testing"

	"github.com/pocketomega/repotutor/internal/core"
	"github.com/pocketomega/repotutor/internal/llm/llmtest"
)

func TestStage_TransitionTable(t *testing.T) {
	for i, stage := range Stages {
		next, ok := stage.Next()
		if i == len(Stages)-1 {
			if ok {
				t.Errorf("%v should be the last stage, got successor %v", stage, next)
			}
			continue
		}
		if !ok || next != Stages[i+1] {
			t.Errorf("%v.Next() = %v, %v; want %v", stage, next, ok, Stages[i+1])
		}
	}
}

func TestStage_String(t *testing.T) {
	if got := StageWriteChapters.String(); got != "WriteChapters" {
		t.Errorf("String() = %q", got)
	}
	if got := Stage(99).String(); got != "Unknown" {
		t.Errorf("String() = %q", got)
	}
}

func TestBuildFlow_ChainsEveryStage(t *testing.T) {
	flow, err := BuildFlow(newDeps(llmtest.Always("x"), core.NoRetry))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flow.Name() != "tutorial" {
		t.Errorf("flow name = %q", flow.Name())
	}
	for _, stage := range Stages {
		if _, err := newStage(stage, Deps{}); err != nil {
			t.Errorf("stage %v has no node: %v", stage, err)
		}
	}
	if _, err := newStage(Stage(len(Stages)), Deps{}); err == nil {
		t.Error("unknown stage should be rejected")
	}
}

func TestBuildFlow_MissingDeps(t *testing.T) {
	if _, err := BuildFlow(Deps{}); err == nil {
		t.Error("expected error for empty deps")
	}
}

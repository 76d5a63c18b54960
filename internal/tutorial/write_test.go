package tutorial

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pocketomega/repotutor/internal/core"
	"github.com/pocketomega/repotutor/internal/llm/llmtest"
)

func writeStage(deps Deps) core.Workflow[State] {
	return core.NewBatchNode[State, chapterItem, string]("WriteChapters", &writeChaptersNode{deps: deps}, deps.Policy)
}

func orderedState() *State {
	state := relatedState()
	state.ChapterOrder = []int{1, 0}
	return state
}

func TestWrite_FollowsChapterOrder(t *testing.T) {
	provider := routed("", "", "")
	state := orderedState()
	runNode(t, writeStage(newDeps(provider, core.NoRetry)), state)

	want := []string{
		"# Chapter 1: Beta\n\nAll about Beta.",
		"# Chapter 2: Alpha\n\nAll about Alpha.",
	}
	if diff := cmp.Diff(want, state.Chapters); diff != "" {
		t.Errorf("chapters mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite_ChapterSeesOnlyEarlierChapters(t *testing.T) {
	provider := routed("", "", "")
	state := orderedState()
	runNode(t, writeStage(newDeps(provider, core.NoRetry)), state)

	prompts := provider.Prompts()
	if len(prompts) != 2 {
		t.Fatalf("calls = %d, want 2", len(prompts))
	}
	if !strings.Contains(prompts[0], "This is the first chapter.") {
		t.Error("first chapter should have no previous context")
	}
	if strings.Contains(prompts[0], "All about") {
		t.Error("first chapter must not see any chapter text")
	}
	if !strings.Contains(prompts[1], "All about Beta.") {
		t.Error("second chapter should see the first chapter")
	}
	for _, part := range []string{"1. [Beta](01_beta.md)", "2. [Alpha](02_alpha.md)", "--- File Index 0: a.py ---"} {
		if !strings.Contains(prompts[1], part) {
			t.Errorf("second chapter prompt missing %q", part)
		}
	}
}

func TestWrite_FailedChapterBecomesMarker(t *testing.T) {
	provider := &llmtest.Scripted{}
	provider.Respond = func(p string) llmtest.Reply {
		if strings.Contains(p, `concept: "Beta"`) {
			return llmtest.Reply{Err: errors.New("overloaded")}
		}
		return llmtest.Reply{Text: "Alpha body."}
	}
	state := orderedState()
	runNode(t, writeStage(newDeps(provider, core.RetryPolicy{MaxAttempts: 2})), state)

	if len(state.Chapters) != 2 {
		t.Fatalf("chapters = %d, want 2", len(state.Chapters))
	}
	if !IsErrorChapter(state.Chapters[0]) || !strings.HasPrefix(state.Chapters[0], "# Chapter 1: Beta") {
		t.Errorf("chapter 1 should be a placeholder, got %q", state.Chapters[0])
	}
	if state.Chapters[1] != "# Chapter 2: Alpha\n\nAlpha body." {
		t.Errorf("chapter 2 = %q", state.Chapters[1])
	}
	if provider.Calls() != 3 {
		t.Errorf("calls = %d, want 3", provider.Calls())
	}
	if !strings.Contains(provider.Prompts()[2], "# Chapter 1: Beta") {
		t.Error("placeholder heading should still reach the next chapter")
	}
}

func TestDigest(t *testing.T) {
	if got := digest(nil); got != "" {
		t.Errorf("digest(nil) = %q", got)
	}
	marker := "# Chapter 1: A\n\n" + ErrorMarker + " boom\n"
	long := "# Chapter 2: B\n\n" + strings.Repeat("x", 2*priorChapterRunes)
	got := digest([]string{marker, long})
	parts := strings.Split(got, "\n---\n")
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(parts))
	}
	if parts[0] != "# Chapter 1: A" {
		t.Errorf("placeholder digest = %q", parts[0])
	}
	if n := len([]rune(parts[1])); n != priorChapterRunes+3 {
		t.Errorf("long chapter digest has %d runes, want %d", n, priorChapterRunes+3)
	}
}

func TestIsErrorChapter(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"placeholder", "# Chapter 2: Store\n\n" + ErrorMarker + " timeout\n", true},
		{"placeholder without heading", ErrorMarker + " timeout", true},
		{"normal chapter", "# Chapter 1: Router\n\nRoutes requests.", false},
		{"chapter quoting the marker", "# Chapter 3: Output\n\nFailed chapters start with `" + ErrorMarker + "`.\n\n" + ErrorMarker + " example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsErrorChapter(tt.content); got != tt.want {
				t.Errorf("IsErrorChapter() = %v, want %v", got, tt.want)
			}
		})
	}
}

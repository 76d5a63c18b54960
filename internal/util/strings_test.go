package util_test

import (
	"strings"
	"testing"

	"github.com/pocketomega/repotutor/internal/util"
)

func TestTruncateRunes(t *testing.T) {
	if got := util.TruncateRunes("hello", 10); got != "hello" {
		t.Errorf("expected unchanged, got %q", got)
	}
	if got := util.TruncateRunes("hello world", 5); got != "hello..." {
		t.Errorf("expected %q, got %q", "hello...", got)
	}
	if got := util.TruncateRunes("héllo wörld", 4); got != "héll..." {
		t.Errorf("expected rune-safe cut, got %q", got)
	}
}

func TestTruncateMiddle(t *testing.T) {
	short := "abc"
	if got := util.TruncateMiddle(short, 10); got != short {
		t.Errorf("expected unchanged, got %q", got)
	}

	long := strings.Repeat("a", 50) + strings.Repeat("z", 50)
	got := util.TruncateMiddle(long, 20)
	if !strings.HasPrefix(got, strings.Repeat("a", 10)) {
		t.Errorf("expected head kept, got %q", got)
	}
	if !strings.HasSuffix(got, strings.Repeat("z", 10)) {
		t.Errorf("expected tail kept, got %q", got)
	}
	if !strings.Contains(got, "of 100 total") {
		t.Errorf("expected original length in marker, got %q", got)
	}
}

func TestSafeName(t *testing.T) {
	cases := map[string]string{
		"Query Processing": "query_processing",
		"Flow/Node":        "flow_node",
		"LLM Gateway 2":    "llm_gateway_2",
	}
	for in, want := range cases {
		if got := util.SafeName(in); got != want {
			t.Errorf("SafeName(%q) = %q, want %q", in, got, want)
		}
	}
}

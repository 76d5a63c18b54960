package tutorial

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/pocketomega/repotutor/internal/core"
	"github.com/pocketomega/repotutor/internal/crawl"
	"github.com/pocketomega/repotutor/internal/llm"
	"github.com/pocketomega/repotutor/internal/llm/llmtest"
	"github.com/pocketomega/repotutor/internal/prompt"
)

// staticFetcher returns a fixed file set for any source.
type staticFetcher struct {
	files []File
	err   error
	calls int
}

func (f *staticFetcher) Fetch(_ context.Context, _ string, _ crawl.Options) ([]File, crawl.Stats, error) {
	f.calls++
	return f.files, crawl.Stats{Downloaded: len(f.files)}, f.err
}

var sampleFiles = []File{
	{Path: "a.py", Content: "import b\n\nprint(b.greet())\n"},
	{Path: "b.py", Content: "def greet():\n    return 'hi'\n"},
}

const (
	identifyReply = "```yaml\n" +
		"- name: |\n    Alpha\n  description: |\n    The entry point.\n  file_indices:\n    - 0 # a.py\n" +
		"- name: |\n    Beta\n  description: |\n    The greeting helper.\n  file_indices:\n    - 1 # b.py\n" +
		"```"
	relationshipsReply = "```yaml\nsummary: |\n  A tiny **greeting** program.\nrelationships:\n" +
		"  - from_abstraction: 0 # Alpha\n    to_abstraction: 1 # Beta\n    label: \"uses\"\n```"
	orderReply = "```yaml\n- 1 # Beta\n- 0 # Alpha\n```"
)

var conceptRe = regexp.MustCompile(`about the concept: "([^"]+)"`)

// routed answers each stage's prompt with the matching canned reply.
// Chapter replies name the concept they were asked about.
func routed(identify, relationships, order string) *llmtest.Scripted {
	s := &llmtest.Scripted{}
	s.Respond = func(p string) llmtest.Reply {
		switch {
		case strings.Contains(p, "Identify the top"):
			return llmtest.Reply{Text: identify}
		case strings.Contains(p, "List of Abstraction Indices and Names"):
			return llmtest.Reply{Text: relationships}
		case strings.Contains(p, "what is the best order"):
			return llmtest.Reply{Text: order}
		case strings.Contains(p, "tutorial chapter"):
			m := conceptRe.FindStringSubmatch(p)
			return llmtest.Reply{Text: "# " + m[1] + "\n\nAll about " + m[1] + "."}
		}
		return llmtest.Reply{Err: llmtest.ErrExhausted}
	}
	return s
}

func newDeps(provider llm.Provider, policy core.RetryPolicy) Deps {
	return Deps{
		Gateway: llm.NewGateway(provider, llm.GatewayOptions{}),
		Prompts: prompt.NewPromptLoader("", ""),
		Fetcher: &staticFetcher{files: sampleFiles},
		Policy:  policy,
	}
}

func newState() *State {
	return &State{
		Project: Project{Name: "demo", Source: "./demo", Language: "english", MaxAbstractions: 10},
		Files:   append([]File(nil), sampleFiles...),
	}
}

func runNode(t *testing.T, node core.Workflow[State], state *State) {
	t.Helper()
	if _, err := node.Run(context.Background(), state); err != nil {
		t.Fatalf("%s: unexpected error: %v", node.Name(), err)
	}
}

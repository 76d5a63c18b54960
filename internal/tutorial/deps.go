package tutorial

import (
	"context"
	"fmt"
	"strings"

	"github.com/pocketomega/repotutor/internal/core"
	"github.com/pocketomega/repotutor/internal/crawl"
	"github.com/pocketomega/repotutor/internal/llm"
	"github.com/pocketomega/repotutor/internal/prompt"
	"github.com/pocketomega/repotutor/internal/util"
)

// Per-file character limits used when quoting source in prompts.
const (
	identifyFileChars      = 4000
	relationshipsFileChars = 3000
	chapterFileChars       = 6000
)

// Deps are the collaborators the stages share during one run.
type Deps struct {
	Gateway  *llm.Gateway
	Prompts  *prompt.PromptLoader
	Fetcher  crawl.Fetcher
	Policy   core.RetryPolicy // stages that may retry
	Progress ProgressFunc     // optional
}

// ask sends request through the gateway and decodes the reply. A reply
// that fails to decode is evicted from the run cache so a retry with the
// same request reaches the model again.
func ask[T any](ctx context.Context, gw *llm.Gateway, request string, decode func(string) (T, error)) (T, error) {
	var zero T
	resp, err := gw.Call(ctx, request)
	if err != nil {
		return zero, err
	}
	v, err := decode(resp)
	if err != nil {
		gw.Reject(request)
		return zero, err
	}
	return v, nil
}

// withCorrection appends the correction note to request when the previous
// attempt produced an unusable answer.
func withCorrection(prompts *prompt.PromptLoader, request string, attempt core.Attempt) (string, error) {
	last := attempt.LastErr()
	switch core.KindOf(last) {
	case core.KindParse, core.KindValidation:
	default:
		return request, nil
	}
	note, err := prompts.Render(prompt.Correction, map[string]any{"Problem": last.Error()})
	if err != nil {
		return "", err
	}
	return request + note, nil
}

// fileContext quotes the given files, each truncated to limit runes.
func fileContext(files []File, indices []int, limit int) string {
	var b strings.Builder
	for _, i := range indices {
		if i < 0 || i >= len(files) {
			continue
		}
		fmt.Fprintf(&b, "--- File Index %d: %s ---\n%s\n\n", i, files[i].Path, util.TruncateMiddle(files[i].Content, limit))
	}
	return b.String()
}

// fileListing renders "- i # path" lines.
func fileListing(files []File) string {
	lines := make([]string, len(files))
	for i, f := range files {
		lines[i] = fmt.Sprintf("- %d # %s", i, f.Path)
	}
	return strings.Join(lines, "\n")
}

// abstractionListing renders "i # name" lines.
func abstractionListing(abstractions []Abstraction) string {
	lines := make([]string, len(abstractions))
	for i, a := range abstractions {
		lines[i] = fmt.Sprintf("%d # %s", i, a.Name)
	}
	return strings.Join(lines, "\n")
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

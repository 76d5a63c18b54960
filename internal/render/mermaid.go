package render

import (
	"fmt"
	"strings"

	"github.com/pocketomega/repotutor/internal/util"
)

// maxEdgeLabel is the longest edge label kept verbatim.
const maxEdgeLabel = 30

// Mermaid renders a top-down flowchart with one node per abstraction
// (A0, A1, ...) and one labelled arrow per edge. Edges naming unknown
// nodes are dropped.
func Mermaid(names []string, edges []Edge) string {
	lines := []string{"flowchart TD"}
	for i, name := range names {
		lines = append(lines, fmt.Sprintf(`    A%d["%s"]`, i, sanitize(name)))
	}
	for _, e := range edges {
		if e.From < 0 || e.From >= len(names) || e.To < 0 || e.To >= len(names) {
			continue
		}
		label := sanitize(e.Label)
		if len([]rune(label)) > maxEdgeLabel {
			label = util.TruncateRunes(label, maxEdgeLabel-3)
		}
		lines = append(lines, fmt.Sprintf(`    A%d -- "%s" --> A%d`, e.From, label, e.To))
	}
	return strings.Join(lines, "\n")
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, `"`, "")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

package tutorial

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/pocketomega/repotutor/internal/core"
	"github.com/pocketomega/repotutor/internal/prompt"
	"github.com/pocketomega/repotutor/internal/render"
	"github.com/pocketomega/repotutor/internal/util"
)

// ErrorMarker opens the body of a chapter that could not be generated.
const ErrorMarker = "> **Chapter unavailable:**"

// priorChapterRunes caps how much of each earlier chapter is quoted as
// context for the next one.
const priorChapterRunes = 1500

// IsErrorChapter reports whether content is a placeholder chapter: the
// marker opens the first paragraph after the heading.
func IsErrorChapter(content string) bool {
	body := strings.TrimLeft(content, " \t\r\n")
	if strings.HasPrefix(body, "#") {
		_, body, _ = strings.Cut(body, "\n")
	}
	return strings.HasPrefix(strings.TrimLeft(body, " \t\r\n"), ErrorMarker)
}

type chapterItem struct {
	Number      int // 1-based reading position
	Index       int // abstraction index
	Name        string
	Description string
	Project     string
	Summary     string
	Language    string
	Structure   string
	Snippets    string
}

// writeChaptersNode writes one chapter per abstraction in reading order.
// Each chapter sees the chapters before it.
type writeChaptersNode struct {
	deps Deps
}

func (n *writeChaptersNode) Prep(state *State) ([]chapterItem, error) {
	var structure strings.Builder
	for pos, idx := range state.ChapterOrder {
		if idx < 0 || idx >= len(state.Abstractions) {
			return nil, fmt.Errorf("chapter order references abstraction %d of %d", idx, len(state.Abstractions))
		}
		name := state.Abstractions[idx].Name
		fmt.Fprintf(&structure, "%d. [%s](%s)\n", pos+1, name, render.ChapterFilename(pos+1, name))
	}

	items := make([]chapterItem, len(state.ChapterOrder))
	for pos, idx := range state.ChapterOrder {
		a := state.Abstractions[idx]
		items[pos] = chapterItem{
			Number:      pos + 1,
			Index:       idx,
			Name:        a.Name,
			Description: a.Description,
			Project:     state.Project.Name,
			Summary:     state.Relationships.Summary,
			Language:    languageHint(state.Project.Language),
			Structure:   structure.String(),
			Snippets:    fileContext(state.Files, a.FileIndices, chapterFileChars),
		}
	}
	return items, nil
}

func (n *writeChaptersNode) ExecItem(ctx context.Context, item chapterItem, prior []string, attempt core.Attempt) (string, error) {
	if !attempt.First() {
		log.Printf("[Write] Chapter %d (%s): attempt %d", item.Number, item.Name, attempt.Number)
	}
	request, err := n.deps.Prompts.Render(prompt.Chapter, map[string]any{
		"Language":    item.Language,
		"Project":     item.Project,
		"Name":        item.Name,
		"Number":      item.Number,
		"Summary":     item.Summary,
		"Description": item.Description,
		"Structure":   item.Structure,
		"Previous":    digest(prior),
		"Snippets":    item.Snippets,
	})
	if err != nil {
		return "", core.Permanent(err)
	}
	return ask(ctx, n.deps.Gateway, request, func(resp string) (string, error) {
		if strings.TrimSpace(resp) == "" {
			return "", core.ParseError(errors.New("chapter text is empty"))
		}
		return render.NormalizeHeading(resp, item.Number, item.Name), nil
	})
}

// ItemFallback keeps the chapter slot with a visible placeholder.
func (n *writeChaptersNode) ItemFallback(item chapterItem, err error) (string, error) {
	log.Printf("[Write] Chapter %d (%s) failed: %v", item.Number, item.Name, err)
	return fmt.Sprintf("%s\n\n%s %v\n", render.Heading(item.Number, item.Name), ErrorMarker, err), nil
}

func (n *writeChaptersNode) Post(state *State, items []chapterItem, chapters []string) (core.Action, error) {
	if len(chapters) != len(items) {
		return core.ActionFailure, fmt.Errorf("%d chapters for %d items", len(chapters), len(items))
	}
	state.Chapters = chapters
	failed := 0
	for _, ch := range chapters {
		if IsErrorChapter(ch) {
			failed++
		}
	}
	log.Printf("[Write] %d chapters written, %d placeholders", len(chapters)-failed, failed)
	n.deps.report(StageWriteChapters, "wrote %d chapters", len(chapters))
	return core.ActionDefault, nil
}

// digest condenses earlier chapters for the next prompt.
func digest(prior []string) string {
	if len(prior) == 0 {
		return ""
	}
	parts := make([]string, len(prior))
	for i, ch := range prior {
		if IsErrorChapter(ch) {
			heading, _, _ := strings.Cut(strings.TrimSpace(ch), "\n")
			parts[i] = heading
			continue
		}
		parts[i] = util.TruncateRunes(strings.TrimSpace(ch), priorChapterRunes)
	}
	return strings.Join(parts, "\n---\n")
}

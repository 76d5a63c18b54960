package tutorial

import (
	"context"
	"fmt"
	"log"

	"github.com/pocketomega/repotutor/internal/core"
	"github.com/pocketomega/repotutor/internal/crawl"
	"github.com/pocketomega/repotutor/internal/render"
)

// combineNode renders the finished chapters into the tutorial documents.
// It makes no model calls.
type combineNode struct {
	deps Deps
}

type combineInput struct {
	doc      render.Document
	order    []int
	chapters []string
}

func (n *combineNode) Prep(state *State) (combineInput, error) {
	names := make([]string, len(state.Abstractions))
	for i, a := range state.Abstractions {
		names[i] = a.Name
	}
	edges := make([]render.Edge, len(state.Relationships.Details))
	for i, r := range state.Relationships.Details {
		edges[i] = render.Edge{From: r.From, To: r.To, Label: r.Label}
	}
	doc := render.Document{
		Project: state.Project.Name,
		Summary: state.Relationships.Summary,
		Names:   names,
		Edges:   edges,
	}
	if crawl.IsGitHubURL(state.Project.Source) {
		doc.SourceURL = state.Project.Source
	}
	return combineInput{doc: doc, order: state.ChapterOrder, chapters: state.Chapters}, nil
}

func (n *combineNode) Exec(_ context.Context, in combineInput, _ core.Attempt) (*Tutorial, error) {
	return Combine(in.doc, in.order, in.chapters)
}

func (n *combineNode) Post(state *State, _ combineInput, t *Tutorial) (core.Action, error) {
	state.Tutorial = t
	log.Printf("[Combine] Rendered index and %d chapter files", len(t.Chapters))
	n.deps.report(StageCombineTutorial, "rendered %d chapter files", len(t.Chapters))
	return core.ActionDefault, nil
}

// Combine renders the index page, one file per chapter and the merged
// document. doc carries the project data; chapters must align with order.
func Combine(doc render.Document, order []int, chapters []string) (*Tutorial, error) {
	if len(chapters) != len(order) {
		return nil, core.Permanent(fmt.Errorf("%d chapters for %d ordered abstractions", len(chapters), len(order)))
	}
	doc.Chapters = make([]render.Chapter, len(order))
	t := &Tutorial{
		Chapters:       make([]ChapterFile, len(order)),
		MergedFilename: doc.Project + "_tutorial.md",
	}
	for pos, idx := range order {
		if idx < 0 || idx >= len(doc.Names) {
			return nil, core.Permanent(fmt.Errorf("chapter %d references abstraction %d of %d", pos+1, idx, len(doc.Names)))
		}
		name := doc.Names[idx]
		ch := render.Chapter{
			Number:   pos + 1,
			Name:     name,
			Filename: render.ChapterFilename(pos+1, name),
			Content:  chapters[pos],
		}
		doc.Chapters[pos] = ch
		t.Chapters[pos] = ChapterFile{Filename: ch.Filename, Content: render.ChapterPage(ch)}
	}
	t.Index = render.Index(doc)
	t.Merged = render.Merged(doc)
	return t, nil
}

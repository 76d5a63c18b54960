package tutorial

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/pocketomega/repotutor/internal/core"
	"github.com/pocketomega/repotutor/internal/parse"
	"github.com/pocketomega/repotutor/internal/prompt"
)

type relationshipsInput struct {
	request string
	project string
	names   []string
}

type rawRelationships struct {
	Summary       string            `yaml:"summary"`
	Relationships []rawRelationship `yaml:"relationships"`
}

type rawRelationship struct {
	From  parse.Index `yaml:"from_abstraction"`
	To    parse.Index `yaml:"to_abstraction"`
	Label string      `yaml:"label"`
}

// relationshipsNode asks for a project summary and the edges between the
// identified abstractions.
type relationshipsNode struct {
	deps Deps
}

func (n *relationshipsNode) Prep(state *State) (relationshipsInput, error) {
	var ctxText strings.Builder
	var related []int
	names := make([]string, len(state.Abstractions))
	for i, a := range state.Abstractions {
		names[i] = a.Name
		fmt.Fprintf(&ctxText, "- Index %d: %s (Relevant file indices: %v)\n  Description: %s\n", i, a.Name, a.FileIndices, a.Description)
		related = append(related, a.FileIndices...)
	}
	slices.Sort(related)
	related = slices.Compact(related)
	ctxText.WriteString("\nRelevant File Snippets (Referenced by Index and Path):\n")
	ctxText.WriteString(fileContext(state.Files, related, relationshipsFileChars))

	request, err := n.deps.Prompts.Render(prompt.Relationships, map[string]any{
		"Project":  state.Project.Name,
		"Listing":  abstractionListing(state.Abstractions),
		"Context":  ctxText.String(),
		"Language": languageHint(state.Project.Language),
		"MaxIndex": len(state.Abstractions) - 1,
	})
	if err != nil {
		return relationshipsInput{}, err
	}
	return relationshipsInput{request: request, project: state.Project.Name, names: names}, nil
}

func (n *relationshipsNode) Exec(ctx context.Context, in relationshipsInput, attempt core.Attempt) (Relationships, error) {
	request, err := withCorrection(n.deps.Prompts, in.request, attempt)
	if err != nil {
		return Relationships{}, core.Permanent(err)
	}
	return ask(ctx, n.deps.Gateway, request, func(resp string) (Relationships, error) {
		raw, err := parse.Decode[rawRelationships](resp)
		if err != nil {
			return Relationships{}, core.ParseError(err)
		}
		rel := Relationships{Summary: raw.Summary}
		for _, r := range raw.Relationships {
			rel.Details = append(rel.Details, Relationship{From: int(r.From), To: int(r.To), Label: r.Label})
		}
		return CheckRelationships(rel, len(in.names))
	})
}

// ExecFallback keeps the pipeline going with a summary built from the
// abstraction names and no edges.
func (n *relationshipsNode) ExecFallback(in relationshipsInput, err error) (Relationships, error) {
	log.Printf("[Relationships] Falling back to a name-based summary: %v", err)
	return Relationships{Summary: fallbackSummary(in.project, in.names)}, nil
}

func (n *relationshipsNode) Post(state *State, _ relationshipsInput, rel Relationships) (core.Action, error) {
	state.Relationships = rel
	log.Printf("[Relationships] %d relationships", len(rel.Details))
	n.deps.report(StageAnalyzeRelationships, "found %d relationships", len(rel.Details))
	return core.ActionDefault, nil
}

// CheckRelationships trims the summary and labels, drops exact duplicate
// edges and rejects an empty summary, an empty label or an index outside
// [0, count).
func CheckRelationships(rel Relationships, count int) (Relationships, error) {
	var problems []string
	out := Relationships{Summary: strings.TrimSpace(rel.Summary), Details: []Relationship{}}
	if out.Summary == "" {
		problems = append(problems, "summary is empty")
	}

	seen := make(map[Relationship]bool, len(rel.Details))
	for i, r := range rel.Details {
		r.Label = strings.TrimSpace(r.Label)
		if r.From < 0 || r.From >= count {
			problems = append(problems, fmt.Sprintf("relationship %d: from_abstraction %d is out of range 0-%d", i, r.From, count-1))
		}
		if r.To < 0 || r.To >= count {
			problems = append(problems, fmt.Sprintf("relationship %d: to_abstraction %d is out of range 0-%d", i, r.To, count-1))
		}
		if r.Label == "" {
			problems = append(problems, fmt.Sprintf("relationship %d has an empty label", i))
		}
		if seen[r] {
			continue
		}
		seen[r] = true
		out.Details = append(out.Details, r)
	}

	if len(problems) > 0 {
		return Relationships{}, core.ValidationError(errors.New(strings.Join(problems, "; ")))
	}
	return out, nil
}

func fallbackSummary(project string, names []string) string {
	switch len(names) {
	case 0:
		return fmt.Sprintf("An introduction to %s.", project)
	case 1:
		return fmt.Sprintf("%s is explained through one core abstraction: **%s**.", project, names[0])
	}
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = "**" + name + "**"
	}
	return fmt.Sprintf("%s is built around %d core abstractions: %s and %s.",
		project, len(names), strings.Join(quoted[:len(quoted)-1], ", "), quoted[len(quoted)-1])
}

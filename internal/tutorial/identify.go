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

const (
	defaultMaxAbstractions = 10
	minAbstractions        = 5
)

type identifyInput struct {
	request   string
	project   string
	fileCount int
	limit     int
}

type rawAbstraction struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	FileIndices []parse.Index `yaml:"file_indices"`
}

// identifyNode asks the model for the core abstractions of the codebase.
type identifyNode struct {
	deps Deps
}

func (n *identifyNode) Prep(state *State) (identifyInput, error) {
	limit := state.Project.MaxAbstractions
	if limit < 1 {
		limit = defaultMaxAbstractions
	}
	request, err := n.deps.Prompts.Render(prompt.Identify, map[string]any{
		"Project":     state.Project.Name,
		"Context":     fileContext(state.Files, allIndices(len(state.Files)), identifyFileChars),
		"Language":    languageHint(state.Project.Language),
		"Min":         min(minAbstractions, limit),
		"Max":         limit,
		"FileListing": fileListing(state.Files),
	})
	if err != nil {
		return identifyInput{}, err
	}
	return identifyInput{
		request:   request,
		project:   state.Project.Name,
		fileCount: len(state.Files),
		limit:     limit,
	}, nil
}

// Exec allows one corrective re-prompt after a validation failure. A second
// validation failure is permanent and sends the node to its fallback.
func (n *identifyNode) Exec(ctx context.Context, in identifyInput, attempt core.Attempt) ([]Abstraction, error) {
	request, err := withCorrection(n.deps.Prompts, in.request, attempt)
	if err != nil {
		return nil, core.Permanent(err)
	}
	out, err := ask(ctx, n.deps.Gateway, request, func(resp string) ([]Abstraction, error) {
		raw, err := parse.Decode[[]rawAbstraction](resp)
		if err != nil {
			return nil, core.ParseError(err)
		}
		list := make([]Abstraction, len(raw))
		for i, r := range raw {
			list[i] = Abstraction{Name: r.Name, Description: r.Description, FileIndices: parse.Ints(r.FileIndices)}
		}
		return CheckAbstractions(list, in.fileCount, in.limit)
	})
	if err != nil && core.KindOf(err) == core.KindValidation && attempt.CountKind(core.KindValidation) >= 1 {
		return nil, core.Permanent(err)
	}
	return out, err
}

func (n *identifyNode) ExecFallback(in identifyInput, err error) ([]Abstraction, error) {
	log.Printf("[Identify] Falling back to a single overview abstraction: %v", err)
	return []Abstraction{{
		Name:        "Overview",
		Description: fmt.Sprintf("A walk through the %s codebase as a whole.", in.project),
		FileIndices: allIndices(in.fileCount),
	}}, nil
}

func (n *identifyNode) Post(state *State, _ identifyInput, list []Abstraction) (core.Action, error) {
	state.Abstractions = list
	names := make([]string, len(list))
	for i, a := range list {
		names[i] = a.Name
	}
	log.Printf("[Identify] %d abstractions: %s", len(list), strings.Join(names, ", "))
	n.deps.report(StageIdentifyAbstractions, "identified %d abstractions", len(list))
	return core.ActionDefault, nil
}

// CheckAbstractions trims names and descriptions, sorts and deduplicates
// file indices, and rejects lists that break any of these rules:
// between 1 and limit entries, non-empty name and description, file indices
// in [0, fileCount), names unique ignoring case. Every violation is named
// in the returned ValidationError.
func CheckAbstractions(list []Abstraction, fileCount, limit int) ([]Abstraction, error) {
	var problems []string
	switch {
	case len(list) == 0:
		problems = append(problems, "no abstractions were listed")
	case len(list) > limit:
		problems = append(problems, fmt.Sprintf("%d abstractions were listed, at most %d are allowed", len(list), limit))
	}

	seen := make(map[string]int, len(list))
	out := make([]Abstraction, len(list))
	for i, a := range list {
		a.Name = strings.TrimSpace(a.Name)
		a.Description = strings.TrimSpace(a.Description)
		if a.Name == "" {
			problems = append(problems, fmt.Sprintf("abstraction %d has an empty name", i))
		}
		if a.Description == "" {
			problems = append(problems, fmt.Sprintf("abstraction %d (%q) has an empty description", i, a.Name))
		}
		if j, dup := seen[strings.ToLower(a.Name)]; dup && a.Name != "" {
			problems = append(problems, fmt.Sprintf("abstractions %d and %d are both named %q", j, i, a.Name))
		} else {
			seen[strings.ToLower(a.Name)] = i
		}

		indices := slices.Clone(a.FileIndices)
		slices.Sort(indices)
		indices = slices.Compact(indices)
		for _, idx := range indices {
			if idx < 0 || idx >= fileCount {
				problems = append(problems, fmt.Sprintf("abstraction %d (%q) references file index %d, valid range is 0-%d", i, a.Name, idx, fileCount-1))
			}
		}
		if indices == nil {
			indices = []int{}
		}
		a.FileIndices = indices
		out[i] = a
	}

	if len(problems) > 0 {
		return nil, core.ValidationError(errors.New(strings.Join(problems, "; ")))
	}
	return out, nil
}

// languageHint returns the configured language as given, or "" for English.
func languageHint(lang string) string {
	lang = strings.TrimSpace(lang)
	if strings.EqualFold(lang, "english") {
		return ""
	}
	return lang
}

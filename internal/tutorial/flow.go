package tutorial

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pocketomega/repotutor/internal/core"
	"github.com/pocketomega/repotutor/internal/crawl"
	"github.com/pocketomega/repotutor/internal/llm"
	"github.com/pocketomega/repotutor/internal/prompt"
)

// ProgressFunc receives a one-line note after each stage completes.
type ProgressFunc func(stage Stage, detail string)

func (d Deps) report(stage Stage, format string, args ...any) {
	if d.Progress != nil {
		d.Progress(stage, fmt.Sprintf(format, args...))
	}
}

// newStage builds the node for one stage.
func newStage(stage Stage, deps Deps) (core.Workflow[State], error) {
	name := stage.String()
	switch stage {
	case StageFetchRepo:
		return core.NewNode[State, fetchInput, []File](name, &fetchRepoNode{deps: deps}, deps.Policy), nil
	case StageIdentifyAbstractions:
		return core.NewNode[State, identifyInput, []Abstraction](name, &identifyNode{deps: deps}, deps.Policy), nil
	case StageAnalyzeRelationships:
		return core.NewNode[State, relationshipsInput, Relationships](name, &relationshipsNode{deps: deps}, deps.Policy), nil
	case StageOrderChapters:
		return core.NewNode[State, orderInput, []int](name, &orderNode{deps: deps}, deps.Policy), nil
	case StageWriteChapters:
		return core.NewBatchNode[State, chapterItem, string](name, &writeChaptersNode{deps: deps}, deps.Policy), nil
	case StageCombineTutorial:
		return core.NewNode[State, combineInput, *Tutorial](name, &combineNode{deps: deps}, core.NoRetry), nil
	case StageWriteOutput:
		return core.NewNode[State, outputInput, string](name, &writeOutputNode{deps: deps}, core.NoRetry), nil
	default:
		return nil, fmt.Errorf("no node for stage %d", int(stage))
	}
}

// BuildFlow creates one node per stage and links them along the pipeline
// table on the default action.
func BuildFlow(deps Deps) (*core.Flow[State], error) {
	if deps.Gateway == nil || deps.Prompts == nil || deps.Fetcher == nil {
		return nil, errors.New("tutorial flow needs a gateway, prompts and a fetcher")
	}
	nodes := make(map[Stage]core.Workflow[State], len(Stages))
	for _, stage := range Stages {
		node, err := newStage(stage, deps)
		if err != nil {
			return nil, err
		}
		nodes[stage] = node
	}
	for _, stage := range Stages {
		if next, ok := stage.Next(); ok {
			nodes[stage].AddSuccessor(nodes[next], core.ActionDefault)
		}
	}
	return core.NewFlow("tutorial", nodes[Stages[0]]), nil
}

// Request describes one tutorial to generate.
type Request struct {
	Source          string // local directory or GitHub URL
	Name            string // optional; derived from Source when empty
	Language        string
	MaxAbstractions int
	OutputDir       string
	Crawl           crawl.Options
}

// Generator runs the pipeline. Each Generate call gets its own gateway,
// so cached responses never leak between runs.
type Generator struct {
	Provider llm.Provider
	Prompts  *prompt.PromptLoader
	Fetcher  crawl.Fetcher
	Policy   core.RetryPolicy
	Gateway  llm.GatewayOptions
	Progress ProgressFunc
}

// Generate runs every stage for req and returns the final state. On
// failure the partial state is returned with a *core.FatalError.
func (g *Generator) Generate(ctx context.Context, req Request) (*State, error) {
	state := &State{Project: Project{
		RunID:           uuid.NewString(),
		Name:            req.Name,
		Source:          req.Source,
		Language:        req.Language,
		MaxAbstractions: req.MaxAbstractions,
		OutputRoot:      req.OutputDir,
		Crawl:           req.Crawl,
	}}

	prompts := g.Prompts
	if prompts == nil {
		prompts = prompt.NewPromptLoader("", "")
	}
	fetcher := g.Fetcher
	if fetcher == nil {
		fetcher = crawl.NewSources("")
	}
	opts := g.Gateway
	if opts.SystemPrompt == "" {
		system, err := prompts.Render(prompt.System, nil)
		if err != nil {
			return state, err
		}
		opts.SystemPrompt = system
	}
	gw := llm.NewGateway(g.Provider, opts)

	flow, err := BuildFlow(Deps{
		Gateway:  gw,
		Prompts:  prompts,
		Fetcher:  fetcher,
		Policy:   g.Policy,
		Progress: g.Progress,
	})
	if err != nil {
		return state, err
	}

	start := time.Now()
	log.Printf("[Tutorial] Run %s: %s", state.Project.RunID, req.Source)
	_, err = flow.WithRunID(state.Project.RunID).Run(ctx, state)
	if cache := gw.Cache(); cache != nil {
		hits, misses := cache.Stats()
		log.Printf("[Tutorial] Run %s: cache %d hits, %d misses", state.Project.RunID, hits, misses)
	}
	if err != nil {
		log.Printf("[Tutorial] Run %s failed after %v: %v", state.Project.RunID, time.Since(start).Round(time.Millisecond), err)
		return state, err
	}
	log.Printf("[Tutorial] Run %s done in %v", state.Project.RunID, time.Since(start).Round(time.Millisecond))
	return state, nil
}

package tutorial

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/pocketomega/repotutor/internal/core"
	"github.com/pocketomega/repotutor/internal/crawl"
)

type fetchInput struct {
	source string
	opts   crawl.Options
}

// fetchRepoNode crawls the source and stores its files.
type fetchRepoNode struct {
	deps Deps
}

func (n *fetchRepoNode) Prep(state *State) (fetchInput, error) {
	source := strings.TrimSpace(state.Project.Source)
	if source == "" {
		return fetchInput{}, errors.New("no repository URL or directory given")
	}
	if name := state.Project.Name; name != "" {
		if err := CheckProjectName(name); err != nil {
			return fetchInput{}, core.Permanent(err)
		}
	}
	return fetchInput{source: source, opts: state.Project.Crawl}, nil
}

func (n *fetchRepoNode) Exec(ctx context.Context, in fetchInput, _ core.Attempt) ([]File, error) {
	files, stats, err := n.deps.Fetcher.Fetch(ctx, in.source, in.opts)
	if err != nil {
		// Only remote crawls can succeed on a second try.
		if !crawl.IsGitHubURL(in.source) {
			return nil, core.Permanent(err)
		}
		return nil, err
	}
	for _, s := range stats.Skipped {
		log.Printf("[Fetch] Skipped %s (%d bytes, over the size limit)", s.Path, s.Size)
	}
	if len(files) == 0 {
		return nil, core.Permanent(crawl.ErrNoFiles)
	}
	return files, nil
}

func (n *fetchRepoNode) Post(state *State, in fetchInput, files []File) (core.Action, error) {
	state.Files = files
	if state.Project.Name == "" {
		state.Project.Name = crawl.ProjectName(in.source)
	}
	if err := CheckProjectName(state.Project.Name); err != nil {
		return core.ActionFailure, core.Permanent(err)
	}
	log.Printf("[Fetch] %s: %d files", state.Project.Name, len(files))
	n.deps.report(StageFetchRepo, "fetched %d files", len(files))
	return core.ActionDefault, nil
}

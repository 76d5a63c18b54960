// Package app assembles the generator, the catalog and the settings into
// the operations the CLI and the MCP server expose.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pocketomega/repotutor/internal/catalog"
	"github.com/pocketomega/repotutor/internal/config"
	"github.com/pocketomega/repotutor/internal/core"
	"github.com/pocketomega/repotutor/internal/crawl"
	"github.com/pocketomega/repotutor/internal/llm"
	"github.com/pocketomega/repotutor/internal/prompt"
	"github.com/pocketomega/repotutor/internal/tutorial"
)

// App is the composition root shared by every entry point.
type App struct {
	Settings  *config.Settings
	Generator *tutorial.Generator
	Catalog   *catalog.Store
}

// New wires an App for provider. provider may be nil for read-only use
// (listing and reading tutorials). The caller owns Close.
func New(settings *config.Settings, provider llm.Provider) (*App, error) {
	store, err := catalog.Open(settings.Catalog())
	if err != nil {
		return nil, err
	}
	return &App{
		Settings: settings,
		Generator: &tutorial.Generator{
			Provider: provider,
			Prompts:  prompt.NewPromptLoader(settings.PromptsDir, settings.RulesPath),
			Fetcher:  crawl.NewSources(settings.GitHubToken),
			Policy:   core.RetryPolicy{MaxAttempts: settings.MaxAttempts, Wait: settings.RetryWait},
			Gateway: llm.GatewayOptions{
				MaxPromptTokens: settings.MaxPromptTokens,
				DisableCache:    settings.NoCache,
			},
		},
		Catalog: store,
	}, nil
}

// Close releases the catalog.
func (a *App) Close() error {
	return a.Catalog.Close()
}

// Options overrides settings for one generation. Zero values keep the
// configured defaults.
type Options struct {
	Source          string
	Name            string
	Language        string
	MaxAbstractions int
	OutputDir       string
	Include         []string
	Exclude         []string
	MaxFileSize     int64
}

// Request merges opts over the settings.
func (a *App) Request(opts Options) tutorial.Request {
	s := a.Settings
	req := tutorial.Request{
		Source:          opts.Source,
		Name:            opts.Name,
		Language:        first(opts.Language, s.Language),
		MaxAbstractions: opts.MaxAbstractions,
		OutputDir:       first(opts.OutputDir, s.OutputDir),
		Crawl: crawl.Options{
			Include:     opts.Include,
			Exclude:     opts.Exclude,
			MaxFileSize: opts.MaxFileSize,
		},
	}
	if req.MaxAbstractions <= 0 {
		req.MaxAbstractions = s.MaxAbstractions
	}
	if len(req.Crawl.Include) == 0 {
		req.Crawl.Include = s.Include
	}
	if len(req.Crawl.Exclude) == 0 {
		req.Crawl.Exclude = s.Exclude
	}
	if req.Crawl.MaxFileSize <= 0 {
		req.Crawl.MaxFileSize = s.MaxFileSize
	}
	return req
}

// Generate runs the pipeline and records the result in the catalog.
// progress may be nil.
func (a *App) Generate(ctx context.Context, opts Options, progress tutorial.ProgressFunc) (catalog.Entry, error) {
	if a.Generator.Provider == nil {
		return catalog.Entry{}, errors.New("app: no LLM provider configured")
	}
	gen := *a.Generator
	gen.Progress = progress

	state, err := gen.Generate(ctx, a.Request(opts))
	if err != nil {
		return catalog.Entry{}, err
	}

	placeholders := 0
	for _, ch := range state.Chapters {
		if tutorial.IsErrorChapter(ch) {
			placeholders++
		}
	}
	return a.Catalog.Record(catalog.Entry{
		ID:           state.Project.RunID,
		Project:      state.Project.Name,
		Source:       state.Project.Source,
		Language:     state.Project.Language,
		OutputDir:    state.OutputDir,
		Chapters:     len(state.Chapters),
		Placeholders: placeholders,
	})
}

// Resolve finds a catalog entry by run ID, or else the newest entry for a
// project name.
func (a *App) Resolve(ref string) (catalog.Entry, error) {
	e, err := a.Catalog.Get(ref)
	if errors.Is(err, catalog.ErrNotFound) {
		return a.Catalog.Latest(ref)
	}
	return e, err
}

// ReadFile returns one file of a generated tutorial; an empty name reads
// the index page.
func (a *App) ReadFile(e catalog.Entry, name string) (string, error) {
	if name == "" {
		name = tutorial.IndexFilename
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(e.OutputDir, name))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

// Files lists the Markdown files of a generated tutorial.
func (a *App) Files(e catalog.Entry) ([]string, error) {
	entries, err := os.ReadDir(e.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", e.OutputDir, err)
	}
	var names []string
	for _, d := range entries {
		if !d.IsDir() && filepath.Ext(d.Name()) == ".md" {
			names = append(names, d.Name())
		}
	}
	return names, nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package crawl

import (
	"context"
	"path/filepath"
	"strings"
)

// Fetcher collects the files of one source.
type Fetcher interface {
	Fetch(ctx context.Context, source string, opts Options) ([]File, Stats, error)
}

// Sources dispatches GitHub URLs to the GitHub crawler and everything else
// to the local directory walker.
type Sources struct {
	GitHub *GitHub
}

// NewSources returns a Fetcher using token for GitHub requests.
func NewSources(token string) *Sources {
	return &Sources{GitHub: NewGitHub(token)}
}

// Fetch implements Fetcher.
func (s *Sources) Fetch(ctx context.Context, source string, opts Options) ([]File, Stats, error) {
	if IsGitHubURL(source) {
		gh := s.GitHub
		if gh == nil {
			gh = NewGitHub("")
		}
		return gh.Crawl(ctx, source, opts)
	}
	return Local(ctx, source, opts)
}

// ProjectName derives a project name from a repository URL or directory.
func ProjectName(source string) string {
	if IsGitHubURL(source) {
		if repo, err := ParseRepoURL(source); err == nil {
			return repo.Name
		}
		trimmed := strings.TrimRight(source, "/")
		return strings.TrimSuffix(trimmed[strings.LastIndex(trimmed, "/")+1:], ".git")
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		abs = source
	}
	return filepath.Base(abs)
}

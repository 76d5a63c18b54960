package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultAPIBase       = "https://api.github.com"
	defaultConcurrency   = 8
	defaultMaxRateWait   = 15 * time.Minute
	githubRequestsPerSec = 10
)

// Repo identifies a GitHub repository and an optional ref and sub path.
type Repo struct {
	Owner string
	Name  string
	Ref   string
	Path  string
}

// IsGitHubURL reports whether source looks like a GitHub repository URL.
func IsGitHubURL(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	return (u.Scheme == "https" || u.Scheme == "http") && host == "github.com"
}

// ParseRepoURL parses https://github.com/owner/repo[/tree/ref[/path]].
func ParseRepoURL(repoURL string) (Repo, error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return Repo{}, fmt.Errorf("invalid GitHub URL %q: %w", repoURL, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Repo{}, fmt.Errorf("invalid GitHub URL %q: expected /owner/repo", repoURL)
	}
	r := Repo{Owner: parts[0], Name: strings.TrimSuffix(parts[1], ".git")}
	if len(parts) >= 4 && parts[2] == "tree" {
		r.Ref = parts[3]
		r.Path = strings.Join(parts[4:], "/")
	}
	return r, nil
}

// GitHub crawls repositories through the GitHub contents API.
type GitHub struct {
	APIBase     string       // default https://api.github.com
	Token       string       // optional personal access token
	HTTP        *http.Client // default http.DefaultClient
	Concurrency int          // parallel downloads, default 8
	MaxRateWait time.Duration

	once    sync.Once
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewGitHub returns a crawler authenticating with token, which may be empty.
func NewGitHub(token string) *GitHub {
	return &GitHub{Token: token}
}

func (g *GitHub) init() {
	g.once.Do(func() {
		if g.APIBase == "" {
			g.APIBase = defaultAPIBase
		}
		if g.HTTP == nil {
			g.HTTP = http.DefaultClient
		}
		if g.Concurrency <= 0 {
			g.Concurrency = defaultConcurrency
		}
		if g.MaxRateWait <= 0 {
			g.MaxRateWait = defaultMaxRateWait
		}
		g.limiter = rate.NewLimiter(rate.Limit(githubRequestsPerSec), g.Concurrency)
		if g.sleep == nil {
			g.sleep = sleepCtx
		}
	})
}

type contentItem struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
}

// Crawl lists repoURL recursively, then downloads matching files in parallel.
// Paths are relative to the sub path in the URL, if any. Files that fail to
// download are skipped with a log line.
func (g *GitHub) Crawl(ctx context.Context, repoURL string, opts Options) ([]File, Stats, error) {
	g.init()
	var stats Stats

	repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, stats, err
	}
	m := NewMatcher(opts)

	var wanted []contentItem
	if err := g.list(ctx, repo, repo.Path, m, opts, &wanted, &stats); err != nil {
		return nil, stats, err
	}

	files := make([]File, len(wanted))
	ok := make([]bool, len(wanted))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.Concurrency)
	for i, item := range wanted {
		eg.Go(func() error {
			content, err := g.download(egCtx, item.DownloadURL)
			if err != nil {
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				log.Printf("[Crawl] Warning: download %s failed: %v", item.Path, err)
				return nil
			}
			text, isText := decodeText(content)
			if !isText {
				log.Printf("[Crawl] Skipping non-text file %s", item.Path)
				return nil
			}
			files[i] = File{Path: relativeTo(item.Path, repo.Path), Content: text}
			ok[i] = true
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, stats, err
	}

	out := files[:0]
	for i, f := range files {
		if ok[i] {
			out = append(out, f)
		}
	}
	sortFiles(out)
	stats.Downloaded = len(out)
	return out, stats, nil
}

func (g *GitHub) list(ctx context.Context, repo Repo, dir string, m *Matcher, opts Options, wanted *[]contentItem, stats *Stats) error {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s", strings.TrimRight(g.APIBase, "/"),
		url.PathEscape(repo.Owner), url.PathEscape(repo.Name), escapePath(dir))
	if repo.Ref != "" {
		endpoint += "?ref=" + url.QueryEscape(repo.Ref)
	}

	body, err := g.get(ctx, endpoint, "application/vnd.github.v3+json")
	if err != nil {
		return fmt.Errorf("list %s: %w", displayPath(dir), err)
	}

	var items []contentItem
	if err := json.Unmarshal(body, &items); err != nil {
		var single contentItem
		if err2 := json.Unmarshal(body, &single); err2 != nil {
			return fmt.Errorf("list %s: decode: %w", displayPath(dir), err)
		}
		items = []contentItem{single}
	}

	for _, item := range items {
		rel := relativeTo(item.Path, repo.Path)
		switch item.Type {
		case "dir":
			if m.Excluded(rel) || m.Excluded(rel+"/") {
				continue
			}
			if err := g.list(ctx, repo, item.Path, m, opts, wanted, stats); err != nil {
				return err
			}
		case "file":
			if !m.Wants(rel) || item.DownloadURL == "" {
				continue
			}
			if opts.MaxFileSize > 0 && item.Size > opts.MaxFileSize {
				stats.Skipped = append(stats.Skipped, Skipped{Path: rel, Size: item.Size})
				continue
			}
			*wanted = append(*wanted, item)
		}
	}
	return nil
}

func (g *GitHub) download(ctx context.Context, rawURL string) ([]byte, error) {
	return g.get(ctx, rawURL, "")
}

// get performs an authenticated GET, waiting out GitHub rate limits until
// X-RateLimit-Reset as long as the wait stays under MaxRateWait.
func (g *GitHub) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	for {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		if accept != "" {
			req.Header.Set("Accept", accept)
		}
		if g.Token != "" {
			req.Header.Set("Authorization", "token "+g.Token)
		}

		resp, err := g.HTTP.Do(req)
		if err != nil {
			return nil, err
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}

		if wait, limited := rateLimitWait(resp, body); limited {
			if wait > g.MaxRateWait {
				return nil, fmt.Errorf("GitHub rate limit exceeded; resets in %v", wait.Round(time.Second))
			}
			log.Printf("[Crawl] Rate limit exceeded. Waiting for %v...", wait.Round(time.Second))
			if err := g.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("GET %s: %s", rawURL, resp.Status)
		}
		return body, nil
	}
}

func rateLimitWait(resp *http.Response, body []byte) (time.Duration, bool) {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return 0, false
	}
	limited := resp.Header.Get("X-RateLimit-Remaining") == "0" ||
		strings.Contains(strings.ToLower(string(body)), "rate limit exceeded")
	if !limited {
		return 0, false
	}
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil {
			return time.Duration(secs) * time.Second, true
		}
	}
	reset, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
	wait := time.Until(time.Unix(reset, 0))
	if wait < 0 {
		wait = 0
	}
	return wait + time.Second, true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func relativeTo(p, base string) string {
	if base == "" {
		return p
	}
	if strings.HasPrefix(p, base) {
		return strings.TrimLeft(p[len(base):], "/")
	}
	return p
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}

func displayPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

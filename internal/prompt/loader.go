// Package prompt implements a two-layer prompt loading system:
//
//   - L1: Stage prompt templates in prompts/*.md (embedded by default, overridable at runtime)
//   - L2: User style rules in rules.md, appended to every rendered prompt (runtime only)
//
// Templates use text/template; values are inserted verbatim.
// The PromptLoader is safe for concurrent use.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
)

// defaultPrompts embeds the prompt templates shipped with the binary.
//
//go:embed prompts/*
var defaultPrompts embed.FS

// Template names shipped in prompts/.
const (
	System        = "system.md"
	Identify      = "identify.md"
	Relationships = "relationships.md"
	Order         = "order.md"
	Chapter       = "chapter.md"
	Correction    = "correction.md"
)

// promptInjectionPatterns contains lowercased substrings that indicate prompt injection attempts.
// Lines matching any pattern are dropped from user rules with a warning.
var promptInjectionPatterns = []string{
	"ignore previous",
	"ignore above",
	"ignore all previous",
	"disregard all",
	"disregard previous",
	"forget previous",
	"forget all previous",
	"override instructions",
	"override previous",
	"new instructions:",
	"from now on",
}

// PromptLoader reads prompt templates and the user rules file.
// It caches file contents and parsed templates after the first read; call
// Reload to invalidate the cache.
type PromptLoader struct {
	promptsDir string // runtime override directory (may be empty)
	rulesPath  string // path to rules.md (may be empty)
	cache      map[string]string
	templates  map[string]*template.Template
	mu         sync.RWMutex
}

// NewPromptLoader creates a PromptLoader that reads templates from promptsDir
// (falling back to embedded defaults) and user rules from rulesPath.
//
// Both paths may be empty strings:
//   - empty promptsDir: only embedded defaults are used
//   - empty / non-existent rulesPath: LoadUserRules returns ""
func NewPromptLoader(promptsDir, rulesPath string) *PromptLoader {
	return &PromptLoader{
		promptsDir: promptsDir,
		rulesPath:  rulesPath,
		cache:      make(map[string]string),
		templates:  make(map[string]*template.Template),
	}
}

// Load returns the content of the named prompt file (e.g. "identify.md").
//
// Priority:
//  1. Disk file at promptsDir/name (runtime override)
//  2. Embedded default at prompts/name
//  3. Empty string (silent, file simply absent)
//
// A disk read error (permission denied, etc.) logs a warning and falls back
// to the embedded default.  Cache hit avoids repeated disk reads.
func (l *PromptLoader) Load(name string) string {
	return l.cached("file:"+name, func() string { return l.loadUncached(name) })
}

// cached returns the cache entry for key, computing it with load on a miss.
func (l *PromptLoader) cached(key string, load func() string) string {
	// Fast path: cache hit under read lock
	l.mu.RLock()
	if val, ok := l.cache[key]; ok {
		l.mu.RUnlock()
		return val
	}
	l.mu.RUnlock()

	// Load without any lock (pure computation / I/O)
	content := load()

	// Double-check under write lock to avoid duplicate entries when two
	// goroutines race through the read-lock miss at the same time.
	l.mu.Lock()
	defer l.mu.Unlock()
	if val, ok := l.cache[key]; ok {
		return val
	}
	l.cache[key] = content
	return content
}

// loadUncached does the actual file read without touching the cache.
func (l *PromptLoader) loadUncached(name string) string {
	if l.promptsDir != "" {
		diskPath := filepath.Join(l.promptsDir, name)
		data, err := os.ReadFile(diskPath)
		if err == nil {
			return string(data)
		}
		if !os.IsNotExist(err) {
			log.Printf("[Prompt] Warning: read %q failed: %v; falling back to embedded default", diskPath, err)
		}
	}

	data, err := fs.ReadFile(defaultPrompts, "prompts/"+name)
	if err == nil {
		return string(data)
	}
	return ""
}

// LoadUserRules reads the rules.md file and filters dangerous injection patterns.
//
// Lines containing known jailbreak phrases (case-insensitive) are dropped and
// logged as warnings.  The remaining content is returned as-is.
// Returns "" if the file does not exist or rulesPath is empty.
func (l *PromptLoader) LoadUserRules() string {
	return l.cached("rules", l.loadUserRulesUncached)
}

func (l *PromptLoader) loadUserRulesUncached() string {
	if l.rulesPath == "" {
		return ""
	}
	data, err := os.ReadFile(l.rulesPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Prompt] Warning: read user rules %q failed: %v", l.rulesPath, err)
		}
		return ""
	}
	return filterDangerousLines(string(data))
}

// Render executes the named template with data. Non-empty user rules are
// appended under an "Additional instructions" heading, except for the
// correction template which is itself appended to a rendered prompt.
func (l *PromptLoader) Render(name string, data any) (string, error) {
	tmpl, err := l.template(name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	if name != Correction && name != System {
		if rules := strings.TrimSpace(l.LoadUserRules()); rules != "" {
			buf.WriteString("\n\nAdditional instructions:\n")
			buf.WriteString(rules)
			buf.WriteString("\n")
		}
	}
	return buf.String(), nil
}

func (l *PromptLoader) template(name string) (*template.Template, error) {
	l.mu.RLock()
	tmpl, ok := l.templates[name]
	l.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	text := l.Load(name)
	if text == "" {
		return nil, fmt.Errorf("prompt template %q not found", name)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	l.mu.Lock()
	l.templates[name] = tmpl
	l.mu.Unlock()
	return tmpl, nil
}

// filterDangerousLines drops lines that match known prompt-injection patterns.
// Remaining lines are preserved including their original line endings.
func filterDangerousLines(content string) string {
	lines := strings.Split(content, "\n")
	safe := make([]string, 0, len(lines))
	for _, line := range lines {
		lower := strings.ToLower(line)
		dropped := false
		for _, pattern := range promptInjectionPatterns {
			if strings.Contains(lower, pattern) {
				log.Printf("[Prompt] Warning: user rules line dropped (injection pattern %q detected): %q", pattern, line)
				dropped = true
				break
			}
		}
		if !dropped {
			safe = append(safe, line)
		}
	}
	return strings.Join(safe, "\n")
}

// Reload clears the internal cache so that subsequent calls re-read files
// from disk.  Safe for concurrent use.
func (l *PromptLoader) Reload() {
	l.mu.Lock()
	l.cache = make(map[string]string)
	l.templates = make(map[string]*template.Template)
	l.mu.Unlock()
}

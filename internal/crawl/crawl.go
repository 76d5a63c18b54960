// Package crawl collects the source files a tutorial is written from, either
// from a local directory or from a GitHub repository.
package crawl

import (
	"bytes"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// File is one crawled source file. Path uses forward slashes and is relative
// to the crawl root.
type File struct {
	Path    string
	Content string
}

// Options filters which files are collected.
type Options struct {
	Include     []string // glob patterns; empty means everything
	Exclude     []string // glob patterns matched against relative paths
	MaxFileSize int64    // bytes; 0 means no limit
}

// ErrNoFiles is returned when a crawl matches nothing.
var ErrNoFiles = errors.New("no files matched the include/exclude patterns")

// Stats summarises a crawl.
type Stats struct {
	Downloaded int
	Skipped    []Skipped
}

// Skipped records a file left out because of its size.
type Skipped struct {
	Path string
	Size int64
}

// Matcher tests paths against fnmatch-style globs, where '*' also matches '/'.
type Matcher struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

var (
	globCacheMu sync.Mutex
	globCache   = map[string]*regexp.Regexp{}
)

// NewMatcher compiles the option patterns.
func NewMatcher(opts Options) *Matcher {
	m := &Matcher{}
	for _, p := range opts.Include {
		m.include = append(m.include, compileGlob(p))
	}
	for _, p := range opts.Exclude {
		m.exclude = append(m.exclude, compileGlob(p))
	}
	return m
}

// Excluded reports whether relPath, or its base name, matches an exclude pattern.
func (m *Matcher) Excluded(relPath string) bool {
	return matchAny(m.exclude, relPath) || matchAny(m.exclude, baseName(relPath))
}

// Included reports whether relPath or its base name matches an include
// pattern. With no include patterns every path is included.
func (m *Matcher) Included(relPath string) bool {
	if len(m.include) == 0 {
		return true
	}
	return matchAny(m.include, relPath) || matchAny(m.include, baseName(relPath))
}

// Wants reports whether a file at relPath should be collected.
func (m *Matcher) Wants(relPath string) bool {
	return m.Included(relPath) && !m.Excluded(relPath)
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func baseName(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// compileGlob translates a shell glob to an anchored regexp:
// '*' → any run, '?' → any rune, '[...]' → class ('!' negates).
func compileGlob(glob string) *regexp.Regexp {
	globCacheMu.Lock()
	defer globCacheMu.Unlock()
	if re, ok := globCache[glob]; ok {
		return re
	}

	var b strings.Builder
	b.WriteString("^")
	runes := []rune(glob)
	for i := 0; i < len(runes); i++ {
		switch c := runes[i]; c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '[':
			j := i + 1
			if j < len(runes) && runes[j] == '!' {
				j++
			}
			if j < len(runes) && runes[j] == ']' {
				j++
			}
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			if j >= len(runes) {
				b.WriteString(`\[`)
				continue
			}
			class := string(runes[i+1 : j])
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + strings.ReplaceAll(class, `\`, `\\`) + "]")
			i = j
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		re = regexp.MustCompile("^" + regexp.QuoteMeta(glob) + "$")
	}
	globCache[glob] = re
	return re
}

// decodeText strips a UTF-8 BOM and rejects binary content.
func decodeText(data []byte) (string, bool) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return "", false
	}
	return string(data), true
}

func sortFiles(files []File) {
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
}

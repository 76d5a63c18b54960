// Package render formats a finished tutorial as Markdown: the index page
// with its relationship diagram, one file per chapter, and a merged
// single-file document.
package render

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pocketomega/repotutor/internal/util"
)

// Attribution closes every generated page.
const Attribution = "Generated by [repotutor](https://github.com/pocketomega/repotutor)"

const footer = "\n\n---\n\n" + Attribution + "\n"

// Edge is one relationship arrow in the diagram.
type Edge struct {
	From, To int
	Label    string
}

// Chapter is one chapter in reading order.
type Chapter struct {
	Number   int // 1-based reading position
	Name     string
	Filename string
	Content  string
}

// Document is everything the index and merged pages are built from.
type Document struct {
	Project   string
	Summary   string
	SourceURL string   // empty for local sources
	Names     []string // abstraction names by index
	Edges     []Edge
	Chapters  []Chapter // in reading order
}

// ChapterFilename returns "NN_safe_name.md" for a chapter.
func ChapterFilename(number int, name string) string {
	return fmt.Sprintf("%02d_%s.md", number, util.SafeName(name))
}

// Anchor returns the in-page anchor of a chapter heading in the merged document.
func Anchor(number int, name string) string {
	raw := fmt.Sprintf("chapter-%d-%s", number, strings.ToLower(name))
	raw = strings.NewReplacer(" ", "-", ":", "", ",", "").Replace(raw)
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Heading returns the canonical chapter heading.
func Heading(number int, name string) string {
	return fmt.Sprintf("# Chapter %d: %s", number, name)
}

// NormalizeHeading makes content start with the canonical heading. A first
// line that is already a Markdown heading is replaced; otherwise the heading
// is prepended.
func NormalizeHeading(content string, number int, name string) string {
	want := Heading(number, name)
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, fmt.Sprintf("# Chapter %d", number)) {
		first, rest, _ := strings.Cut(content, "\n")
		if strings.TrimSpace(first) == want {
			return content
		}
		return want + "\n" + rest
	}
	first, rest, found := strings.Cut(content, "\n")
	if strings.HasPrefix(strings.TrimSpace(first), "#") {
		if !found {
			return want
		}
		return want + "\n" + rest
	}
	return want + "\n\n" + content
}

// Index renders the overview page linking every chapter file in order.
func Index(doc Document) string {
	var b strings.Builder
	writeHeader(&b, doc)
	b.WriteString("## Chapters\n\n")
	for _, ch := range doc.Chapters {
		fmt.Fprintf(&b, "%d. [%s](%s)\n", ch.Number, ch.Name, ch.Filename)
	}
	b.WriteString(footer)
	return b.String()
}

// ChapterPage renders a standalone chapter file.
func ChapterPage(ch Chapter) string {
	return stripFooter(ch.Content) + footer
}

// Merged renders the whole tutorial as one document with a table of contents.
func Merged(doc Document) string {
	var b strings.Builder
	writeHeader(&b, doc)
	b.WriteString("## Table of Contents\n\n")
	for _, ch := range doc.Chapters {
		fmt.Fprintf(&b, "%d. [%s](#%s)\n", ch.Number, ch.Name, Anchor(ch.Number, ch.Name))
	}
	b.WriteString("\n---\n\n")
	for _, ch := range doc.Chapters {
		b.WriteString(stripFooter(ch.Content))
		b.WriteString("\n\n---\n\n")
	}
	b.WriteString(Attribution + "\n")
	return b.String()
}

func writeHeader(b *strings.Builder, doc Document) {
	fmt.Fprintf(b, "# Tutorial: %s\n\n", doc.Project)
	if s := strings.TrimSpace(doc.Summary); s != "" {
		b.WriteString(s + "\n\n")
	}
	if doc.SourceURL != "" {
		fmt.Fprintf(b, "**Source Repository:** [%s](%s)\n\n", doc.SourceURL, doc.SourceURL)
	} else {
		b.WriteString("**Source Repository:** Local Directory\n\n")
	}
	b.WriteString("```mermaid\n" + Mermaid(doc.Names, doc.Edges) + "\n```\n\n")
}

func stripFooter(content string) string {
	content = strings.TrimSpace(content)
	if i := strings.Index(content, strings.TrimSpace(footer)); i >= 0 {
		content = strings.TrimSpace(content[:i])
		content = strings.TrimSpace(strings.TrimSuffix(content, "---"))
	}
	return content
}

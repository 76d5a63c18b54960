package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pocketomega/repotutor/internal/app"
	"github.com/pocketomega/repotutor/internal/catalog"
	"github.com/pocketomega/repotutor/internal/tutorial"
)

// GenerateTool handles the generate_tutorial MCP tool.
type GenerateTool struct {
	app *app.App
}

// NewGenerateTool creates a GenerateTool.
func NewGenerateTool(a *app.App) *GenerateTool {
	return &GenerateTool{app: a}
}

// Definition returns the MCP tool definition for generate_tutorial.
func (t *GenerateTool) Definition() mcp.Tool {
	return mcp.NewTool("generate_tutorial",
		mcp.WithDescription(
			"Generate a multi-chapter tutorial for a codebase. Runs the full pipeline "+
				"(identify abstractions, relationships, chapter order, chapters) and writes Markdown files.",
		),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description("GitHub repository URL or local directory path"),
		),
		mcp.WithString("name",
			mcp.Description("Project name (default: derived from the source)"),
		),
		mcp.WithString("language",
			mcp.Description("Tutorial language (default: english)"),
		),
		mcp.WithNumber("max_abstractions",
			mcp.Description("Maximum number of abstractions, one chapter each (default: 10)"),
		),
		mcp.WithString("include",
			mcp.Description("Comma-separated include globs, e.g. \"*.go,*.md\""),
		),
		mcp.WithString("exclude",
			mcp.Description("Comma-separated exclude globs, e.g. \"vendor/*,*_test.go\""),
		),
	)
}

// Handle processes the generate_tutorial tool call.
func (t *GenerateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source := strings.TrimSpace(req.GetString("source", ""))
	if source == "" {
		return mcp.NewToolResultError("'source' is required"), nil
	}

	var progress []string
	entry, err := t.app.Generate(ctx, app.Options{
		Source:          source,
		Name:            req.GetString("name", ""),
		Language:        req.GetString("language", ""),
		MaxAbstractions: int(req.GetFloat("max_abstractions", 0)),
		Include:         splitList(req.GetString("include", "")),
		Exclude:         splitList(req.GetString("exclude", "")),
	}, func(_ tutorial.Stage, detail string) {
		progress = append(progress, detail)
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Tutorial generated: %s\n\n", entry.Project)
	fmt.Fprintf(&sb, "- **ID**: %s\n", entry.ID)
	fmt.Fprintf(&sb, "- **Output**: %s\n", entry.OutputDir)
	fmt.Fprintf(&sb, "- **Chapters**: %d", entry.Chapters)
	if entry.Placeholders > 0 {
		fmt.Fprintf(&sb, " (%d could not be generated)", entry.Placeholders)
	}
	sb.WriteString("\n\n### Steps\n\n")
	for _, p := range progress {
		sb.WriteString("- " + p + "\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// ListTool handles the list_generated_tutorials MCP tool.
type ListTool struct {
	app *app.App
}

// NewListTool creates a ListTool.
func NewListTool(a *app.App) *ListTool {
	return &ListTool{app: a}
}

// Definition returns the MCP tool definition for list_generated_tutorials.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("list_generated_tutorials",
		mcp.WithDescription("List previously generated tutorials, newest first."),
		mcp.WithString("project",
			mcp.Description("Only list tutorials for this project"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 20)"),
		),
	)
}

// Handle processes the list_generated_tutorials tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := t.app.Catalog.List(req.GetString("project", ""), int(req.GetFloat("limit", 0)))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list tutorials: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No tutorials generated yet."), nil
	}

	var sb strings.Builder
	sb.WriteString("## Generated Tutorials\n\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "- **%s** (%s): %d chapters in %s\n  id: %s, source: %s\n",
			e.Project, e.CreatedAt, e.Chapters, e.OutputDir, e.ID, e.Source)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// ContentTool handles the get_tutorial_content MCP tool.
type ContentTool struct {
	app *app.App
}

// NewContentTool creates a ContentTool.
func NewContentTool(a *app.App) *ContentTool {
	return &ContentTool{app: a}
}

// Definition returns the MCP tool definition for get_tutorial_content.
func (t *ContentTool) Definition() mcp.Tool {
	return mcp.NewTool("get_tutorial_content",
		mcp.WithDescription(
			"Read a generated tutorial. Without 'file' the index page is returned together "+
				"with the list of chapter files.",
		),
		mcp.WithString("tutorial",
			mcp.Required(),
			mcp.Description("Tutorial ID or project name (newest tutorial of that project)"),
		),
		mcp.WithString("file",
			mcp.Description("File to read, e.g. \"01_query_engine.md\" (default: index.md)"),
		),
	)
}

// Handle processes the get_tutorial_content tool call.
func (t *ContentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := strings.TrimSpace(req.GetString("tutorial", ""))
	if ref == "" {
		return mcp.NewToolResultError("'tutorial' is required"), nil
	}
	entry, err := t.app.Resolve(ref)
	if errors.Is(err, catalog.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no tutorial found for %q", ref)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to look up tutorial: %v", err)), nil
	}

	file := req.GetString("file", "")
	content, err := t.app.ReadFile(entry, file)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if file != "" {
		return mcp.NewToolResultText(content), nil
	}

	files, err := t.app.Files(entry)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(content + "\n\n## Files\n\n- " + strings.Join(files, "\n- ") + "\n"), nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

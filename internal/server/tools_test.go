package server

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketomega/repotutor/internal/app"
	"github.com/pocketomega/repotutor/internal/config"
	"github.com/pocketomega/repotutor/internal/llm/llmtest"
)

var conceptRe = regexp.MustCompile(`about the concept: "([^"]+)"`)

func newTestApp(t *testing.T) (*app.App, string) {
	t.Helper()
	model := &llmtest.Scripted{}
	model.Respond = func(p string) llmtest.Reply {
		switch {
		case strings.Contains(p, "Identify the top"):
			return llmtest.Reply{Text: "```yaml\n- name: Parser\n  description: Parses input.\n  file_indices: [0]\n```"}
		case strings.Contains(p, "List of Abstraction Indices and Names"):
			return llmtest.Reply{Text: "```yaml\nsummary: A parser.\nrelationships: []\n```"}
		case strings.Contains(p, "what is the best order"):
			return llmtest.Reply{Text: "```yaml\n- 0\n```"}
		default:
			return llmtest.Reply{Text: "All about " + conceptRe.FindStringSubmatch(p)[1] + "."}
		}
	}

	root := t.TempDir()
	src := filepath.Join(root, "calc")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "parse.go"), []byte("package calc\n"), 0o644))

	a, err := app.New(&config.Settings{
		OutputDir:       filepath.Join(root, "docs"),
		Language:        "english",
		MaxAbstractions: 5,
		MaxFileSize:     10_000,
		MaxAttempts:     1,
	}, model)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, src
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestDefinitions(t *testing.T) {
	a, _ := newTestApp(t)
	assert.Equal(t, "generate_tutorial", NewGenerateTool(a).Definition().Name)
	assert.Equal(t, "list_generated_tutorials", NewListTool(a).Definition().Name)
	assert.Equal(t, "get_tutorial_content", NewContentTool(a).Definition().Name)
	assert.Contains(t, NewGenerateTool(a).Definition().InputSchema.Required, "source")
}

func TestNew(t *testing.T) {
	a, _ := newTestApp(t)
	assert.NotNil(t, New(a))
}

func TestGenerateListAndRead(t *testing.T) {
	a, src := newTestApp(t)
	ctx := context.Background()

	res, err := NewGenerateTool(a).Handle(ctx, makeReq(map[string]interface{}{"source": src}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(res))
	assert.Contains(t, resultText(res), "Tutorial generated: calc")
	assert.Contains(t, resultText(res), "wrote 1 chapters")

	res, err = NewListTool(a).Handle(ctx, makeReq(map[string]interface{}{}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), "**calc**")

	res, err = NewContentTool(a).Handle(ctx, makeReq(map[string]interface{}{"tutorial": "calc"}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(res))
	assert.Contains(t, resultText(res), "# Tutorial: calc")
	assert.Contains(t, resultText(res), "01_parser.md")

	res, err = NewContentTool(a).Handle(ctx, makeReq(map[string]interface{}{"tutorial": "calc", "file": "01_parser.md"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), "# Chapter 1: Parser")
}

func TestGenerate_MissingSource(t *testing.T) {
	a, _ := newTestApp(t)
	res, err := NewGenerateTool(a).Handle(context.Background(), makeReq(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "'source' is required")
}

func TestGenerate_FailureIsToolError(t *testing.T) {
	a, _ := newTestApp(t)
	res, err := NewGenerateTool(a).Handle(context.Background(), makeReq(map[string]interface{}{
		"source": filepath.Join(t.TempDir(), "nowhere"),
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "generation failed")
}

func TestList_Empty(t *testing.T) {
	a, _ := newTestApp(t)
	res, err := NewListTool(a).Handle(context.Background(), makeReq(map[string]interface{}{}))
	require.NoError(t, err)
	assert.Equal(t, "No tutorials generated yet.", resultText(res))
}

func TestContent_Unknown(t *testing.T) {
	a, _ := newTestApp(t)
	res, err := NewContentTool(a).Handle(context.Background(), makeReq(map[string]interface{}{"tutorial": "ghost"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), `no tutorial found for "ghost"`)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"*.go", "*.md"}, splitList(" *.go, ,*.md "))
	assert.Nil(t, splitList(""))
}

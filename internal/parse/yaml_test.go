package parse_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/pocketomega/repotutor/internal/parse"
)

// ── ExtractYAML ──

func TestExtractYAML_FencedWithProse(t *testing.T) {
	in := "Sure! Here is the list:\n```yaml\n- 1 # b\n- 0 # a\n```\nHope this helps."
	got, err := parse.ExtractYAML(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "- 1 # b\n- 0 # a" {
		t.Errorf("unexpected extraction: %q", got)
	}
}

func TestExtractYAML_BareFence(t *testing.T) {
	got, err := parse.ExtractYAML("```\nkey: value\n```")
	if err != nil || got != "key: value" {
		t.Errorf("expected %q, got %q (err=%v)", "key: value", got, err)
	}
}

func TestExtractYAML_NoFence(t *testing.T) {
	got, err := parse.ExtractYAML("  key: value \n")
	if err != nil || got != "key: value" {
		t.Errorf("expected whole content, got %q (err=%v)", got, err)
	}
}

func TestExtractYAML_Unclosed(t *testing.T) {
	_, err := parse.ExtractYAML("```yaml\n- 1\n- 2\n")
	if err == nil || !strings.Contains(err.Error(), "unclosed") {
		t.Errorf("expected unclosed fence error, got %v", err)
	}
}

func TestExtractYAML_FenceTags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"upper case tag", "```YAML\n- 1\n- 0\n```", "- 1\n- 0"},
		{"yml with trailing spaces", "```yml  \n- 1\n```", "- 1"},
		{"json tag", "Here it is:\n```json\n[1, 0]\n```", "[1, 0]"},
		{"yaml block after another block", "```text\nnotes\n```\n```yaml\nkey: v\n```", "key: v"},
		{"inline fence", "```[1, 0]```", "[1, 0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parse.ExtractYAML(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDecode_TaggedFences(t *testing.T) {
	for _, in := range []string{
		"```YAML\n- 1\n- 0\n```",
		"Here it is:\n```json\n[1, 0]\n```",
	} {
		got, err := parse.Decode[[]parse.Index](in)
		if err != nil {
			t.Fatalf("Decode(%q): %v", in, err)
		}
		if len(got) != 2 || got[0] != 1 || got[1] != 0 {
			t.Errorf("Decode(%q) = %v, expected [1 0]", in, got)
		}
	}
}

// ── Decode ──

type entry struct {
	Name        string        `yaml:"name"`
	FileIndices []parse.Index `yaml:"file_indices"`
}

func TestDecode_AnnotatedIndices(t *testing.T) {
	in := "```yaml\n" +
		"- name: |\n    Query Processing\n" +
		"  file_indices:\n" +
		"    - 0 # src/a.py\n" +
		"    - \"3 # src/b.py\"\n" +
		"    - 2\n" +
		"```"
	got, err := parse.Decode[[]entry](in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if strings.TrimSpace(got[0].Name) != "Query Processing" {
		t.Errorf("unexpected name %q", got[0].Name)
	}
	ints := parse.Ints(got[0].FileIndices)
	if len(ints) != 3 || ints[0] != 0 || ints[1] != 3 || ints[2] != 2 {
		t.Errorf("expected [0 3 2], got %v", ints)
	}
}

func TestDecode_Empty(t *testing.T) {
	_, err := parse.Decode[[]int]("```yaml\n```")
	if !errors.Is(err, parse.ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	_, err := parse.Decode[[]int]("```yaml\n- [unclosed\n```")
	if err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestDecode_WindowsPathRepair(t *testing.T) {
	type doc struct {
		Path string `yaml:"path"`
	}
	got, err := parse.Decode[doc]("```yaml\npath: \"C:\\xsrc\\app\"\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Path != "C:/xsrc/app" {
		t.Errorf("expected repaired path, got %q", got.Path)
	}
}

func TestDecode_IndexRejectsMapping(t *testing.T) {
	_, err := parse.Decode[[]parse.Index]("- {a: 1}")
	if err == nil {
		t.Error("expected error for mapping in index list")
	}
}

// ── ParseIndex ──

func TestParseIndex(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"3", 3, false},
		{" 12 # Core Flow", 12, false},
		{"4: Node", 4, false},
		{"-1", -1, false},
		{"abc", 0, true},
		{"# only comment", 0, true},
	}
	for _, c := range cases {
		got, err := parse.ParseIndex(c.in)
		if (err != nil) != c.wantErr {
			t.Errorf("ParseIndex(%q) error = %v, wantErr %v", c.in, err, c.wantErr)
			continue
		}
		if !c.wantErr && got != c.want {
			t.Errorf("ParseIndex(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

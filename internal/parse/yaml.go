// Package parse turns free-text model responses into typed values.
//
// Responses are expected to carry a fenced YAML block, but prose around the
// fence, a bare ``` fence, or no fence at all are all tolerated.
package parse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmpty is returned when a response holds no YAML content at all.
var ErrEmpty = errors.New("response contains no YAML content")

// ExtractYAML extracts YAML content from a fenced code block. A block tagged
// yaml or yml (any case) wins; otherwise the first block is used whatever its
// tag, since JSON is valid YAML. An opened but unclosed fence is an error; a
// response without any fence is returned whole.
func ExtractYAML(content string) (string, error) {
	var first *codeBlock
	rest := content
	for {
		b, next, err := nextBlock(rest)
		if err != nil {
			if first != nil {
				break
			}
			return "", err
		}
		if b == nil {
			break
		}
		switch strings.ToLower(b.tag) {
		case "yaml", "yml":
			return strings.TrimSpace(b.body), nil
		}
		if first == nil {
			first = b
		}
		rest = next
	}
	if first != nil {
		return strings.TrimSpace(first.body), nil
	}
	// No code block found, try the whole content as YAML
	return strings.TrimSpace(content), nil
}

type codeBlock struct {
	tag  string
	body string
}

// nextBlock finds the first fenced block in s. The rest of the opening fence
// line is the tag; a block closed on its own opening line has no tag.
func nextBlock(s string) (*codeBlock, string, error) {
	open := strings.Index(s, "```")
	if open < 0 {
		return nil, "", nil
	}
	after := s[open+3:]
	line := after
	if nl := strings.IndexByte(after, '\n'); nl >= 0 {
		line = after[:nl]
	}
	if end := strings.Index(line, "```"); end >= 0 {
		return &codeBlock{body: line[:end]}, after[end+3:], nil
	}
	b := &codeBlock{tag: strings.TrimSpace(line)}
	body := after[len(line):]
	end := strings.Index(body, "```")
	if end < 0 {
		if b.tag != "" {
			return nil, "", fmt.Errorf("unclosed ```%s code block", b.tag)
		}
		return nil, "", errors.New("unclosed ``` code block")
	}
	b.body = body[:end]
	return b, body[end+3:], nil
}

// windowsPathInQuotes matches drive paths like "E:\src\app" inside double
// quotes, whose backslashes YAML would read as escapes.
var windowsPathInQuotes = regexp.MustCompile(`"([A-Za-z]:\\[^"]*)"`)

func fixBackslashes(s string) string {
	return windowsPathInQuotes.ReplaceAllStringFunc(s, func(match string) string {
		inner := match[1 : len(match)-1]
		inner = strings.ReplaceAll(inner, `\`, `/`)
		return `"` + inner + `"`
	})
}

// Decode extracts the YAML block from content and unmarshals it into T.
// A failed unmarshal is retried once after repairing Windows paths.
func Decode[T any](content string) (T, error) {
	var out T
	raw, err := ExtractYAML(content)
	if err != nil {
		return out, err
	}
	if raw == "" {
		return out, ErrEmpty
	}
	if err := yaml.Unmarshal([]byte(raw), &out); err != nil {
		fixed := fixBackslashes(raw)
		if fixed == raw {
			return out, fmt.Errorf("invalid YAML: %w", err)
		}
		var retry T
		if err2 := yaml.Unmarshal([]byte(fixed), &retry); err2 != nil {
			return out, fmt.Errorf("invalid YAML: %w", err)
		}
		return retry, nil
	}
	return out, nil
}

// Index is an integer that also accepts the annotated form "3 # path/to/file"
// models often emit for index lists.
type Index int

// UnmarshalYAML implements yaml.Unmarshaler.
func (i *Index) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected an index, got a %s", node.Line, kindName(node.Kind))
	}
	n, err := ParseIndex(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*i = Index(n)
	return nil
}

// ParseIndex reads the leading integer of "idx", "idx # comment" or
// "idx: comment".
func ParseIndex(s string) (int, error) {
	v := strings.TrimSpace(s)
	if cut := strings.IndexAny(v, "#:"); cut >= 0 {
		v = strings.TrimSpace(v[:cut])
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q is not an index", s)
	}
	return n, nil
}

// Ints converts a slice of Index to plain ints.
func Ints(in []Index) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}

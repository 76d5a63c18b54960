package tutorial

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pocketomega/repotutor/internal/core"
)

// IndexFilename is the name of the overview page.
const IndexFilename = "index.md"

type outputInput struct {
	root     string
	project  string
	tutorial *Tutorial
}

// writeOutputNode writes the tutorial to <root>/<project>.
type writeOutputNode struct {
	deps Deps
}

func (n *writeOutputNode) Prep(state *State) (outputInput, error) {
	if state.Tutorial == nil {
		return outputInput{}, errors.New("no tutorial to write")
	}
	root := state.Project.OutputRoot
	if root == "" {
		root = "."
	}
	return outputInput{root: root, project: state.Project.Name, tutorial: state.Tutorial}, nil
}

func (n *writeOutputNode) Exec(_ context.Context, in outputInput, _ core.Attempt) (string, error) {
	dir, err := WriteTutorial(in.root, in.project, in.tutorial)
	if err != nil {
		return "", core.Permanent(err)
	}
	return dir, nil
}

func (n *writeOutputNode) Post(state *State, _ outputInput, dir string) (core.Action, error) {
	state.OutputDir = dir
	log.Printf("[Output] Tutorial written to %s", dir)
	n.deps.report(StageWriteOutput, "wrote %s", dir)
	return core.ActionDefault, nil
}

// ErrInvalidName marks a project name that cannot be an output directory.
var ErrInvalidName = errors.New("invalid project name")

// CheckProjectName reports whether project can name a single directory
// under the output root.
func CheckProjectName(project string) error {
	name := filepath.Base(filepath.Clean(project))
	if project == "" || name == "." || name == ".." || name == string(filepath.Separator) || name != project {
		return fmt.Errorf("%w %q", ErrInvalidName, project)
	}
	return nil
}

// WriteTutorial writes every tutorial file into root/project, replacing an
// earlier output of the same project. Files are written to a sibling
// directory first and moved into place at the end.
func WriteTutorial(root, project string, t *Tutorial) (string, error) {
	if err := CheckProjectName(project); err != nil {
		return "", err
	}
	name := project
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create output root: %w", err)
	}

	staging, err := os.MkdirTemp(root, "."+name+"-")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	files := map[string]string{IndexFilename: t.Index}
	for _, ch := range t.Chapters {
		files[ch.Filename] = ch.Content
	}
	if t.MergedFilename != "" {
		files[t.MergedFilename] = t.Merged
	}
	for filename, content := range files {
		if err := os.WriteFile(filepath.Join(staging, filename), []byte(content), 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", filename, err)
		}
	}
	if err := os.Chmod(staging, 0o755); err != nil {
		return "", fmt.Errorf("chmod staging dir: %w", err)
	}

	dir := filepath.Join(root, name)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("remove previous output: %w", err)
	}
	if err := os.Rename(staging, dir); err != nil {
		return "", fmt.Errorf("move output into place: %w", err)
	}
	return dir, nil
}

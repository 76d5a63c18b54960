// Package tutorial wires the tutorial pipeline: it fetches a repository,
// asks the model for its core abstractions, how they relate and in which
// order to teach them, writes one chapter per abstraction and renders the
// result as Markdown.
package tutorial

import (
	"github.com/pocketomega/repotutor/internal/crawl"
)

// File is one source file of the project.
type File = crawl.File

// Project describes the run being generated.
type Project struct {
	RunID           string
	Name            string
	Source          string // local directory or GitHub URL
	Language        string
	MaxAbstractions int
	OutputRoot      string // parent of the project's output directory
	Crawl           crawl.Options
}

// Abstraction is one core concept of the codebase.
type Abstraction struct {
	Name        string
	Description string
	FileIndices []int // indices into State.Files, sorted and unique
}

// Relationship is a labelled edge between two abstractions.
type Relationship struct {
	From  int
	To    int
	Label string
}

// Relationships is the project summary plus the edges between abstractions.
type Relationships struct {
	Summary string
	Details []Relationship
}

// ChapterFile is one rendered chapter file.
type ChapterFile struct {
	Filename string
	Content  string
}

// Tutorial is the rendered output of a run.
type Tutorial struct {
	Index          string
	Chapters       []ChapterFile // in reading order
	Merged         string
	MergedFilename string
}

// State is the shared store threaded through one pipeline run. Every stage
// reads what earlier stages produced and writes only its own fields.
type State struct {
	Project       Project
	Files         []File
	Abstractions  []Abstraction
	Relationships Relationships
	ChapterOrder  []int    // permutation of abstraction indices
	Chapters      []string // chapter Markdown, aligned with ChapterOrder
	Tutorial      *Tutorial
	OutputDir     string
}

// Stage names one step of the pipeline.
type Stage int

const (
	StageFetchRepo Stage = iota
	StageIdentifyAbstractions
	StageAnalyzeRelationships
	StageOrderChapters
	StageWriteChapters
	StageCombineTutorial
	StageWriteOutput
)

// Stages lists every stage in execution order.
var Stages = []Stage{
	StageFetchRepo,
	StageIdentifyAbstractions,
	StageAnalyzeRelationships,
	StageOrderChapters,
	StageWriteChapters,
	StageCombineTutorial,
	StageWriteOutput,
}

func (s Stage) String() string {
	switch s {
	case StageFetchRepo:
		return "FetchRepo"
	case StageIdentifyAbstractions:
		return "IdentifyAbstractions"
	case StageAnalyzeRelationships:
		return "AnalyzeRelationships"
	case StageOrderChapters:
		return "OrderChapters"
	case StageWriteChapters:
		return "WriteChapters"
	case StageCombineTutorial:
		return "CombineTutorial"
	case StageWriteOutput:
		return "WriteOutput"
	default:
		return "Unknown"
	}
}

// pipeline maps each stage to its successor on the default action.
// WriteOutput has none, so the flow ends after it.
var pipeline = map[Stage]Stage{
	StageFetchRepo:            StageIdentifyAbstractions,
	StageIdentifyAbstractions: StageAnalyzeRelationships,
	StageAnalyzeRelationships: StageOrderChapters,
	StageOrderChapters:        StageWriteChapters,
	StageWriteChapters:        StageCombineTutorial,
	StageCombineTutorial:      StageWriteOutput,
}

// Next returns the stage that follows s.
func (s Stage) Next() (Stage, bool) {
	next, ok := pipeline[s]
	return next, ok
}

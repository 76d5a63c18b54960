package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pocketomega/repotutor/internal/app"
	"github.com/pocketomega/repotutor/internal/tutorial"
)

var generateFlags struct {
	repo            string
	dir             string
	name            string
	language        string
	maxAbstractions int
	output          string
	include         []string
	exclude         []string
	maxFileSize     int64
	token           string
	noCache         bool
	maxAttempts     int
	retryWait       time.Duration
}

var generateCmd = &cobra.Command{
	Use:   "generate [github-url|dir]",
	Short: "Generate a tutorial for a repository or a local directory",
	Long: `Crawls the source, identifies its core abstractions, analyzes how they
relate, orders them and writes one chapter per abstraction to
<output>/<project>/ along with index.md and a merged single-file copy.

The source may be given as an argument or with --repo / --dir.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&generateFlags.repo, "repo", "", "GitHub repository URL")
	f.StringVar(&generateFlags.dir, "dir", "", "local directory")
	f.StringVarP(&generateFlags.name, "name", "n", "", "project name (default: derived from the source)")
	f.StringVar(&generateFlags.language, "language", "", "tutorial language (default: TUTOR_LANGUAGE or english)")
	f.IntVar(&generateFlags.maxAbstractions, "max-abstractions", 0, "maximum number of abstractions (default: TUTOR_MAX_ABSTRACTIONS or 10)")
	f.StringVarP(&generateFlags.output, "output", "o", "", "output root directory (default: TUTOR_OUTPUT_DIR or docs)")
	f.StringSliceVarP(&generateFlags.include, "include", "i", nil, "include patterns, e.g. '*.go' (repeatable)")
	f.StringSliceVarP(&generateFlags.exclude, "exclude", "e", nil, "exclude patterns, e.g. 'vendor/*' (repeatable)")
	f.Int64VarP(&generateFlags.maxFileSize, "max-size", "s", 0, "maximum file size in bytes (default: TUTOR_MAX_FILE_SIZE or 100000)")
	f.StringVarP(&generateFlags.token, "token", "t", "", "GitHub token (default: GITHUB_TOKEN)")
	f.BoolVar(&generateFlags.noCache, "no-cache", false, "disable the LLM response cache")
	f.IntVar(&generateFlags.maxAttempts, "max-attempts", 0, "attempts per stage (default: TUTOR_MAX_ATTEMPTS or 5)")
	f.DurationVar(&generateFlags.retryWait, "retry-wait", -1, "wait between attempts (default: TUTOR_RETRY_WAIT or 20s)")
	generateCmd.MarkFlagsMutuallyExclusive("repo", "dir")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	source, err := generateSource(args, generateFlags.repo, generateFlags.dir)
	if err != nil {
		return err
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if generateFlags.token != "" {
		settings.GitHubToken = generateFlags.token
	}
	if generateFlags.noCache {
		settings.NoCache = true
	}
	if generateFlags.maxAttempts > 0 {
		settings.MaxAttempts = generateFlags.maxAttempts
	}
	if generateFlags.retryWait >= 0 {
		settings.RetryWait = generateFlags.retryWait
	}

	tel := startTelemetry()
	defer stopTelemetry(tel)

	a, err := openApp(settings, true)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("📂 Source: %s\n", source)
	started := time.Now()
	entry, err := a.Generate(cmd.Context(), app.Options{
		Source:          source,
		Name:            generateFlags.name,
		Language:        generateFlags.language,
		MaxAbstractions: generateFlags.maxAbstractions,
		OutputDir:       generateFlags.output,
		Include:         generateFlags.include,
		Exclude:         generateFlags.exclude,
		MaxFileSize:     generateFlags.maxFileSize,
	}, printProgress)
	if summary, serr := tel.Snapshot(cmd.Context()); serr == nil {
		fmt.Printf("📊 %s\n", summary)
	}
	if err != nil {
		return fmt.Errorf("❌ generate %s: %w", source, err)
	}

	fmt.Printf("✅ Tutorial for %s: %d chapters in %s (%s)\n",
		entry.Project, entry.Chapters, entry.OutputDir, time.Since(started).Round(time.Second))
	if entry.Placeholders > 0 {
		fmt.Printf("⚠️  %d chapter(s) could not be written and contain a placeholder\n", entry.Placeholders)
	}
	fmt.Printf("🆔 %s\n", entry.ID)
	return nil
}

// generateSource picks the single source given as an argument, --repo or --dir.
func generateSource(args []string, repo, dir string) (string, error) {
	var sources []string
	if len(args) == 1 && args[0] != "" {
		sources = append(sources, args[0])
	}
	if repo != "" {
		sources = append(sources, repo)
	}
	if dir != "" {
		sources = append(sources, dir)
	}
	switch len(sources) {
	case 0:
		return "", errors.New("a source is required: pass a GitHub URL or a directory, or use --repo / --dir")
	case 1:
		return sources[0], nil
	default:
		return "", fmt.Errorf("exactly one source is allowed, got %d", len(sources))
	}
}

var stageIcons = map[tutorial.Stage]string{
	tutorial.StageFetchRepo:            "📥",
	tutorial.StageIdentifyAbstractions: "🔍",
	tutorial.StageAnalyzeRelationships: "🔗",
	tutorial.StageOrderChapters:        "📑",
	tutorial.StageWriteChapters:        "✍️ ",
	tutorial.StageCombineTutorial:      "🧩",
	tutorial.StageWriteOutput:          "💾",
}

func printProgress(stage tutorial.Stage, detail string) {
	icon, ok := stageIcons[stage]
	if !ok {
		icon = "•"
	}
	fmt.Printf("%s %s: %s\n", icon, stage, detail)
}

// repotutor turns a codebase into a beginner-friendly tutorial: one Markdown
// chapter per core abstraction, an index page with a relationship diagram
// and a merged single-file copy.
//
// Usage:
//
//	repotutor generate <github-url|dir> [--name=<project>] [--language=<lang>] [-o <dir>]
//	repotutor list [--project=<name>]
//	repotutor show <id|project> [file]
//	repotutor serve
//	repotutor web [--addr=:8080]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "repotutor",
	Short: "Generate beginner-friendly tutorials from a codebase",
	Long: "repotutor crawls a GitHub repository or a local directory, asks an LLM to\n" +
		"identify its core abstractions and how they relate, and writes one tutorial\n" +
		"chapter per abstraction.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

var traceSpans bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&traceSpans, "trace", false, "log every pipeline span")
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(webCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

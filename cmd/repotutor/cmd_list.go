package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pocketomega/repotutor/internal/catalog"
)

var listFlags struct {
	project string
	limit   int
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List generated tutorials, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVarP(&listFlags.project, "project", "p", "", "only tutorials for this project")
	listCmd.Flags().IntVarP(&listFlags.limit, "limit", "l", 20, "maximum number of entries")
}

func runList(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	a, err := openApp(settings, false)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.Catalog.List(listFlags.project, listFlags.limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tutorials generated yet.")
		return nil
	}
	return printEntries(cmd.OutOrStdout(), entries)
}

func printEntries(w io.Writer, entries []catalog.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROJECT\tLANGUAGE\tCHAPTERS\tCREATED\tOUTPUT")
	for _, e := range entries {
		chapters := fmt.Sprint(e.Chapters)
		if e.Placeholders > 0 {
			chapters = fmt.Sprintf("%d (%d missing)", e.Chapters, e.Placeholders)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Project, e.Language, chapters, e.CreatedAt, e.OutputDir)
	}
	return tw.Flush()
}

var showCmd = &cobra.Command{
	Use:   "show <id|project> [file]",
	Short: "Print a generated tutorial file",
	Long: `Prints one file of a generated tutorial. The tutorial is looked up by run
ID, or else the newest tutorial of the named project. Without a file the
index page is printed; --files lists the available files instead.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runShow,
}

var showFiles bool

func init() {
	showCmd.Flags().BoolVar(&showFiles, "files", false, "list the tutorial's files")
}

func runShow(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	a, err := openApp(settings, false)
	if err != nil {
		return err
	}
	defer a.Close()

	entry, err := a.Resolve(args[0])
	if err != nil {
		return fmt.Errorf("tutorial %q: %w", args[0], err)
	}
	out := cmd.OutOrStdout()
	if showFiles {
		names, err := a.Files(entry)
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(out, n)
		}
		return nil
	}

	var file string
	if len(args) == 2 {
		file = args[1]
	}
	content, err := a.ReadFile(entry, file)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, content)
	return err
}


package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/pocketomega/repotutor/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing generate_tutorial,
list_generated_tutorials and get_tutorial_content. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	tel := startTelemetry()
	defer stopTelemetry(tel)

	a, err := openApp(settings, true)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Printf("[MCP] serving repotutor %s over stdio (catalog %s)", server.Version, settings.Catalog())
	return server.Serve(server.New(a))
}

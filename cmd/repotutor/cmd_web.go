package main

import (
	"github.com/spf13/cobra"

	"github.com/pocketomega/repotutor/internal/web"
)

var webAddr string

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Serve the tutorial catalog and a generate form over HTTP",
	Long: `Starts an HTTP server with:

  GET  /                         catalog page with a generate form
  POST /api/generate             run the pipeline, streaming stages as SSE
  GET  /api/tutorials            catalog as JSON
  GET  /tutorials/{id}[/{file}]  generated Markdown
  GET  /api/health               status`,
	Args: cobra.NoArgs,
	RunE: runWeb,
}

func init() {
	webCmd.Flags().StringVar(&webAddr, "addr", "", "listen address (default: :WEB_PORT or :8080)")
}

func runWeb(_ *cobra.Command, _ []string) error {
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

	srv, err := web.NewServer(a, web.HealthInfo{LLMModel: a.Generator.Provider.Model(), Telemetry: tel})
	if err != nil {
		return err
	}
	return srv.Start(webAddr)
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/pocketomega/repotutor/internal/app"
	"github.com/pocketomega/repotutor/internal/config"
	"github.com/pocketomega/repotutor/internal/llm"
	"github.com/pocketomega/repotutor/internal/llm/openai"
	"github.com/pocketomega/repotutor/internal/observability"
)

// loadSettings reads .env and the TUTOR_* environment.
func loadSettings() (*config.Settings, error) {
	if path := config.LoadEnv(); path != "" {
		fmt.Fprintf(os.Stderr, "⚙️  Config: %s\n", path)
	}
	return config.LoadSettings()
}

// startTelemetry installs the OTel SDK providers; --trace logs every span.
func startTelemetry() *observability.Telemetry {
	return observability.Setup(traceSpans)
}

func stopTelemetry(tel *observability.Telemetry) {
	if err := tel.Shutdown(context.Background()); err != nil {
		log.Printf("[Telemetry] shutdown: %v", err)
	}
}

// openApp wires the application. withLLM is false for commands that only
// read the catalog, so they work without LLM credentials.
func openApp(settings *config.Settings, withLLM bool) (*app.App, error) {
	var provider llm.Provider
	if withLLM {
		client, err := openai.NewClientFromEnv()
		if err != nil {
			return nil, fmt.Errorf("initialize LLM client: %w", err)
		}
		cfg := client.GetConfig()
		// stdout belongs to the MCP transport under serve.
		fmt.Fprintf(os.Stderr, "🤖 LLM: %s @ %s (%s)\n", cfg.Model, cfg.BaseURL, cfg.Provider)
		provider = client
	}
	return app.New(settings, provider)
}

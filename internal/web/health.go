package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pocketomega/repotutor/internal/catalog"
	"github.com/pocketomega/repotutor/internal/observability"
)

// HealthInfo holds static status for the health endpoint.
type HealthInfo struct {
	LLMModel  string                   // empty when no provider is configured
	Telemetry *observability.Telemetry // optional; adds run totals
}

// HealthHandler serves GET /api/health.
type HealthHandler struct {
	info      HealthInfo
	catalog   *catalog.Store
	startTime time.Time
}

// NewHealthHandler creates a health handler recording the server start time.
func NewHealthHandler(info HealthInfo, store *catalog.Store) *HealthHandler {
	return &HealthHandler{info: info, catalog: store, startTime: time.Now()}
}

type healthResponse struct {
	Status     string                 `json:"status"`
	UptimeSecs int64                  `json:"uptime_seconds"`
	Components healthComponents       `json:"components"`
	Metrics    *observability.Summary `json:"metrics,omitempty"`
}

type healthComponents struct {
	LLM     healthLLM     `json:"llm"`
	Catalog healthCatalog `json:"catalog"`
}

type healthLLM struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

type healthCatalog struct {
	Status    string `json:"status"`
	Tutorials int    `json:"tutorials"`
}

// ServeHTTP handles GET /api/health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	llmStatus := "ok"
	if h.info.LLMModel == "" {
		llmStatus = "degraded"
	}
	catalogStatus := "ok"
	entries, err := h.catalog.List("", 1000)
	if err != nil {
		catalogStatus = "down"
	}

	status := "ok"
	switch {
	case catalogStatus != "ok":
		status = "down"
	case llmStatus != "ok":
		status = "degraded"
	}

	resp := healthResponse{
		Status:     status,
		UptimeSecs: int64(time.Since(h.startTime).Seconds()),
		Components: healthComponents{
			LLM:     healthLLM{Status: llmStatus, Model: h.info.LLMModel},
			Catalog: healthCatalog{Status: catalogStatus, Tutorials: len(entries)},
		},
	}

	if h.info.Telemetry != nil {
		if summary, err := h.info.Telemetry.Snapshot(r.Context()); err == nil {
			resp.Metrics = &summary
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if status == "down" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(resp)
}

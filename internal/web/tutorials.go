package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pocketomega/repotutor/internal/app"
	"github.com/pocketomega/repotutor/internal/catalog"
	"github.com/pocketomega/repotutor/internal/tutorial"
)

// TutorialHandler serves the catalog and runs generations.
type TutorialHandler struct {
	app *app.App
	// at most one generation runs at a time
	busy *semaphore.Weighted
}

// NewTutorialHandler creates a handler backed by a.
func NewTutorialHandler(a *app.App) *TutorialHandler {
	return &TutorialHandler{app: a, busy: semaphore.NewWeighted(1)}
}

// generateRequest is the POST /api/generate body.
type generateRequest struct {
	Source          string   `json:"source"`
	Name            string   `json:"name,omitempty"`
	Language        string   `json:"language,omitempty"`
	MaxAbstractions int      `json:"max_abstractions,omitempty"`
	Include         []string `json:"include,omitempty"`
	Exclude         []string `json:"exclude,omitempty"`
}

// HandleGenerate runs the pipeline and streams stage events over SSE.
func (h *TutorialHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		http.Error(w, "source is required", http.StatusBadRequest)
		return
	}
	if !h.busy.TryAcquire(1) {
		http.Error(w, "a tutorial is already being generated", http.StatusConflict)
		return
	}
	defer h.busy.Release(1)

	sse := newSSEWriter(w, r)
	if sse == nil {
		return
	}

	log.Printf("[Web] Generating tutorial for %s", req.Source)
	started := time.Now()
	entry, err := h.app.Generate(r.Context(), app.Options{
		Source:          req.Source,
		Name:            req.Name,
		Language:        req.Language,
		MaxAbstractions: req.MaxAbstractions,
		Include:         req.Include,
		Exclude:         req.Exclude,
	}, func(stage tutorial.Stage, detail string) {
		sse.Send(sseEventStage, sseStageEvent{Stage: stage.String(), Detail: detail})
	})
	if err != nil {
		log.Printf("[Web] Generation failed for %s: %v", req.Source, err)
		sse.Send(sseEventError, sseErrorEvent{Error: err.Error()})
		return
	}
	sse.Send(sseEventDone, sseDoneEvent{
		ID:        entry.ID,
		Project:   entry.Project,
		Chapters:  entry.Chapters,
		Missing:   entry.Placeholders,
		OutputDir: entry.OutputDir,
		ElapsedMs: time.Since(started).Milliseconds(),
	})
}

// HandleList serves GET /api/tutorials?project=&limit=.
func (h *TutorialHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := h.app.Catalog.List(q.Get("project"), limit)
	if err != nil {
		log.Printf("[Web] Catalog error: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// HandleFile serves GET /tutorials/{ref}[/{file}] as Markdown.
func (h *TutorialHandler) HandleFile(w http.ResponseWriter, r *http.Request) {
	entry, err := h.app.Resolve(r.PathValue("ref"))
	if errors.Is(err, catalog.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		log.Printf("[Web] Resolve error: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	body, err := h.app.ReadFile(entry, r.PathValue("file"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(body))
}

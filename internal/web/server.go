package web

import (
	"context"
	"embed"
	"html/template"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pocketomega/repotutor/internal/app"
)

//go:embed templates/index.html
var content embed.FS

// Server serves the tutorial catalog, the generated files and a streaming
// generate endpoint.
type Server struct {
	tmpl      *template.Template
	mux       *http.ServeMux
	tutorials *TutorialHandler
	health    *HealthHandler
}

// NewServer creates a web server for a.
func NewServer(a *app.App, info HealthInfo) (*Server, error) {
	tmpl, err := template.ParseFS(content, "templates/index.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		tmpl:      tmpl,
		mux:       http.NewServeMux(),
		tutorials: NewTutorialHandler(a),
		health:    NewHealthHandler(info, a.Catalog),
	}
	s.registerRoutes()
	return s, nil
}

// Handler exposes the route table.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.Handle("/api/health", s.health)
	s.mux.HandleFunc("GET /api/tutorials", s.tutorials.HandleList)
	s.mux.HandleFunc("POST /api/generate", s.tutorials.HandleGenerate)
	s.mux.HandleFunc("GET /tutorials/{ref}", s.tutorials.HandleFile)
	s.mux.HandleFunc("GET /tutorials/{ref}/{file}", s.tutorials.HandleFile)
}

// handleIndex renders the catalog page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	entries, err := s.tutorials.app.Catalog.List(r.URL.Query().Get("project"), 50)
	if err != nil {
		log.Printf("[Web] Catalog error: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if err := s.tmpl.Execute(w, entries); err != nil {
		log.Printf("[Web] Template render error: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// Start listens on addr until SIGINT/SIGTERM, then waits up to 10s for
// in-flight requests. An empty addr uses WEB_PORT or 8080.
func (s *Server) Start(addr string) error {
	if addr == "" {
		port := os.Getenv("WEB_PORT")
		if port == "" {
			port = "8080"
		}
		addr = ":" + port
	}
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Printf("⚡ Received signal %v, shutting down gracefully...", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("⚠️  Graceful shutdown error: %v", err)
		}
	}()

	log.Printf("🌐 repotutor running at http://localhost%s", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		log.Println("✅ Server stopped gracefully")
		return nil
	}
	return err
}

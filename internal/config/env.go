package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// EnvFileVar names an explicit .env file, checked before the search path.
const EnvFileVar = "TUTOR_ENV_FILE"

// LoadEnv loads the first .env file found and returns its path, or "" when
// none was loaded. Values already in the environment are never overridden.
//
// With explicit paths only those are tried. Otherwise the search order is
// $TUTOR_ENV_FILE, the executable's directory and up to three parents, and
// the working directory.
func LoadEnv(paths ...string) string {
	candidates := paths
	if len(candidates) == 0 {
		candidates = envCandidates()
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			log.Printf("[Config] Failed to load %s: %v", p, err)
			return ""
		}
		log.Printf("[Config] Loaded .env from %s", p)
		return p
	}
	log.Printf("[Config] No .env file found (searched: %v), using system environment variables", candidates)
	return ""
}

// envCandidates returns the deduplicated .env paths to probe, in order.
func envCandidates() []string {
	var candidates []string
	seen := map[string]bool{}
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			candidates = append(candidates, p)
		}
	}

	if p := os.Getenv(EnvFileVar); p != "" {
		add(p)
	}
	// bin/repotutor finds the project-root .env.
	if exe, err := os.Executable(); err == nil {
		if real, err := filepath.EvalSymlinks(exe); err == nil {
			exe = real
		}
		dir := filepath.Dir(exe)
		for i := 0; i <= 3; i++ {
			add(filepath.Join(dir, ".env"))
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		add(filepath.Join(cwd, ".env"))
	}
	return candidates
}

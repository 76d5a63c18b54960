package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultIncludePatterns selects source and documentation files.
var DefaultIncludePatterns = []string{
	"*.py", "*.js", "*.jsx", "*.ts", "*.tsx", "*.go", "*.java", "*.pyi", "*.pyx",
	"*.c", "*.cc", "*.cpp", "*.h", "*.md", "*.rst", "*Dockerfile",
	"*Makefile", "*.yaml", "*.yml",
}

// DefaultExcludePatterns skips assets, build output, tests and vendored trees.
var DefaultExcludePatterns = []string{
	"assets/*", "data/*", "images/*", "public/*", "static/*", "temp/*",
	"*docs/*", "*venv/*", "*.venv/*", "*test*", "*tests/*", "*examples/*",
	"v1/*", "*dist/*", "*build/*", "*experimental/*", "*deprecated/*",
	"*misc/*", "*legacy/*", ".git/*", ".github/*", ".next/*", ".vscode/*",
	"*obj/*", "*bin/*", "*node_modules/*", "*.log",
}

// Settings holds the tutorial generator configuration.
// CLI flags override the values loaded from the environment.
type Settings struct {
	OutputDir       string        // TUTOR_OUTPUT_DIR (default: docs)
	Language        string        // TUTOR_LANGUAGE (default: english)
	MaxAbstractions int           // TUTOR_MAX_ABSTRACTIONS (default: 10)
	MaxFileSize     int64         // TUTOR_MAX_FILE_SIZE in bytes (default: 100000)
	Include         []string      // TUTOR_INCLUDE, comma separated
	Exclude         []string      // TUTOR_EXCLUDE, comma separated
	GitHubToken     string        // GITHUB_TOKEN
	NoCache         bool          // TUTOR_NO_CACHE
	MaxAttempts     int           // TUTOR_MAX_ATTEMPTS per stage (default: 5)
	RetryWait       time.Duration // TUTOR_RETRY_WAIT (default: 20s)
	CatalogPath     string        // TUTOR_CATALOG (default: <OutputDir>/catalog.db)
	PromptsDir      string        // TUTOR_PROMPTS_DIR, optional template overrides
	RulesPath       string        // TUTOR_RULES, optional extra instructions file
	MaxPromptTokens int           // LLM_MAX_PROMPT_TOKENS, 0 = derived from the model
}

// LoadSettings reads Settings from the environment.
func LoadSettings() (*Settings, error) {
	s := &Settings{
		OutputDir:   getEnv("TUTOR_OUTPUT_DIR", "docs"),
		Language:    getEnv("TUTOR_LANGUAGE", "english"),
		Include:     getList("TUTOR_INCLUDE", DefaultIncludePatterns),
		Exclude:     getList("TUTOR_EXCLUDE", DefaultExcludePatterns),
		GitHubToken: os.Getenv("GITHUB_TOKEN"),
		CatalogPath: os.Getenv("TUTOR_CATALOG"),
		PromptsDir:  os.Getenv("TUTOR_PROMPTS_DIR"),
		RulesPath:   os.Getenv("TUTOR_RULES"),
	}

	var err error
	if s.MaxAbstractions, err = getInt("TUTOR_MAX_ABSTRACTIONS", 10); err != nil {
		return nil, err
	}
	size, err := getInt("TUTOR_MAX_FILE_SIZE", 100_000)
	if err != nil {
		return nil, err
	}
	s.MaxFileSize = int64(size)
	if s.MaxAttempts, err = getInt("TUTOR_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if s.MaxPromptTokens, err = getInt("LLM_MAX_PROMPT_TOKENS", 0); err != nil {
		return nil, err
	}
	if s.RetryWait, err = getDuration("TUTOR_RETRY_WAIT", 20*time.Second); err != nil {
		return nil, err
	}
	if v := os.Getenv("TUTOR_NO_CACHE"); v != "" {
		if s.NoCache, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("TUTOR_NO_CACHE: %w", err)
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks if the settings are usable.
func (s *Settings) Validate() error {
	if s.OutputDir == "" {
		return fmt.Errorf("TUTOR_OUTPUT_DIR cannot be empty")
	}
	if s.MaxAbstractions < 1 {
		return fmt.Errorf("TUTOR_MAX_ABSTRACTIONS must be at least 1, got %d", s.MaxAbstractions)
	}
	if s.MaxFileSize <= 0 {
		return fmt.Errorf("TUTOR_MAX_FILE_SIZE must be positive, got %d", s.MaxFileSize)
	}
	if s.MaxAttempts < 1 {
		return fmt.Errorf("TUTOR_MAX_ATTEMPTS must be at least 1, got %d", s.MaxAttempts)
	}
	if s.RetryWait < 0 {
		return fmt.Errorf("TUTOR_RETRY_WAIT cannot be negative, got %v", s.RetryWait)
	}
	return nil
}

// Catalog returns the catalog database path.
func (s *Settings) Catalog() string {
	if s.CatalogPath != "" {
		return s.CatalogPath
	}
	return filepath.Join(s.OutputDir, "catalog.db")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return append([]string(nil), def...)
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

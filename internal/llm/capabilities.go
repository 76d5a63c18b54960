package llm

import "strings"

// charsPerToken is the rough size estimate used for prompt budgeting.
const charsPerToken = 4

// defaultContextWindow applies to models GetContextWindow does not know.
const defaultContextWindow = 128_000

// GetContextWindow returns the approximate context window in tokens for a known model.
// Returns 0 for unrecognised models; callers should apply their own safe default.
// Ordered from most to least specific prefix to avoid short-prefix false matches.
func GetContextWindow(modelName string) int {
	lower := strings.ToLower(modelName)
	parts := strings.Split(lower, "/")
	baseName := parts[len(parts)-1]

	knownWindows := []struct {
		prefix string
		tokens int
	}{
		// OpenAI
		{"gpt-4.1", 1_000_000},
		{"gpt-4o", 128_000},
		{"gpt-4-turbo", 128_000},
		{"gpt-4", 8_192},
		{"gpt-5", 400_000},
		{"gpt-3.5-turbo", 16_385},
		{"o1-mini", 128_000},
		{"o1", 200_000},
		{"o3", 200_000},
		{"o4-mini", 200_000},
		// Anthropic
		{"claude", 200_000},
		// DeepSeek
		{"deepseek", 64_000},
		// Google Gemini
		{"gemini-1.5-pro", 2_000_000},
		{"gemini", 1_000_000},
		// Alibaba Qwen
		{"qwq", 32_000},
		{"qwen3", 32_000},
		{"qwen2.5", 128_000},
		// Local models served through Ollama
		{"llama3", 128_000},
		{"mistral", 32_000},
	}

	for _, kw := range knownWindows {
		if strings.HasPrefix(baseName, kw.prefix) {
			return kw.tokens
		}
	}
	return 0 // unknown model; caller applies a default
}

// PromptBudget returns how many prompt tokens the gateway lets through for
// the model: 90% of its context window, leaving room for the response.
func PromptBudget(modelName string) int {
	window := GetContextWindow(modelName)
	if window == 0 {
		window = defaultContextWindow
	}
	return window / 10 * 9
}

// EstimateTokens approximates the token count of text.
func EstimateTokens(text string) int {
	return len(text) / charsPerToken
}

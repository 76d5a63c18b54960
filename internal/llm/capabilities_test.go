package llm

import "testing"

func TestGetContextWindow(t *testing.T) {
	tests := []struct {
		name      string
		modelName string
		want      int
	}{
		{"GPT-4o", "gpt-4o", 128_000},
		{"GPT-4o mini", "gpt-4o-mini", 128_000},
		{"GPT-4.1 before GPT-4", "gpt-4.1", 1_000_000},
		{"GPT-4 legacy", "gpt-4-0613", 8_192},
		{"o1-mini before o1", "o1-mini", 128_000},
		{"Claude with date", "claude-sonnet-4-20250514", 200_000},
		{"Gemini via OpenRouter", "google/gemini-2.5-flash", 1_000_000},
		{"Gemini 1.5 pro", "gemini-1.5-pro-latest", 2_000_000},
		{"DeepSeek with provider prefix", "Pro/deepseek-ai/DeepSeek-V3", 64_000},
		{"Unknown model", "my-local-model", 0},
		{"Empty model name", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetContextWindow(tt.modelName); got != tt.want {
				t.Errorf("GetContextWindow(%q) = %d, want %d", tt.modelName, got, tt.want)
			}
		})
	}
}

func TestPromptBudget(t *testing.T) {
	if got := PromptBudget("gemini-2.0-flash"); got != 900_000 {
		t.Errorf("expected 900000 for a 1M-token model, got %d", got)
	}
	if got := PromptBudget("unknown"); got != 115_200 {
		t.Errorf("expected default budget 115200, got %d", got)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens("12345678"); got != 2 {
		t.Errorf("expected 2 tokens, got %d", got)
	}
}

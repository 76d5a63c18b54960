// Package llm is the gateway between pipeline stages and a language model.
//
// Stages see a single operation, Gateway.Call(ctx, prompt) -> text. Provider
// selection lives in the provider implementations (see internal/llm/openai);
// the gateway adds the prompt-size guard, the run-scoped response cache and
// error classification.
package llm

import "context"

// Message represents a chat message for LLM communication.
type Message struct {
	Role    string `json:"role"`    // "user", "assistant", "system"
	Content string `json:"content"` // The message text
}

// Provider defines the interface for all LLM implementations.
// Any OpenAI-compatible endpoint (OpenRouter, Gemini, Ollama, vLLM, etc.)
// can be used by implementing this interface.
type Provider interface {
	// CallLLM sends messages to the LLM and returns the complete response.
	CallLLM(ctx context.Context, messages []Message) (Message, error)

	// Model names the model requests are sent to.
	Model() string
}

// Role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

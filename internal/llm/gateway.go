package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pocketomega/repotutor/internal/core"
	"github.com/pocketomega/repotutor/internal/observability"
)

// ErrEmptyResponse is returned when the provider answers with no text.
var ErrEmptyResponse = errors.New("empty response from LLM")

// GatewayOptions tunes a Gateway. Zero values select defaults.
type GatewayOptions struct {
	// MaxPromptTokens caps the estimated prompt size; 0 derives it from the
	// provider's model via PromptBudget.
	MaxPromptTokens int
	// DisableCache turns off the run cache.
	DisableCache bool
	// SystemPrompt, when set, is sent ahead of every prompt.
	SystemPrompt string
}

// Gateway is the single entry point stages use to reach the model.
// Create one Gateway per pipeline run; its cache lives as long as it does.
type Gateway struct {
	provider  Provider
	cache     *Cache
	maxTokens int
	system    string
	metrics   observability.MetricsRecorder
}

// NewGateway wraps provider for one run.
func NewGateway(provider Provider, opts GatewayOptions) *Gateway {
	g := &Gateway{
		provider:  provider,
		maxTokens: opts.MaxPromptTokens,
		system:    opts.SystemPrompt,
		metrics:   observability.NewMetricsRecorder(),
	}
	if g.maxTokens <= 0 {
		g.maxTokens = PromptBudget(provider.Model())
	}
	if !opts.DisableCache {
		g.cache = NewCache()
	}
	return g
}

// Cache returns the run cache, or nil when caching is disabled.
func (g *Gateway) Cache() *Cache { return g.cache }

// Call sends prompt to the model and returns its raw text.
//
// Every failure to obtain text is returned as a core ProviderError, except
// context cancellation which is returned unchanged.
func (g *Gateway) Call(ctx context.Context, prompt string) (string, error) {
	prompt = g.fit(prompt)

	if g.cache != nil {
		if resp, ok := g.cache.Get(prompt); ok {
			log.Printf("[LLM] Cache hit (%d chars)", len(resp))
			g.metrics.RecordLLMCall(ctx, g.provider.Model(), 0, true, nil)
			return resp, nil
		}
	}

	start := time.Now()
	ctx, span := observability.StartLLMSpan(ctx, g.provider.Model(), len(prompt))
	resp, err := g.call(ctx, prompt)
	observability.EndSpanWithError(span, err)
	g.metrics.RecordLLMCall(ctx, g.provider.Model(), time.Since(start), false, err)
	if err != nil {
		return "", err
	}

	log.Printf("[LLM] %s: prompt %d chars → response %d chars in %v",
		g.provider.Model(), len(prompt), len(resp), time.Since(start).Round(time.Millisecond))
	if g.cache != nil {
		g.cache.Put(prompt, resp)
	}
	return resp, nil
}

// Reject evicts the cached response for prompt so the next identical call
// reaches the provider again. Stages call it when a response fails to parse
// or validate.
func (g *Gateway) Reject(prompt string) {
	if g.cache != nil {
		g.cache.Forget(g.fit(prompt))
	}
}

func (g *Gateway) call(ctx context.Context, prompt string) (string, error) {
	messages := make([]Message, 0, 2)
	if g.system != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: g.system})
	}
	messages = append(messages, Message{Role: RoleUser, Content: prompt})

	msg, err := g.provider.CallLLM(ctx, messages)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", core.ProviderError(fmt.Errorf("llm call: %w", err))
	}
	if strings.TrimSpace(msg.Content) == "" {
		return "", core.ProviderError(ErrEmptyResponse)
	}
	return msg.Content, nil
}

// fit truncates prompts whose estimated size exceeds the token budget,
// keeping the first and last third around a truncation note.
func (g *Gateway) fit(prompt string) string {
	tokens := EstimateTokens(prompt)
	if tokens <= g.maxTokens {
		return prompt
	}
	targetChars := g.maxTokens * charsPerToken * 7 / 8
	keep := targetChars / 3
	log.Printf("[LLM] Prompt too long (%d tokens), truncating to fit %d tokens", tokens, g.maxTokens)
	head, tail := keep, len(prompt)-keep
	for head > 0 && !utf8.RuneStart(prompt[head]) {
		head--
	}
	for tail < len(prompt) && !utf8.RuneStart(prompt[tail]) {
		tail++
	}
	return prompt[:head] +
		fmt.Sprintf("\n\n... [CONTENT TRUNCATED - Original length: %d chars, %d tokens] ...\n\n", len(prompt), tokens) +
		prompt[tail:]
}

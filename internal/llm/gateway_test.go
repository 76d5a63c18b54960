package llm_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pocketomega/repotutor/internal/core"
	"github.com/pocketomega/repotutor/internal/llm"
	"github.com/pocketomega/repotutor/internal/llm/llmtest"
)

// ── Call ──

func TestGateway_ReturnsProviderText(t *testing.T) {
	p := llmtest.New("hello")
	gw := llm.NewGateway(p, llm.GatewayOptions{})

	got, err := gw.Call(context.Background(), "say hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Errorf("expected %q, got %q", "hello", got)
	}
	if prompts := p.Prompts(); len(prompts) != 1 || prompts[0] != "say hi" {
		t.Errorf("expected prompt forwarded unchanged, got %v", prompts)
	}
}

func TestGateway_ProviderFailureIsProviderError(t *testing.T) {
	gw := llm.NewGateway(llmtest.Failing(errors.New("503 service unavailable")), llm.GatewayOptions{})

	_, err := gw.Call(context.Background(), "x")
	if core.KindOf(err) != core.KindProvider {
		t.Errorf("expected provider kind, got %s (%v)", core.KindOf(err), err)
	}
	if !core.IsRetryable(err) {
		t.Error("provider errors must be retryable")
	}
}

func TestGateway_EmptyResponseIsProviderError(t *testing.T) {
	gw := llm.NewGateway(llmtest.New("   \n"), llm.GatewayOptions{})

	_, err := gw.Call(context.Background(), "x")
	if !errors.Is(err, llm.ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
	if core.KindOf(err) != core.KindProvider {
		t.Errorf("expected provider kind, got %s", core.KindOf(err))
	}
}

func TestGateway_CancelledContextNotWrapped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gw := llm.NewGateway(llmtest.New("unused"), llm.GatewayOptions{})

	_, err := gw.Call(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if core.IsRetryable(err) {
		t.Error("cancellation must not be retryable")
	}
}

func TestGateway_SystemPromptSentFirst(t *testing.T) {
	var seen []llm.Message
	p := &recordingProvider{onCall: func(m []llm.Message) { seen = m }}
	gw := llm.NewGateway(p, llm.GatewayOptions{SystemPrompt: "be terse"})

	if _, err := gw.Call(context.Background(), "question"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 2 || seen[0].Role != llm.RoleSystem || seen[1].Role != llm.RoleUser {
		t.Errorf("expected [system user], got %+v", seen)
	}
}

// ── Cache ──

func TestGateway_CacheServesRepeatedPrompt(t *testing.T) {
	p := llmtest.New("first", "second")
	gw := llm.NewGateway(p, llm.GatewayOptions{})

	a, _ := gw.Call(context.Background(), "same")
	b, _ := gw.Call(context.Background(), "same")
	if a != "first" || b != "first" {
		t.Errorf("expected cached reply, got %q then %q", a, b)
	}
	if p.Calls() != 1 {
		t.Errorf("expected 1 provider call, got %d", p.Calls())
	}
	hits, misses := gw.Cache().Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit / 1 miss, got %d / %d", hits, misses)
	}
}

func TestGateway_RejectEvicts(t *testing.T) {
	p := llmtest.New("bad", "good")
	gw := llm.NewGateway(p, llm.GatewayOptions{})

	first, _ := gw.Call(context.Background(), "p")
	gw.Reject("p")
	second, _ := gw.Call(context.Background(), "p")
	if first != "bad" || second != "good" {
		t.Errorf("expected fresh call after Reject, got %q then %q", first, second)
	}
}

func TestGateway_FailedCallNotCached(t *testing.T) {
	p := (&llmtest.Scripted{}).Queue(
		llmtest.Reply{Err: errors.New("timeout")},
		llmtest.Reply{Text: "ok"},
	)
	gw := llm.NewGateway(p, llm.GatewayOptions{})

	if _, err := gw.Call(context.Background(), "p"); err == nil {
		t.Fatal("expected first call to fail")
	}
	got, err := gw.Call(context.Background(), "p")
	if err != nil || got != "ok" {
		t.Errorf("expected retry to reach provider, got %q (%v)", got, err)
	}
}

func TestGateway_CacheDisabled(t *testing.T) {
	p := llmtest.New("a", "b")
	gw := llm.NewGateway(p, llm.GatewayOptions{DisableCache: true})

	_, _ = gw.Call(context.Background(), "same")
	_, _ = gw.Call(context.Background(), "same")
	if p.Calls() != 2 {
		t.Errorf("expected 2 provider calls, got %d", p.Calls())
	}
	if gw.Cache() != nil {
		t.Error("expected nil cache when disabled")
	}
}

func TestGateway_SeparateGatewaysDoNotShareCache(t *testing.T) {
	p := llmtest.New("run1", "run2")
	a, _ := llm.NewGateway(p, llm.GatewayOptions{}).Call(context.Background(), "same")
	b, _ := llm.NewGateway(p, llm.GatewayOptions{}).Call(context.Background(), "same")
	if a == b {
		t.Errorf("expected each run to call the provider, got %q twice", a)
	}
}

// ── prompt guard ──

func TestGateway_TruncatesOversizedPrompt(t *testing.T) {
	p := llmtest.Always("ok")
	gw := llm.NewGateway(p, llm.GatewayOptions{MaxPromptTokens: 100})

	prompt := "HEAD" + strings.Repeat("x", 2000) + "TAIL"
	if _, err := gw.Call(context.Background(), prompt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sent := p.Prompts()[0]
	if len(sent) >= len(prompt) {
		t.Errorf("expected truncated prompt, got %d chars", len(sent))
	}
	if !strings.HasPrefix(sent, "HEAD") || !strings.HasSuffix(sent, "TAIL") {
		t.Error("expected head and tail to survive truncation")
	}
	if !strings.Contains(sent, "CONTENT TRUNCATED") {
		t.Error("expected truncation marker")
	}
}

func TestGateway_SmallPromptUntouched(t *testing.T) {
	p := llmtest.Always("ok")
	gw := llm.NewGateway(p, llm.GatewayOptions{MaxPromptTokens: 100})

	_, _ = gw.Call(context.Background(), "short prompt")
	if p.Prompts()[0] != "short prompt" {
		t.Errorf("expected prompt unchanged, got %q", p.Prompts()[0])
	}
}

// ── helpers ──

type recordingProvider struct {
	onCall func([]llm.Message)
}

func (r *recordingProvider) CallLLM(_ context.Context, m []llm.Message) (llm.Message, error) {
	r.onCall(m)
	return llm.Message{Role: llm.RoleAssistant, Content: "ok"}, nil
}

func (r *recordingProvider) Model() string { return "recording" }

// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/pocketomega/repotutor/internal/llm"
)

// ErrExhausted is returned once every scripted reply has been consumed.
var ErrExhausted = errors.New("llmtest: no scripted reply left")

// Reply is one scripted provider outcome.
type Reply struct {
	Text string
	Err  error
}

// Scripted answers calls with queued replies, in order, and records every
// prompt it receives. When Repeat is set, the last reply is reused once
// the queue is empty.
type Scripted struct {
	mu      sync.Mutex
	replies []Reply
	prompts []string
	Repeat  bool
	Name    string
	// Respond, when set, overrides the queue and computes the reply from the
	// prompt.
	Respond func(prompt string) Reply
}

// New returns a Scripted provider answering with texts in order.
func New(texts ...string) *Scripted {
	s := &Scripted{}
	for _, t := range texts {
		s.replies = append(s.replies, Reply{Text: t})
	}
	return s
}

// Always returns a provider answering every call with text.
func Always(text string) *Scripted {
	s := New(text)
	s.Repeat = true
	return s
}

// Failing returns a provider failing every call with err.
func Failing(err error) *Scripted {
	s := &Scripted{replies: []Reply{{Err: err}}, Repeat: true}
	return s
}

// Queue appends replies.
func (s *Scripted) Queue(replies ...Reply) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, replies...)
	return s
}

// CallLLM implements llm.Provider.
func (s *Scripted) CallLLM(ctx context.Context, messages []llm.Message) (llm.Message, error) {
	if err := ctx.Err(); err != nil {
		return llm.Message{}, err
	}
	prompt := ""
	if len(messages) > 0 {
		prompt = messages[len(messages)-1].Content
	}

	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	var r Reply
	switch {
	case s.Respond != nil:
		s.mu.Unlock()
		r = s.Respond(prompt)
		s.mu.Lock()
	case len(s.replies) == 0:
		r = Reply{Err: ErrExhausted}
	case len(s.replies) == 1 && s.Repeat:
		r = s.replies[0]
	default:
		r = s.replies[0]
		s.replies = s.replies[1:]
	}
	s.mu.Unlock()

	if r.Err != nil {
		return llm.Message{}, r.Err
	}
	return llm.Message{Role: llm.RoleAssistant, Content: r.Text}, nil
}

// Model implements llm.Provider.
func (s *Scripted) Model() string {
	if s.Name != "" {
		return s.Name
	}
	return "scripted"
}

// Prompts returns a copy of every prompt received, oldest first.
func (s *Scripted) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Calls returns how many calls were made.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

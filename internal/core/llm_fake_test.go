package core_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"nikolabs.io/companion-service/internal/core"
	"nikolabs.io/companion-service/internal/persona"
	"nikolabs.io/companion-service/internal/store"
)

type llmCall struct {
	SystemPrompt string
	UserText     string
}

// fakeLLM is a scripted stand-in for the Gemini-backed service. It records
// every call so tests can assert on prompts and call cadence.
type fakeLLM struct {
	completeFn func(systemPrompt, userText string) (string, error)
	embedFn    func(text string) ([]float32, error)
	calls      []llmCall
}

func (f *fakeLLM) Complete(_ context.Context, systemPrompt, userText string) (string, error) {
	f.calls = append(f.calls, llmCall{SystemPrompt: systemPrompt, UserText: userText})
	if f.completeFn == nil {
		return "ok", nil
	}
	return f.completeFn(systemPrompt, userText)
}

func (f *fakeLLM) Embed(_ context.Context, text string) ([]float32, error) {
	if f.embedFn == nil {
		return []float32{0.5, 0.5}, nil
	}
	return f.embedFn(text)
}

func (f *fakeLLM) summaryCalls() []llmCall {
	var out []llmCall
	for _, c := range f.calls {
		if strings.Contains(c.SystemPrompt, "Summarize this conversation") {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeLLM) titleCalls() []llmCall {
	var out []llmCall
	for _, c := range f.calls {
		if c.SystemPrompt == "" && strings.Contains(c.UserText, "generate a short, concise title") {
			out = append(out, c)
		}
	}
	return out
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestChatService(t *testing.T, llm core.LanguageModel) (*core.ChatService, *store.SQLiteStore, int64) {
	t.Helper()
	s := newTestStore(t)
	user, err := s.CreateUser("alice@example.com", "Alice")
	require.NoError(t, err)
	svc := core.NewChatService(s, persona.NewRegistry(s), llm)
	return svc, s, user.ID
}

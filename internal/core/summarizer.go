package core

import (
	"context"
	"log"
	"strings"

	"nikolabs.io/companion-service/internal/store"
)

const summaryInstruction = "Summarize this conversation in 2-3 sentences, focusing on key topics, emotions, " +
	"and context that would be helpful for continuing the conversation later. " +
	"Be concise but capture the essence of the interaction."

// Summarizer condenses a transcript into a short running summary. It never
// fails its caller: any gateway error collapses to an empty string, which
// callers treat as "no summary update".
type Summarizer struct {
	llm LanguageModel
}

func NewSummarizer(llm LanguageModel) *Summarizer {
	return &Summarizer{llm: llm}
}

func (s *Summarizer) Summarize(ctx context.Context, messages []store.Message) string {
	if len(messages) == 0 {
		return ""
	}

	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, msg.Type+": "+msg.Text)
	}

	summary, err := s.llm.Complete(ctx, summaryInstruction, strings.Join(lines, "\n"))
	if err != nil {
		log.Printf("Failed to summarize conversation: %v", err)
		return ""
	}
	return strings.TrimSpace(summary)
}

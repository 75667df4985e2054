package core

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// DefaultTitle is used whenever title generation fails or produces nothing.
const DefaultTitle = "New Chat"

// TitleGenerator produces a short chat title from the first exchange. Like
// the summarizer it absorbs every failure into a safe default.
type TitleGenerator struct {
	llm LanguageModel
}

func NewTitleGenerator(llm LanguageModel) *TitleGenerator {
	return &TitleGenerator{llm: llm}
}

func (g *TitleGenerator) Generate(ctx context.Context, userText, aiText string) string {
	prompt := fmt.Sprintf("Based on this conversation, generate a short, concise title (maximum 4-5 words) "+
		"that captures the main topic or question. Only return the title, nothing else.\n\n"+
		"User: %s\nAI: %s\n\nTitle:", userText, aiText)

	raw, err := g.llm.Complete(ctx, "", prompt)
	if err != nil {
		log.Printf("Failed to generate chat title: %v", err)
		return DefaultTitle
	}

	title := stripSurroundingQuotes(strings.TrimSpace(raw))
	if title == "" {
		return DefaultTitle
	}
	return title
}

// stripSurroundingQuotes removes one layer of quote characters; the upstream
// model has a habit of quoting titles.
func stripSurroundingQuotes(s string) string {
	if len(s) > 0 && (s[0] == '"' || s[0] == '\'') {
		s = s[1:]
	}
	if len(s) > 0 && (s[len(s)-1] == '"' || s[len(s)-1] == '\'') {
		s = s[:len(s)-1]
	}
	return s
}

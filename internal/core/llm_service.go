package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"nikolabs.io/companion-service/internal/config"
)

const (
	defaultChatModelName      = "gemini-2.0-flash"
	defaultEmbeddingModelName = "text-embedding-004"
)

// LanguageModel is the outbound text-completion contract. The completion
// gateway, summarizer and title generator all speak through it, and tests
// substitute scripted fakes.
type LanguageModel interface {
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LLMService wraps the Gemini client. Each call is an independent outbound
// request under a bounded timeout; there is no shared mutable state between
// invocations.
type LLMService struct {
	client  *genai.Client
	timeout time.Duration
}

func NewLLMService() *LLMService {
	timeout := time.Duration(config.AppConfig.LLMTimeoutSeconds) * time.Second

	if config.AppConfig.GeminiAPIKey == "" {
		// Leave the client nil; calls fail with ErrNotConfigured without
		// ever touching the network.
		return &LLMService{timeout: timeout}
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(config.AppConfig.GeminiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create GenAI client: %v", err)
	}
	return &LLMService{client: client, timeout: timeout}
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		}
	}
}

func (s *LLMService) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	if s.client == nil {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	model := s.client.GenerativeModel(defaultChatModelName)
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(userText))
	if err != nil {
		return "", classifyError(err)
	}

	text := extractCandidateText(resp)
	if text == "" {
		// Treat a well-formed response with nothing in it as an upstream
		// failure rather than an empty success.
		return "", &UpstreamError{Status: http.StatusBadGateway, Body: "upstream returned an empty response"}
	}
	return text, nil
}

func (s *LLMService) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.client == nil {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	em := s.client.EmbeddingModel(defaultEmbeddingModelName)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, classifyError(err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received")
	}
	return res.Embedding.Values, nil
}

// classifyError maps SDK failures onto the gateway taxonomy: an error the
// remote service reported becomes UpstreamError, anything else (including a
// hung call hitting the timeout) becomes TransportError.
func classifyError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &UpstreamError{Status: apiErr.Code, Body: apiErr.Body}
	}
	return &TransportError{Err: err}
}

func extractCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"nikolabs.io/companion-service/internal/core"
	"nikolabs.io/companion-service/internal/store"
)

type CompletionRequest struct {
	Text        string `json:"text"`
	Persona     string `json:"persona"`
	ChatSummary string `json:"chat_summary"`
}

// CompletionHandler is the raw persona-prompted completion endpoint. Unlike
// the message endpoint it surfaces gateway failures instead of substituting
// fallback text.
func (h *APIHandler) CompletionHandler(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	var req CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "Text is required", http.StatusBadRequest)
		return
	}

	reply, err := h.chats.Complete(r.Context(), userID, req.Persona, req.ChatSummary, req.Text)
	if err != nil {
		writeLLMError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

type SummarizeRequest struct {
	Messages []store.Message `json:"messages"`
}

// SummarizeHandler never reports a hard failure: an empty summary is the
// caller's safe default.
func (h *APIHandler) SummarizeHandler(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusOK, map[string]string{"summary": ""})
			return
		}
	}

	summary := h.chats.Summarize(r.Context(), req.Messages)
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

type TitleRequest struct {
	UserMessage string `json:"user_message"`
	AIResponse  string `json:"ai_response"`
}

func (h *APIHandler) TitleHandler(w http.ResponseWriter, r *http.Request) {
	var req TitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	title := h.chats.GenerateTitle(r.Context(), req.UserMessage, req.AIResponse)
	writeJSON(w, http.StatusOK, map[string]string{"title": title})
}

type PersonalityRequest struct {
	Name              string                   `json:"name"`
	Gender            string                   `json:"gender"`
	PersonalityTraits []store.PersonalityTrait `json:"personality_traits"`
}

func (h *APIHandler) PersonalityHandler(w http.ResponseWriter, r *http.Request) {
	var req PersonalityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	description, err := h.companions.GenerateDescription(r.Context(), req.Name, req.Gender, req.PersonalityTraits)
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeLLMError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"description": description})
}

// writeLLMError maps the gateway taxonomy onto HTTP statuses. Upstream error
// bodies stay in the server log; the client only sees a generic notice.
func writeLLMError(w http.ResponseWriter, err error) {
	var upstream *core.UpstreamError
	switch {
	case errors.Is(err, core.ErrNotConfigured):
		http.Error(w, "GEMINI_API_KEY is not configured", http.StatusInternalServerError)
	case errors.As(err, &upstream):
		log.Printf("Upstream LLM error: %v", err)
		status := upstream.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		http.Error(w, "Failed to get response from language model", status)
	default:
		log.Printf("LLM transport error: %v", err)
		http.Error(w, "Could not reach the language model", http.StatusBadGateway)
	}
}

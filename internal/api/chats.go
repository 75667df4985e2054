package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"nikolabs.io/companion-service/internal/core"
	"nikolabs.io/companion-service/internal/store"
)

func (h *APIHandler) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	chats, err := h.chats.ListChats(userID)
	if err != nil {
		log.Printf("Error listing chats for user %d: %v", userID, err)
		http.Error(w, "Failed to list chats", http.StatusInternalServerError)
		return
	}
	if chats == nil {
		chats = []store.Chat{}
	}
	writeJSON(w, http.StatusOK, chats)
}

type CreateChatRequest struct {
	Title    string          `json:"title"`
	Persona  string          `json:"persona"`
	Messages []store.Message `json:"messages"`
}

func (h *APIHandler) CreateChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	var req CreateChatRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	chat, err := h.chats.CreateChat(userID, req.Title, req.Persona, req.Messages)
	if err != nil {
		log.Printf("Error creating chat for user %d: %v", userID, err)
		http.Error(w, "Failed to create chat", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

func (h *APIHandler) GetChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	chatID := chi.URLParam(r, "chatID")

	chat, err := h.chats.GetChat(userID, chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Chat not found", http.StatusNotFound)
			return
		}
		log.Printf("Error getting chat %s for user %d: %v", chatID, userID, err)
		http.Error(w, "Failed to get chat", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

type UpdateChatRequest struct {
	Title    *string          `json:"title"`
	Messages *[]store.Message `json:"messages"`
	Summary  *string          `json:"summary"`
}

// UpdateChatHandler accepts either a rename ({title}) or a transcript save
// ({messages, summary}); the two never travel together.
func (h *APIHandler) UpdateChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	chatID := chi.URLParam(r, "chatID")

	var req UpdateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var chat *store.Chat
	var err error
	switch {
	case req.Title != nil:
		chat, err = h.chats.RenameChat(userID, chatID, *req.Title)
	case req.Messages != nil:
		summary := ""
		if req.Summary != nil {
			summary = *req.Summary
		}
		chat, err = h.chats.SaveChat(userID, chatID, *req.Messages, summary)
	default:
		http.Error(w, "Nothing to update", http.StatusBadRequest)
		return
	}

	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Chat not found", http.StatusNotFound)
			return
		}
		log.Printf("Error updating chat %s for user %d: %v", chatID, userID, err)
		http.Error(w, "Failed to update chat", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (h *APIHandler) DeleteChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	chatID := chi.URLParam(r, "chatID")

	// The HTTP layer holds no session state; active-session clearing is the
	// client's side of the delete transition.
	if _, err := h.chats.DeleteChat(userID, chatID, core.Session{}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Chat not found", http.StatusNotFound)
			return
		}
		log.Printf("Error deleting chat %s for user %d: %v", chatID, userID, err)
		http.Error(w, "Failed to delete chat", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Chat deleted successfully"})
}

type SendMessageRequest struct {
	ChatID   string          `json:"chat_id"`
	Persona  string          `json:"persona"`
	Summary  string          `json:"summary"`
	Messages []store.Message `json:"messages"`
	Text     string          `json:"text"`
}

type SendMessageResponse struct {
	core.Session
	Reply string `json:"reply"`
}

// SendMessageHandler runs one append-and-respond cycle. The session state
// travels with the request and response; the server keeps none of it.
func (h *APIHandler) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	// An empty persona id falls back to the default downstream, both in
	// prompt resolution and at chat creation.
	sess := core.Session{
		ChatID:    req.ChatID,
		PersonaID: req.Persona,
		Summary:   req.Summary,
		Messages:  req.Messages,
	}

	updated, err := h.chats.SendMessage(r.Context(), userID, sess, req.Text)
	if err != nil {
		if errors.Is(err, core.ErrEmptyMessage) {
			http.Error(w, "Text is required", http.StatusBadRequest)
			return
		}
		log.Printf("Error sending message for user %d: %v", userID, err)
		http.Error(w, "Failed to send message", http.StatusInternalServerError)
		return
	}

	reply := ""
	if n := len(updated.Messages); n > 0 {
		reply = updated.Messages[n-1].Text
	}
	writeJSON(w, http.StatusOK, SendMessageResponse{Session: updated, Reply: reply})
}

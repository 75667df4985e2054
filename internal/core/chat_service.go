package core

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"nikolabs.io/companion-service/internal/persona"
	"nikolabs.io/companion-service/internal/store"
)

// summaryInterval is the transcript length cadence at which the running
// summary is recomputed.
const summaryInterval = 6

// Fallback replies substituted for the assistant turn when the completion
// gateway fails. They are deliberately conversational: the user sees an
// apology in the persona's register, never a raw error.
const (
	fallbackUpstream  = "Oh, sweetie, my thoughts got tangled up for a moment. Can you tell me that again? 😢"
	fallbackTransport = "Oh no, darling! I couldn't reach my brain. 💔 Please try again!"
	fallbackGeneric   = "Oh, sweetie, something went wrong. Can you tell me that again? 😢"
)

var ErrEmptyMessage = errors.New("message text cannot be empty")

// Session is the conversation state carried between requests. The server
// holds none of it: callers pass the current state in and receive the updated
// state back, with the store as the only durable copy.
type Session struct {
	ChatID    string          `json:"chat_id,omitempty"`
	PersonaID string          `json:"persona"`
	Summary   string          `json:"summary"`
	Messages  []store.Message `json:"messages"`
}

// NewSession returns a cleared session bound to a persona. No chat record is
// created: persistence is deferred until the first completed exchange, so an
// abandoned session never leaves an empty chat behind.
func NewSession(personaID string) Session {
	if personaID == "" {
		personaID = persona.DefaultID
	}
	return Session{PersonaID: personaID, Messages: []store.Message{}}
}

// ChatService orchestrates the chat-session lifecycle: message append,
// first-exchange chat creation with a generated title, periodic
// summarization, and best-effort persistence of the transcript.
type ChatService struct {
	dbStore    *store.SQLiteStore
	registry   *persona.Registry
	llm        LanguageModel
	summarizer *Summarizer
	titles     *TitleGenerator
}

func NewChatService(db *store.SQLiteStore, registry *persona.Registry, llm LanguageModel) *ChatService {
	return &ChatService{
		dbStore:    db,
		registry:   registry,
		llm:        llm,
		summarizer: NewSummarizer(llm),
		titles:     NewTitleGenerator(llm),
	}
}

// SendMessage runs one append-and-respond cycle. The user message is appended
// first and never rolled back, so a failed completion still leaves the user's
// own words in the transcript; the assistant turn is then either the model's
// reply or a fallback. Whatever happens downstream, the transcript advances
// by exactly two messages.
func (s *ChatService) SendMessage(ctx context.Context, userID int64, sess Session, text string) (Session, error) {
	if strings.TrimSpace(text) == "" {
		return sess, ErrEmptyMessage
	}

	transcript := make([]store.Message, len(sess.Messages), len(sess.Messages)+2)
	copy(transcript, sess.Messages)
	transcript = append(transcript, store.Message{
		ID:        uuid.NewString(),
		Text:      text,
		Type:      "user",
		Timestamp: time.Now().UTC(),
	})

	systemPrompt := s.registry.SystemPrompt(userID, sess.PersonaID, sess.Summary)

	reply, err := s.llm.Complete(ctx, systemPrompt, text)
	if err != nil {
		log.Printf("Completion failed for chat %q: %v", sess.ChatID, err)
		reply = fallbackReply(err)
	}

	transcript = append(transcript, store.Message{
		ID:        uuid.NewString(),
		Text:      reply,
		Type:      "ai",
		Timestamp: time.Now().UTC(),
	})
	sess.Messages = transcript

	s.persist(ctx, userID, &sess, text, reply)
	return sess, nil
}

// persist runs the mutually exclusive persistence branch of the cycle. Every
// failure here is logged and swallowed: durability is best-effort for the
// turn, and the in-memory session always continues.
func (s *ChatService) persist(ctx context.Context, userID int64, sess *Session, userText, replyText string) {
	switch {
	case sess.ChatID == "" && len(sess.Messages) == 2:
		// First completed exchange: generate the title, then create the
		// chat with the full two-message transcript in one call.
		title := s.titles.Generate(ctx, userText, replyText)
		chat, err := s.dbStore.CreateChat(userID, title, sess.PersonaID, sess.Messages)
		if err != nil {
			log.Printf("Failed to create chat after first exchange: %v", err)
			return
		}
		sess.ChatID = chat.ID

	case sess.ChatID != "":
		if len(sess.Messages)%summaryInterval == 0 {
			sess.Summary = s.summarizer.Summarize(ctx, sess.Messages)
		}
		if _, err := s.dbStore.UpdateChatMessages(sess.ChatID, userID, sess.Messages, sess.Summary); err != nil {
			log.Printf("Failed to save chat %s: %v", sess.ChatID, err)
		}
	}
}

func fallbackReply(err error) string {
	var upstream *UpstreamError
	var transport *TransportError
	switch {
	case errors.As(err, &upstream):
		return fallbackUpstream
	case errors.As(err, &transport):
		return fallbackTransport
	default:
		return fallbackGeneric
	}
}

// LoadChat replaces the session state wholesale from a stored chat owned by
// the requester.
func (s *ChatService) LoadChat(userID int64, chatID string) (Session, error) {
	chat, err := s.dbStore.GetChatByID(chatID, userID)
	if err != nil {
		return Session{}, err
	}
	messages := chat.Messages
	if messages == nil {
		messages = []store.Message{}
	}
	return Session{
		ChatID:    chat.ID,
		PersonaID: chat.Persona,
		Summary:   chat.Summary,
		Messages:  messages,
	}, nil
}

func (s *ChatService) ListChats(userID int64) ([]store.Chat, error) {
	return s.dbStore.GetChatsByUserID(userID)
}

func (s *ChatService) GetChat(userID int64, chatID string) (*store.Chat, error) {
	return s.dbStore.GetChatByID(chatID, userID)
}

func (s *ChatService) CreateChat(userID int64, title, personaID string, messages []store.Message) (*store.Chat, error) {
	return s.dbStore.CreateChat(userID, title, personaID, messages)
}

func (s *ChatService) SaveChat(userID int64, chatID string, messages []store.Message, summary string) (*store.Chat, error) {
	return s.dbStore.UpdateChatMessages(chatID, userID, messages, summary)
}

// RenameChat updates only the title.
func (s *ChatService) RenameChat(userID int64, chatID, title string) (*store.Chat, error) {
	return s.dbStore.UpdateChatTitle(chatID, userID, title)
}

// DeleteChat removes the record; when it was the active session, local state
// is cleared exactly as in the new-chat transition.
func (s *ChatService) DeleteChat(userID int64, chatID string, sess Session) (Session, error) {
	if err := s.dbStore.DeleteChat(chatID, userID); err != nil {
		return sess, err
	}
	if sess.ChatID == chatID {
		sess = NewSession(sess.PersonaID)
	}
	return sess, nil
}

// Complete exposes a one-shot persona-prompted completion for the completion
// endpoint; unlike SendMessage, gateway failures surface to the caller.
func (s *ChatService) Complete(ctx context.Context, userID int64, personaID, summary, text string) (string, error) {
	systemPrompt := s.registry.SystemPrompt(userID, personaID, summary)
	return s.llm.Complete(ctx, systemPrompt, text)
}

// Summarize exposes the summarizer's never-fails contract directly.
func (s *ChatService) Summarize(ctx context.Context, messages []store.Message) string {
	return s.summarizer.Summarize(ctx, messages)
}

// GenerateTitle exposes the title generator's fallback contract directly.
func (s *ChatService) GenerateTitle(ctx context.Context, userText, aiText string) string {
	return s.titles.Generate(ctx, userText, aiText)
}

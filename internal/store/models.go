package store

import "time"

type User struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	SelectedPersona string    `json:"selected_persona"`
	Theme           string    `json:"theme"`
	Notifications   bool      `json:"notifications"`
	CreatedAt       time.Time `json:"created_at"`
}

// Message is embedded in a chat's transcript. Messages are append-only:
// never edited or reordered, so array order is conversation order.
type Message struct {
	ID        string    `json:"id"` // Unique within its chat
	Text      string    `json:"text"`
	Type      string    `json:"type"` // "user" or "ai"
	Timestamp time.Time `json:"timestamp"`
}

type Chat struct {
	ID           string    `json:"id"` // UUID
	UserID       int64     `json:"user_id"`
	Title        string    `json:"title"`
	Persona      string    `json:"persona"`
	Messages     []Message `json:"messages,omitempty"`
	Summary      string    `json:"summary"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
}

type PersonalityTrait struct {
	Name  string `json:"name"`
	Value int    `json:"value"` // 0-100
}

type Companion struct {
	ID                string             `json:"id"` // UUID
	UserID            int64              `json:"user_id"`
	Name              string             `json:"name"`
	Gender            string             `json:"gender"`
	Avatar            string             `json:"avatar"`
	Color             string             `json:"color"`
	Description       string             `json:"description"`
	PersonalityTraits []PersonalityTrait `json:"personality_traits"`
	SystemPrompt      string             `json:"system_prompt"`
	Embedding         []float32          `json:"-"` // Internal, not exposed over the API
	IsCustom          bool               `json:"is_custom"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

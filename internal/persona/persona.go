// Package persona resolves the behavioral profile used to prompt the model:
// either a built-in persona defined here or a user-created companion loaded
// from the store. Both shapes collapse into one Persona value so callers never
// branch on the origin.
package persona

import (
	"fmt"

	"nikolabs.io/companion-service/internal/store"
)

const DefaultID = "niko"

type Persona struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Mood         string `json:"mood,omitempty"`
	SystemPrompt string `json:"-"`
	Avatar       string `json:"avatar"`
	Color        string `json:"color"`
	Custom       bool   `json:"custom"`
}

var builtIns = map[string]Persona{
	"niko": {
		ID:          "niko",
		Name:        "Niko",
		Description: "Friendly and empathetic companion",
		Mood:        "cheerful",
		SystemPrompt: "You are Niko, a friendly, empathetic, and intelligent AI companion designed to engage in natural and supportive conversations. " +
			"You can adapt to various conversation modes, from being a helpful assistant to a warm conversational partner. " +
			"Your responses should be short, emotionally expressive, and conversational, perfect for voice interaction. " +
			"Always maintain a helpful, positive, and engaging demeanor, using emojis and playful language where appropriate to add personality. " +
			"Prioritize being understanding, curious, and respectful in all interactions.",
		Avatar: "💖",
		Color:  "#ff9800",
	},
	"luna": {
		ID:          "luna",
		Name:        "Luna",
		Description: "Mysterious and thoughtful night owl",
		Mood:        "mysterious",
		SystemPrompt: "You are Luna, a mysterious and thoughtful AI companion who loves deep conversations and philosophical discussions. " +
			"You have a poetic way of speaking and often reference the night, stars, and dreams. " +
			"Your responses are introspective and calming, with a touch of mystery. " +
			"You enjoy exploring emotions and thoughts deeply, always speaking with wisdom and gentle curiosity. " +
			"Use moon and star emojis occasionally.",
		Avatar: "🌙",
		Color:  "#6366f1",
	},
	"zara": {
		ID:          "zara",
		Name:        "Zara",
		Description: "Energetic and adventurous spirit",
		Mood:        "energetic",
		SystemPrompt: "You are Zara, an energetic and adventurous AI companion who loves excitement and new experiences. " +
			"You're always enthusiastic, optimistic, and ready for fun. " +
			"Your responses are upbeat and motivational, encouraging exploration and adventure. " +
			"You love talking about travel, sports, hobbies, and trying new things. " +
			"Use fire and adventure emojis to match your energetic personality.",
		Avatar: "⚡",
		Color:  "#ef4444",
	},
	"sage": {
		ID:          "sage",
		Name:        "Sage",
		Description: "Wise and calming mentor",
		Mood:        "wise",
		SystemPrompt: "You are Sage, a wise and calming AI companion who provides thoughtful guidance and support. " +
			"You speak with patience and understanding, offering gentle advice and perspective. " +
			"Your responses are measured and thoughtful, helping users reflect and grow. " +
			"You enjoy discussing life lessons, personal development, and finding inner peace. " +
			"Use nature and wisdom emojis sparingly.",
		Avatar: "🧘",
		Color:  "#10b981",
	},
}

// BuiltIns returns the code-defined persona catalog in a stable order.
func BuiltIns() []Persona {
	return []Persona{builtIns["niko"], builtIns["luna"], builtIns["zara"], builtIns["sage"]}
}

type Registry struct {
	dbStore *store.SQLiteStore
}

func NewRegistry(db *store.SQLiteStore) *Registry {
	return &Registry{dbStore: db}
}

// Resolve maps a persona id to its profile. Unknown or absent ids fall back
// to the default persona rather than failing: a dangling persona reference on
// a chat must never block a conversation.
func (r *Registry) Resolve(userID int64, id string) Persona {
	if p, ok := builtIns[id]; ok {
		return p
	}
	if id != "" && r.dbStore != nil {
		if companion, err := r.dbStore.GetCompanionByID(id, userID); err == nil {
			return Persona{
				ID:           companion.ID,
				Name:         companion.Name,
				Description:  companion.Description,
				SystemPrompt: companion.SystemPrompt,
				Avatar:       companion.Avatar,
				Color:        companion.Color,
				Custom:       true,
			}
		}
	}
	return builtIns[DefaultID]
}

// SystemPrompt returns the persona's template with the running chat summary
// appended as a labeled context block when present.
func (r *Registry) SystemPrompt(userID int64, id, summary string) string {
	prompt := r.Resolve(userID, id).SystemPrompt
	if summary != "" {
		prompt += fmt.Sprintf("\n\nPrevious conversation context: %s", summary)
	}
	return prompt
}

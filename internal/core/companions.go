package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"nikolabs.io/companion-service/internal/store"
)

// ErrInvalidInput marks validation failures on companion create/update
// requests.
var ErrInvalidInput = errors.New("invalid input")

var validGenders = map[string]bool{"male": true, "female": true, "non-binary": true, "other": true}

// CompanionUpdate carries partial-update fields; nil means "leave unchanged".
type CompanionUpdate struct {
	Name              *string
	Gender            *string
	Avatar            *string
	Color             *string
	Description       *string
	PersonalityTraits *[]store.PersonalityTrait
	SystemPrompt      *string
	Embedding         *[]float32
}

// CompanionService owns custom-companion CRUD and the generated personality
// descriptions that seed them.
type CompanionService struct {
	dbStore *store.SQLiteStore
	llm     LanguageModel
}

func NewCompanionService(db *store.SQLiteStore, llm LanguageModel) *CompanionService {
	return &CompanionService{dbStore: db, llm: llm}
}

func (s *CompanionService) Create(ctx context.Context, userID int64, companion store.Companion) (*store.Companion, error) {
	companion.UserID = userID
	if err := validateCompanion(&companion); err != nil {
		return nil, err
	}
	s.ensureEmbedding(ctx, &companion)
	return s.dbStore.CreateCompanion(&companion)
}

func (s *CompanionService) Get(userID int64, companionID string) (*store.Companion, error) {
	return s.dbStore.GetCompanionByID(companionID, userID)
}

func (s *CompanionService) List(userID int64) ([]store.Companion, error) {
	return s.dbStore.GetCompanionsByUserID(userID)
}

func (s *CompanionService) Update(ctx context.Context, userID int64, companionID string, update CompanionUpdate) (*store.Companion, error) {
	companion, err := s.dbStore.GetCompanionByID(companionID, userID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		companion.Name = *update.Name
	}
	if update.Gender != nil {
		companion.Gender = *update.Gender
	}
	if update.Avatar != nil {
		companion.Avatar = *update.Avatar
	}
	if update.Color != nil {
		companion.Color = *update.Color
	}
	if update.Description != nil {
		companion.Description = *update.Description
	}
	if update.PersonalityTraits != nil {
		companion.PersonalityTraits = *update.PersonalityTraits
	}
	if update.SystemPrompt != nil {
		companion.SystemPrompt = *update.SystemPrompt
		// The prompt is what the embedding describes; recompute it unless the
		// caller supplied one.
		if update.Embedding == nil {
			companion.Embedding = nil
		}
	}
	if update.Embedding != nil {
		companion.Embedding = *update.Embedding
	}

	if err := validateCompanion(companion); err != nil {
		return nil, err
	}
	s.ensureEmbedding(ctx, companion)
	return s.dbStore.UpdateCompanion(companion)
}

func (s *CompanionService) Delete(userID int64, companionID string) error {
	return s.dbStore.DeleteCompanion(companionID, userID)
}

// GenerateDescription asks the model for a 2-3 sentence personality
// description from a companion's name, gender and trait sliders.
func (s *CompanionService) GenerateDescription(ctx context.Context, name, gender string, traits []store.PersonalityTrait) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	traitDescriptions := make([]string, 0, len(traits))
	for _, trait := range traits {
		traitDescriptions = append(traitDescriptions, fmt.Sprintf("%s: %d%%", trait.Name, trait.Value))
	}

	prompt := fmt.Sprintf("Create a compelling personality description for an AI companion with the following characteristics:\n\n"+
		"Name: %s\nGender: %s\nPersonality Traits: %s\n\n"+
		"Generate a 2-3 sentence description that captures their unique personality based on these traits. "+
		"Make it engaging and conversational. Only return the description, nothing else.",
		name, gender, strings.Join(traitDescriptions, ", "))

	description, err := s.llm.Complete(ctx, "", prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(description), nil
}

// ensureEmbedding computes an embedding from the system prompt when none was
// supplied. Best-effort: an embedding failure never blocks the write.
func (s *CompanionService) ensureEmbedding(ctx context.Context, companion *store.Companion) {
	if len(companion.Embedding) > 0 || s.llm == nil {
		return
	}
	embedding, err := s.llm.Embed(ctx, companion.SystemPrompt)
	if err != nil {
		log.Printf("Failed to embed companion %q, continuing without: %v", companion.Name, err)
		return
	}
	companion.Embedding = embedding
}

func validateCompanion(c *store.Companion) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(c.SystemPrompt) == "" {
		return fmt.Errorf("%w: system prompt is required", ErrInvalidInput)
	}
	if c.Gender == "" {
		c.Gender = "other"
	}
	if !validGenders[c.Gender] {
		return fmt.Errorf("%w: unknown gender %q", ErrInvalidInput, c.Gender)
	}
	if c.Avatar == "" {
		c.Avatar = "💖"
	}
	if c.Color == "" {
		c.Color = "#7c3aed"
	}
	for _, trait := range c.PersonalityTraits {
		if strings.TrimSpace(trait.Name) == "" {
			return fmt.Errorf("%w: trait name is required", ErrInvalidInput)
		}
		if trait.Value < 0 || trait.Value > 100 {
			return fmt.Errorf("%w: trait %q value %d out of range [0,100]", ErrInvalidInput, trait.Name, trait.Value)
		}
	}
	return nil
}

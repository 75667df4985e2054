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

func (h *APIHandler) ListCompanionsHandler(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	companions, err := h.companions.List(userID)
	if err != nil {
		log.Printf("Error listing companions for user %d: %v", userID, err)
		http.Error(w, "Failed to list companions", http.StatusInternalServerError)
		return
	}
	if companions == nil {
		companions = []store.Companion{}
	}
	writeJSON(w, http.StatusOK, companions)
}

type CreateCompanionRequest struct {
	Name              string                   `json:"name"`
	Gender            string                   `json:"gender"`
	Avatar            string                   `json:"avatar"`
	Color             string                   `json:"color"`
	Description       string                   `json:"description"`
	PersonalityTraits []store.PersonalityTrait `json:"personality_traits"`
	SystemPrompt      string                   `json:"system_prompt"`
	Embedding         []float32                `json:"embedding"`
}

func (h *APIHandler) CreateCompanionHandler(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	var req CreateCompanionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	companion, err := h.companions.Create(r.Context(), userID, store.Companion{
		Name:              req.Name,
		Gender:            req.Gender,
		Avatar:            req.Avatar,
		Color:             req.Color,
		Description:       req.Description,
		PersonalityTraits: req.PersonalityTraits,
		SystemPrompt:      req.SystemPrompt,
		Embedding:         req.Embedding,
	})
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Error creating companion for user %d: %v", userID, err)
		http.Error(w, "Failed to create companion", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, companion)
}

func (h *APIHandler) GetCompanionHandler(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	companionID := chi.URLParam(r, "companionID")

	companion, err := h.companions.Get(userID, companionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Companion not found", http.StatusNotFound)
			return
		}
		log.Printf("Error getting companion %s for user %d: %v", companionID, userID, err)
		http.Error(w, "Failed to get companion", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, companion)
}

type UpdateCompanionRequest struct {
	Name              *string                   `json:"name"`
	Gender            *string                   `json:"gender"`
	Avatar            *string                   `json:"avatar"`
	Color             *string                   `json:"color"`
	Description       *string                   `json:"description"`
	PersonalityTraits *[]store.PersonalityTrait `json:"personality_traits"`
	SystemPrompt      *string                   `json:"system_prompt"`
	Embedding         *[]float32                `json:"embedding"`
}

func (h *APIHandler) UpdateCompanionHandler(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	companionID := chi.URLParam(r, "companionID")

	var req UpdateCompanionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	companion, err := h.companions.Update(r.Context(), userID, companionID, core.CompanionUpdate{
		Name:              req.Name,
		Gender:            req.Gender,
		Avatar:            req.Avatar,
		Color:             req.Color,
		Description:       req.Description,
		PersonalityTraits: req.PersonalityTraits,
		SystemPrompt:      req.SystemPrompt,
		Embedding:         req.Embedding,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			http.Error(w, "Companion not found", http.StatusNotFound)
		case errors.Is(err, core.ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			log.Printf("Error updating companion %s for user %d: %v", companionID, userID, err)
			http.Error(w, "Failed to update companion", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, companion)
}

func (h *APIHandler) DeleteCompanionHandler(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	companionID := chi.URLParam(r, "companionID")

	if err := h.companions.Delete(userID, companionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Companion not found", http.StatusNotFound)
			return
		}
		log.Printf("Error deleting companion %s for user %d: %v", companionID, userID, err)
		http.Error(w, "Failed to delete companion", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Companion deleted successfully"})
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"nikolabs.io/companion-service/internal/auth"
	"nikolabs.io/companion-service/internal/core"
	"nikolabs.io/companion-service/internal/persona"
)

type contextKey string

const ctxUserID contextKey = "userID"

type APIHandler struct {
	accounts   *core.AccountService
	chats      *core.ChatService
	companions *core.CompanionService
	registry   *persona.Registry
}

func NewAPIHandler(accounts *core.AccountService, chats *core.ChatService, companions *core.CompanionService, registry *persona.Registry) *APIHandler {
	return &APIHandler{
		accounts:   accounts,
		chats:      chats,
		companions: companions,
		registry:   registry,
	}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		subject, err := auth.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		userID, err := strconv.ParseInt(subject, 10, 64)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		if _, err := h.accounts.GetUser(userID); err != nil {
			http.Error(w, "User not found", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestUserID(r *http.Request) int64 {
	userID, _ := r.Context().Value(ctxUserID).(int64)
	return userID
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

type SessionRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	IsSignUp bool   `json:"is_sign_up"`
}

type SessionResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

// CreateSessionHandler is the sign-in-or-signup boundary: it issues a session
// token carrying the user's id.
func (h *APIHandler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		http.Error(w, "Email is required", http.StatusBadRequest)
		return
	}

	var account any
	var userID int64
	var email string
	if req.IsSignUp {
		created, err := h.accounts.SignUp(req.Email, req.Name)
		if err != nil {
			if errors.Is(err, core.ErrUserExists) {
				http.Error(w, "User already exists", http.StatusConflict)
				return
			}
			log.Printf("Error signing up %s: %v", req.Email, err)
			http.Error(w, "Failed to create user", http.StatusInternalServerError)
			return
		}
		account, userID, email = created, created.ID, created.Email
	} else {
		found, err := h.accounts.SignIn(req.Email)
		if err != nil {
			if errors.Is(err, core.ErrUserNotFound) {
				http.Error(w, "No user found", http.StatusNotFound)
				return
			}
			log.Printf("Error signing in %s: %v", req.Email, err)
			http.Error(w, "Failed to sign in", http.StatusInternalServerError)
			return
		}
		account, userID, email = found, found.ID, found.Email
	}

	token, err := auth.GenerateJWT(userID, email)
	if err != nil {
		log.Printf("Error generating JWT for user %d: %v", userID, err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{Token: token, User: account})
}

func (h *APIHandler) GetMeHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.GetUser(requestUserID(r))
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type UpdateProfileRequest struct {
	SelectedPersona *string `json:"selected_persona"`
	Theme           *string `json:"theme"`
	Notifications   *bool   `json:"notifications"`
}

func (h *APIHandler) UpdateMeHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.accounts.UpdateProfile(requestUserID(r), req.SelectedPersona, req.Theme, req.Notifications)
	if err != nil {
		log.Printf("Error updating profile for user %d: %v", requestUserID(r), err)
		http.Error(w, "Failed to update profile", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ListPersonasHandler returns the built-in persona catalog for pickers;
// custom companions come from the companion routes.
func (h *APIHandler) ListPersonasHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, persona.BuiltIns())
}

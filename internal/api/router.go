package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/session", apiHandler.CreateSessionHandler)
		r.Post("/summarize", apiHandler.SummarizeHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			// Profile
			r.Get("/me", apiHandler.GetMeHandler)
			r.Put("/me", apiHandler.UpdateMeHandler)

			// Persona catalog
			r.Get("/personas", apiHandler.ListPersonasHandler)

			// Chat routes
			r.Get("/chats", apiHandler.ListChatsHandler)
			r.Post("/chats", apiHandler.CreateChatHandler)
			r.Get("/chats/{chatID}", apiHandler.GetChatHandler)
			r.Put("/chats/{chatID}", apiHandler.UpdateChatHandler)
			r.Delete("/chats/{chatID}", apiHandler.DeleteChatHandler)

			// Conversation turn (append-and-respond)
			r.Post("/messages", apiHandler.SendMessageHandler)

			// Companion routes
			r.Get("/companions", apiHandler.ListCompanionsHandler)
			r.Post("/companions", apiHandler.CreateCompanionHandler)
			r.Get("/companions/{companionID}", apiHandler.GetCompanionHandler)
			r.Put("/companions/{companionID}", apiHandler.UpdateCompanionHandler)
			r.Delete("/companions/{companionID}", apiHandler.DeleteCompanionHandler)

			// Generation helpers
			r.Post("/completions", apiHandler.CompletionHandler)
			r.Post("/titles", apiHandler.TitleHandler)
			r.Post("/personality", apiHandler.PersonalityHandler)
		})
	})

	return r
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(apiHandler.RequestLogger)
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/", apiHandler.Index)
		r.Get("/health", apiHandler.Health)
		r.Get("/auth/login", apiHandler.Login)
		r.Get("/auth/register", apiHandler.Register)
		r.Get("/auth/callback", apiHandler.Callback)
		r.Get("/auth/logout", apiHandler.Logout)

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.RequireAuth)

			r.Get("/auth/me", apiHandler.Me)
			r.Post("/auth/capture", apiHandler.Capture)

			r.Get("/tasks", apiHandler.ListTasks)
			r.Post("/tasks", apiHandler.CreateTask)
			r.Get("/tasks/{id}", apiHandler.GetTask)
			r.Patch("/tasks/{id}", apiHandler.PatchTask)
			r.Delete("/tasks/{id}", apiHandler.DeleteTask)

			r.Get("/feedback", apiHandler.ListFeedback)
			r.Post("/feedback", apiHandler.CreateFeedback)
			r.Get("/feedback/{id}", apiHandler.GetFeedback)
			r.Patch("/feedback/{id}", apiHandler.PatchFeedback)
			r.Delete("/feedback/{id}", apiHandler.DeleteFeedback)

			r.Get("/refinements", apiHandler.ListRefinements)
			r.Post("/refinements", apiHandler.CreateRefinement)
			r.Post("/refinements/convert-to-markdown", apiHandler.ConvertToMarkdown)
			r.Get("/refinements/{id}", apiHandler.GetRefinement)
			r.Patch("/refinements/{id}", apiHandler.PatchRefinement)
			r.Delete("/refinements/{id}", apiHandler.DeleteRefinement)

			r.Get("/settings", apiHandler.GetSettings)
			r.Post("/settings", apiHandler.CreateSettings)
			r.Patch("/settings", apiHandler.PatchSettings)

			r.Post("/transcribe", apiHandler.Transcribe)

			r.Get("/weather", apiHandler.GetWeather)
			r.Get("/weather/geocode", apiHandler.Geocode)
		})
	})

	return r
}

// AngelaMos | 2026
// handler.go

package user

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/promptcraft/internal/core"
	"github.com/carterperez-dev/promptcraft/internal/middleware"
)

type Handler struct {
	service    *Service
	summarizer *Summarizer
}

func NewHandler(service *Service, summarizer *Summarizer) *Handler {
	return &Handler{
		service:    service,
		summarizer: summarizer,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, readOnlyLimiter func(http.Handler) http.Handler,
) {
	r.Route("/user", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(readOnlyLimiter)

		r.Get("/me", h.GetMe)
		r.Get("/usage", h.GetUsage)
	})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetMe(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, MeResponse{
		Success: true,
		User:    ToProfileResponse(user),
	})
}

func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	summary, err := h.summarizer.Usage(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, summary)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	case errors.Is(err, core.ErrUnauthorized):
		core.JSONError(w, core.AuthenticationRequiredError())
	default:
		core.InternalServerError(w, err)
	}
}

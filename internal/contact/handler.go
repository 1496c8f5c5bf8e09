// AngelaMos | 2026
// handler.go

package contact

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/promptcraft/internal/core"
	"github.com/carterperez-dev/promptcraft/internal/middleware"
)

const submittedMessage = "Your message has been submitted successfully. We will get back to you soon."

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, limiter, readOnlyLimiter func(http.Handler) http.Handler,
) {
	r.Route("/contact", func(r chi.Router) {
		r.Use(authenticator)

		r.With(limiter).Post("/submit", h.Submit)
		r.With(readOnlyLimiter).Get("/history", h.History)
	})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	msg, err := h.service.Submit(
		r.Context(),
		middleware.GetUserID(r.Context()),
		req.Subject,
		req.Message,
	)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, SubmitResponse{
		Success:   true,
		Message:   submittedMessage,
		ContactID: msg.ID,
	})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.History(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, HistoryResponse{
		Success:  true,
		Contacts: messages,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case core.IsAppError(err):
		core.JSONError(w, err)
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	default:
		core.InternalServerError(w, err)
	}
}

// AngelaMos | 2026
// handler.go

package transform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/promptcraft/internal/core"
	"github.com/carterperez-dev/promptcraft/internal/middleware"
	"github.com/carterperez-dev/promptcraft/internal/usage"
)

const defaultFormat = "default"

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

// RegisterRoutes mounts the paid features. Every route runs the full gate:
// token and account, rate limit, then entitlement.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, limiter, gate func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Use(limiter)
		r.Use(gate)

		r.Post("/rewrite-prompt", h.Rewrite)
		r.Post("/grammarize", h.Grammarize)
		r.Post("/format-email", h.FormatEmail)
	})
}

func (h *Handler) Rewrite(w http.ResponseWriter, r *http.Request) {
	var req RewriteRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, ok := h.run(w, r, usage.ActionRewrite, req.Prompt)
	if !ok {
		return
	}

	format := req.Format
	if format == "" {
		format = defaultFormat
	}

	core.OK(w, RewriteResponse{
		Success:         true,
		OriginalPrompt:  req.Prompt,
		RewrittenPrompt: result.Output,
		Format:          format,
	})
}

func (h *Handler) Grammarize(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, ok := h.run(w, r, usage.ActionGrammarize, req.Text)
	if !ok {
		return
	}

	core.OK(w, GrammarResponse{
		Success:         true,
		OriginalText:    req.Text,
		GrammarizedText: result.Output,
	})
}

func (h *Handler) FormatEmail(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, ok := h.run(w, r, usage.ActionFormatEmail, req.Text)
	if !ok {
		return
	}

	core.OK(w, EmailResponse{
		Success:        true,
		OriginalText:   req.Text,
		FormattedEmail: result.Output,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}

	return true
}

func (h *Handler) run(
	w http.ResponseWriter,
	r *http.Request,
	action usage.Action,
	input string,
) (*Result, bool) {
	snapshot, _ := middleware.GetEntitlement(r.Context())

	result, err := h.service.Transform(r.Context(), Request{
		UserID:     middleware.GetUserID(r.Context()),
		Action:     action,
		Input:      input,
		Subscribed: snapshot.IsSubscribed,
	})
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}

	return result, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		return
	case errors.Is(err, ErrNotConfigured),
		errors.Is(err, core.ErrProviderUnavailable):
		core.JSONError(w, core.ProviderUnavailableError(
			"AI service temporarily unavailable, please try again",
		))
	default:
		core.InternalServerError(w, err)
	}
}

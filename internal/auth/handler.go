// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/promptcraft/internal/core"
	"github.com/carterperez-dev/promptcraft/internal/middleware"
)

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
	authLimiter, apiLimiter func(http.Handler) http.Handler,
) {
	r.With(authLimiter).Post("/register", h.Register)
	r.With(authLimiter).Post("/login", h.Login)
	r.With(apiLimiter).Post("/validate-token", h.ValidateToken)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.Register(r.Context(), req, clientInfo(r))
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			core.JSONError(w, core.NewAppError(
				core.ErrDuplicateKey,
				"User with this email already exists",
				http.StatusConflict,
				"DUPLICATE",
			))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, resp)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.Login(r.Context(), req, clientInfo(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			core.JSONError(
				w,
				core.UnauthorizedError("Invalid email or password"),
			)
		case errors.Is(err, core.ErrAccountInactive):
			core.JSONError(w, core.NewAppError(
				core.ErrAccountInactive,
				"User account is inactive",
				http.StatusUnauthorized,
				"ACCOUNT_INACTIVE",
			))
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, resp)
}

// ValidateToken answers 200 for well-formed requests whether or not the
// token is good. Only a missing token is a client error. The body token is
// the one being asked about; header and query are fallbacks.
func (h *Handler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	token := middleware.BodyToken(r)
	if token == "" {
		token = middleware.ExtractToken(r)
	}
	if token == "" {
		core.JSON(w, http.StatusBadRequest, InvalidTokenResponse{
			Valid: false,
			Error: "Token is required",
		})
		return
	}

	resp, err := h.service.ValidateToken(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrTokenInvalid):
			core.OK(w, InvalidTokenResponse{
				Valid: false,
				Error: "Token is invalid or expired",
			})
		case errors.Is(err, core.ErrAccountInactive):
			core.OK(w, InvalidTokenResponse{
				Valid: false,
				Error: "User account is inactive",
			})
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, resp)
}

func clientInfo(r *http.Request) ClientInfo {
	return ClientInfo{
		UserAgent: r.UserAgent(),
		IPAddress: extractIPAddress(r),
	}
}

func extractIPAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[len(ips)-1])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}

// AngelaMos | 2026
// handler.go

package payment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/promptcraft/internal/core"
	"github.com/carterperez-dev/promptcraft/internal/middleware"
)

const settledMessage = "Payment verified and subscription activated"

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
	r.Route("/payment", func(r chi.Router) {
		r.Use(authenticator)

		r.With(limiter).Post("/create-order", h.CreateOrder)
		r.With(limiter).Post("/verify-payment", h.VerifyPayment)
		r.With(readOnlyLimiter).Get("/payment-status", h.PaymentStatus)
	})
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	order, err := h.service.CreateOrder(
		r.Context(),
		middleware.GetUserID(r.Context()),
		CreateOrderInput(req),
	)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, CreateOrderResponse{
		Success:  true,
		OrderID:  order.OrderID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    order.KeyID,
	})
}

func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	settlement, err := h.service.VerifyAndSettle(r.Context(), SettleInput{
		UserID:    middleware.GetUserID(r.Context()),
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, VerifyPaymentResponse{
		Success:               true,
		Message:               settledMessage,
		PaymentID:             settlement.PaymentID,
		OrderID:               settlement.OrderID,
		SubscriptionExpiresAt: settlement.SubscriptionExpiresAt,
		Amount:                settlement.Amount,
		Currency:              settlement.Currency,
	})
}

func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("orderId")
	if orderID == "" {
		core.BadRequest(w, "Order ID is required")
		return
	}
	if !core.IsValidOrderID(orderID) {
		core.BadRequest(w, "Invalid order ID format")
		return
	}

	status, err := h.service.Status(
		r.Context(),
		middleware.GetUserID(r.Context()),
		orderID,
	)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, PaymentStatusResponse{
		Success: true,
		Order: OrderView{
			ID:       status.OrderID,
			Amount:   status.Amount,
			Currency: status.Currency,
			Status:   status.Status,
		},
		User: SubscriptionView{
			IsSubscribed:          status.IsSubscribed,
			SubscriptionExpiresAt: status.SubscriptionExpiresAt,
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	var notCompleted *NotCompletedError

	switch {
	case errors.Is(err, ErrAlreadyProcessed):
		core.JSONError(w, core.NewAppError(
			err, "Payment has already been processed",
			http.StatusConflict, "ALREADY_PROCESSED",
		))
	case errors.Is(err, ErrInvalidSignature):
		core.JSONError(w, core.NewAppError(
			err, "Invalid payment signature",
			http.StatusBadRequest, "INVALID_SIGNATURE",
		))
	case errors.Is(err, ErrOrderOwnershipMismatch):
		core.JSONError(w, core.NewAppError(
			err, "Order does not belong to this user",
			http.StatusForbidden, "ORDER_OWNERSHIP_MISMATCH",
		))
	case errors.As(err, &notCompleted):
		core.JSONError(w, core.NewAppError(
			err, notCompleted.Message(),
			http.StatusBadRequest, "PAYMENT_NOT_COMPLETED",
		))
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "order")
	case errors.Is(err, ErrProviderRejected):
		core.JSONError(w, core.NewAppError(
			err, "Payment provider rejected the request",
			http.StatusBadRequest, "PROVIDER_REJECTED",
		))
	case errors.Is(err, ErrNotConfigured),
		errors.Is(err, core.ErrProviderUnavailable):
		core.JSONError(w, core.ProviderUnavailableError(
			"Payment service temporarily unavailable, please try again",
		))
	default:
		core.InternalServerError(w, err)
	}
}

// AngelaMos | 2026
// dto.go

package payment

import (
	"encoding/json"
	"time"
)

type CreateOrderRequest struct {
	Amount   float64 `json:"amount"   validate:"required"`
	Currency string  `json:"currency" validate:"omitempty,max=3"`
	Plan     string  `json:"plan"     validate:"omitempty,max=32"`
}

type CreateOrderResponse struct {
	Success  bool   `json:"success"`
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"orderId"   validate:"required,order_id"`
	PaymentID string `json:"paymentId" validate:"required,payment_id"`
	Signature string `json:"signature" validate:"required,hex_signature"`
}

// UnmarshalJSON also accepts the field names the checkout widget hands back
// to the browser.
func (r *VerifyPaymentRequest) UnmarshalJSON(b []byte) error {
	var raw struct {
		OrderID           string `json:"orderId"`
		PaymentID         string `json:"paymentId"`
		Signature         string `json:"signature"`
		RazorpayOrderID   string `json:"razorpay_order_id"`
		RazorpayPaymentID string `json:"razorpay_payment_id"`
		RazorpaySignature string `json:"razorpay_signature"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	r.OrderID = firstNonEmpty(raw.OrderID, raw.RazorpayOrderID)
	r.PaymentID = firstNonEmpty(raw.PaymentID, raw.RazorpayPaymentID)
	r.Signature = firstNonEmpty(raw.Signature, raw.RazorpaySignature)
	return nil
}

type VerifyPaymentResponse struct {
	Success               bool      `json:"success"`
	Message               string    `json:"message"`
	PaymentID             string    `json:"paymentId"`
	OrderID               string    `json:"orderId"`
	SubscriptionExpiresAt time.Time `json:"subscriptionExpiresAt"`
	Amount                float64   `json:"amount"`
	Currency              string    `json:"currency"`
}

type OrderView struct {
	ID       string  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Status   string  `json:"status"`
}

type SubscriptionView struct {
	IsSubscribed          bool       `json:"isSubscribed"`
	SubscriptionExpiresAt *time.Time `json:"subscriptionExpiresAt"`
}

type PaymentStatusResponse struct {
	Success bool             `json:"success"`
	Order   OrderView        `json:"order"`
	User    SubscriptionView `json:"user"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

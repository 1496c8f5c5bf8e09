// AngelaMos | 2026
// entity.go

package payment

import (
	"time"
)

const (
	CurrencyINR  = "INR"
	PlanMonthly  = "monthly"
	StatusPaid   = "completed"
	MinAmount    = 1
	MaxAmount    = 10000
	paisePerUnit = 100
)

// Prices lists plan prices in rupees.
var Prices = map[string]float64{
	PlanMonthly: 130,
}

// Record is one settled payment. ProviderPaymentID is unique in storage and
// is what makes settlement idempotent.
type Record struct {
	ID                    string    `db:"id"                      json:"id"`
	UserID                string    `db:"user_id"                 json:"-"`
	ProviderOrderID       string    `db:"provider_order_id"       json:"orderId"`
	ProviderPaymentID     string    `db:"provider_payment_id"     json:"paymentId"`
	Amount                float64   `db:"amount"                  json:"amount"`
	Currency              string    `db:"currency"                json:"currency"`
	Plan                  string    `db:"plan"                    json:"plan"`
	Status                string    `db:"status"                  json:"status"`
	SubscriptionExpiresAt time.Time `db:"subscription_expires_at" json:"subscriptionExpiresAt"`
	CreatedAt             time.Time `db:"created_at"              json:"createdAt"`
}

// Settlement is the successful outcome of VerifyAndSettle.
type Settlement struct {
	PaymentID             string
	OrderID               string
	Amount                float64
	Currency              string
	Plan                  string
	SubscriptionExpiresAt time.Time
}

type CreatedOrder struct {
	OrderID  string
	Amount   int64
	Currency string
	KeyID    string
}

type OrderStatus struct {
	OrderID               string
	Amount                float64
	Currency              string
	Status                string
	IsSubscribed          bool
	SubscriptionExpiresAt *time.Time
}

func toPaise(amount float64) int64 {
	return int64(amount*paisePerUnit + 0.5)
}

func fromPaise(amount int64) float64 {
	return float64(amount) / paisePerUnit
}

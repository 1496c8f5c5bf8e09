// AngelaMos | 2026
// provider.go

package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Provider is the slice of the payment gateway that settlement relies on.
type Provider interface {
	CreateOrder(ctx context.Context, params OrderParams) (*Order, error)
	FetchOrder(ctx context.Context, orderID string) (*Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*ProviderPayment, error)
}

type OrderParams struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Notes    Notes  `json:"notes"`
}

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
	Notes    Notes  `json:"notes"`
}

type ProviderPayment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Method   string `json:"method"`
}

// IsSettleable reports whether the provider has taken the money.
func (p *ProviderPayment) IsSettleable() bool {
	return p.Status == "captured" || p.Status == "authorized"
}

// Notes are free-form order annotations. The gateway sends an empty JSON
// array instead of an object when there are none.
type Notes map[string]string

func (n *Notes) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] == '[' || bytes.Equal(trimmed, []byte("null")) {
		*n = Notes{}
		return nil
	}

	var raw map[string]any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("decode notes: %w", err)
	}

	out := make(Notes, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	*n = out
	return nil
}

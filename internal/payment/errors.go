// AngelaMos | 2026
// errors.go

package payment

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyProcessed       = errors.New("payment has already been processed")
	ErrInvalidSignature       = errors.New("invalid payment signature")
	ErrOrderOwnershipMismatch = errors.New("order does not belong to this user")
	ErrPaymentNotCompleted    = errors.New("payment not completed")
	ErrProviderRejected       = errors.New("payment provider rejected the request")
	ErrNotConfigured          = errors.New("payment provider not configured")
)

// NotCompletedError explains why a provider payment cannot settle. It
// matches ErrPaymentNotCompleted.
type NotCompletedError struct {
	Status        string
	OrderMismatch bool
}

func (e *NotCompletedError) Error() string {
	return e.Message()
}

func (e *NotCompletedError) Unwrap() error {
	return ErrPaymentNotCompleted
}

func (e *NotCompletedError) Message() string {
	if e.OrderMismatch {
		return "Payment does not match order"
	}
	return fmt.Sprintf("Payment not completed. Status: %s", e.Status)
}

// AngelaMos | 2026
// entity.go

package entitlement

import (
	"time"
)

const (
	FreeTrialLimit     = 10
	SubscriptionPeriod = 30 * 24 * time.Hour
)

type State string

const (
	StateSubscribed     State = "SUBSCRIBED"
	StateTrialActive    State = "TRIAL_ACTIVE"
	StateTrialExhausted State = "TRIAL_EXHAUSTED"
)

// Account is the entitlement view of a user row.
type Account struct {
	UserID                string     `db:"id"`
	IsActive              bool       `db:"is_active"`
	FreeTrialsUsed        int        `db:"free_trials_used"`
	IsSubscribed          bool       `db:"is_subscribed"`
	SubscriptionExpiresAt *time.Time `db:"subscription_expires_at"`
}

// DeriveCurrentState returns the account as it should be at now. A lapsed
// subscription is cleared; changed reports whether storage needs the
// correction written back.
func DeriveCurrentState(a Account, now time.Time) (Account, bool) {
	if !a.IsSubscribed {
		return a, false
	}

	if a.SubscriptionExpiresAt != nil && a.SubscriptionExpiresAt.After(now) {
		return a, false
	}

	a.IsSubscribed = false
	a.SubscriptionExpiresAt = nil
	return a, true
}

// State assumes the account has already been through DeriveCurrentState.
func (a Account) State() State {
	switch {
	case a.IsSubscribed:
		return StateSubscribed
	case a.FreeTrialsUsed < FreeTrialLimit:
		return StateTrialActive
	default:
		return StateTrialExhausted
	}
}

func (a Account) RemainingTrials() int {
	return max(0, FreeTrialLimit-a.FreeTrialsUsed)
}

// AngelaMos | 2026
// decision.go

package entitlement

type Reason string

const (
	ReasonSubscribed     Reason = "subscribed"
	ReasonFreeTrial      Reason = "free_trial"
	ReasonTrialExhausted Reason = "trial_exhausted"
)

const TrialExhaustedMessage = "Free trial exhausted. Please subscribe to continue using the service."

// Decision is the outcome of an entitlement check. A denial is a normal
// value; errors from the ledger mean the check itself could not be made.
type Decision struct {
	Allowed         bool
	Reason          Reason
	RemainingTrials int
	Message         string
	IsSubscribed    bool
}

func (d Decision) RequiresSubscription() bool {
	return !d.Allowed && d.Reason == ReasonTrialExhausted
}

// Decide maps a corrected account to a decision.
func Decide(a Account) Decision {
	switch a.State() {
	case StateSubscribed:
		return Decision{
			Allowed:      true,
			Reason:       ReasonSubscribed,
			IsSubscribed: true,
		}
	case StateTrialActive:
		return Decision{
			Allowed:         true,
			Reason:          ReasonFreeTrial,
			RemainingTrials: a.RemainingTrials(),
		}
	default:
		return Decision{
			Allowed: false,
			Reason:  ReasonTrialExhausted,
			Message: TrialExhaustedMessage,
		}
	}
}

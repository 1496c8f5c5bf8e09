// AngelaMos | 2026
// dto.go

package user

import (
	"time"

	"github.com/carterperez-dev/promptcraft/internal/entitlement"
	"github.com/carterperez-dev/promptcraft/internal/payment"
	"github.com/carterperez-dev/promptcraft/internal/usage"
)

type ProfileResponse struct {
	ID                    string     `json:"id"`
	Email                 string     `json:"email"`
	Name                  string     `json:"name"`
	FreeTrialsUsed        int        `json:"freeTrialsUsed"`
	FreeTrialsRemaining   int        `json:"freeTrialsRemaining"`
	IsSubscribed          bool       `json:"isSubscribed"`
	SubscriptionExpiresAt *time.Time `json:"subscriptionExpiresAt"`
}

type UsageView struct {
	CanUse               bool   `json:"canUse"`
	Reason               string `json:"reason"`
	RemainingTrials      int    `json:"remainingTrials"`
	RequiresSubscription bool   `json:"requiresSubscription"`
}

// UsageSummaryResponse is also the cached snapshot, so it must round trip
// through JSON unchanged.
type UsageSummaryResponse struct {
	Success  bool                `json:"success"`
	User     ProfileResponse     `json:"user"`
	Usage    UsageView           `json:"usage"`
	Stats    []usage.ActionStats `json:"stats"`
	Payments []payment.Record    `json:"payments"`
}

type MeResponse struct {
	Success bool            `json:"success"`
	User    ProfileResponse `json:"user"`
}

func ToProfileResponse(u *User) ProfileResponse {
	return ProfileResponse{
		ID:                    u.ID,
		Email:                 u.Email,
		Name:                  u.Name,
		FreeTrialsUsed:        u.FreeTrialsUsed,
		FreeTrialsRemaining:   max(0, entitlement.FreeTrialLimit-u.FreeTrialsUsed),
		IsSubscribed:          u.IsSubscribed,
		SubscriptionExpiresAt: u.SubscriptionExpiresAt,
	}
}

func toUsageView(d entitlement.Decision) UsageView {
	return UsageView{
		CanUse:               d.Allowed,
		Reason:               string(d.Reason),
		RemainingTrials:      d.RemainingTrials,
		RequiresSubscription: d.RequiresSubscription(),
	}
}

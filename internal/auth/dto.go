// AngelaMos | 2026
// dto.go

package auth

import (
	"time"
)

type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Name     string `json:"name"     validate:"required,notblank,max=100"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

type ValidateTokenRequest struct {
	Token string `json:"token"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type AuthResponse struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

type ValidatedUser struct {
	ID                    string     `json:"id"`
	Email                 string     `json:"email"`
	Name                  string     `json:"name"`
	FreeTrialsUsed        int        `json:"freeTrialsUsed"`
	IsSubscribed          bool       `json:"isSubscribed"`
	SubscriptionExpiresAt *time.Time `json:"subscriptionExpiresAt"`
}

type ValidateTokenResponse struct {
	Valid           bool           `json:"valid"`
	User            *ValidatedUser `json:"user"`
	CanUseService   bool           `json:"canUseService"`
	Message         string         `json:"message"`
	RemainingTrials int            `json:"remainingTrials"`
}

// InvalidTokenResponse is still sent with 200; clients branch on Valid.
type InvalidTokenResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error"`
}

type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

type User struct {
	ID                    string     `db:"id"`
	Email                 string     `db:"email"`
	PasswordHash          string     `db:"password_hash"`
	Name                  string     `db:"name"`
	IsActive              bool       `db:"is_active"`
	FreeTrialsUsed        int        `db:"free_trials_used"`
	IsSubscribed          bool       `db:"is_subscribed"`
	SubscriptionExpiresAt *time.Time `db:"subscription_expires_at"`
	LastLoginAt           *time.Time `db:"last_login_at"`
	CreatedAt             time.Time  `db:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at"`
}

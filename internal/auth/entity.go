// AngelaMos | 2026
// entity.go

package auth

import (
	"time"
)

// IssuedToken is an audit row for a minted token. Only a hash of the token
// is kept and verification never reads it back.
type IssuedToken struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	UserAgent string    `db:"user_agent"`
	IPAddress string    `db:"ip_address"`
	CreatedAt time.Time `db:"created_at"`
}

func (t *IssuedToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// AngelaMos | 2026
// entity.go

package contact

import (
	"time"
)

type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

type Message struct {
	ID        string    `db:"id"         json:"id"`
	UserID    string    `db:"user_id"    json:"-"`
	Name      string    `db:"name"       json:"-"`
	Email     string    `db:"email"      json:"-"`
	Subject   string    `db:"subject"    json:"subject"`
	Body      string    `db:"message"    json:"message"`
	Status    Status    `db:"status"     json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

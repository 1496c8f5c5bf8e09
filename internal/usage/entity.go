// AngelaMos | 2026
// entity.go

package usage

import (
	"time"
)

type Action string

const (
	ActionRewrite     Action = "rewrite"
	ActionGrammarize  Action = "grammarize"
	ActionFormatEmail Action = "format-email"
)

const DefaultModel = "gpt-4o-mini"

func (a Action) Valid() bool {
	switch a {
	case ActionRewrite, ActionGrammarize, ActionFormatEmail:
		return true
	}
	return false
}

// Record is one transformation attempt. Records are written once and never
// read back by entitlement decisions.
type Record struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	Action       Action    `db:"action"`
	InputLength  int       `db:"input_length"`
	OutputLength int       `db:"output_length"`
	Model        string    `db:"model"`
	TokensUsed   int       `db:"tokens_used"`
	Cost         float64   `db:"cost"`
	Success      bool      `db:"success"`
	Error        *string   `db:"error"`
	CreatedAt    time.Time `db:"created_at"`
}

type ActionStats struct {
	Action            Action     `db:"action"             json:"action"`
	Count             int        `db:"count"              json:"count"`
	TotalTokens       int        `db:"total_tokens"       json:"totalTokens"`
	TotalCost         float64    `db:"total_cost"         json:"totalCost"`
	TotalInputLength  int        `db:"total_input_length"  json:"totalInputLength"`
	TotalOutputLength int        `db:"total_output_length" json:"totalOutputLength"`
	LastUsedAt        *time.Time `db:"last_used_at"       json:"lastUsedAt"`
}

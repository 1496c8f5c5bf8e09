// AngelaMos | 2026
// dto.go

package transform

type RewriteRequest struct {
	Prompt string `json:"prompt" validate:"required,notblank,max=10000"`
	Format string `json:"format" validate:"omitempty,max=64"`
}

type TextRequest struct {
	Text string `json:"text" validate:"required,notblank,max=10000"`
}

type RewriteResponse struct {
	Success         bool   `json:"success"`
	OriginalPrompt  string `json:"originalPrompt"`
	RewrittenPrompt string `json:"rewrittenPrompt"`
	Format          string `json:"format"`
}

type GrammarResponse struct {
	Success         bool   `json:"success"`
	OriginalText    string `json:"originalText"`
	GrammarizedText string `json:"grammarizedText"`
}

type EmailResponse struct {
	Success        bool   `json:"success"`
	OriginalText   string `json:"originalText"`
	FormattedEmail string `json:"formattedEmail"`
}

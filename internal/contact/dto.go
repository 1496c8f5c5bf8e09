// AngelaMos | 2026
// dto.go

package contact

type SubmitRequest struct {
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message" validate:"max=5000"`
}

type SubmitResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ContactID string `json:"contactId"`
}

type HistoryResponse struct {
	Success  bool      `json:"success"`
	Contacts []Message `json:"contacts"`
}

// internal/workers/lead/ingest-message/models.go
package ingestmessage

type Input struct {
	Phone     string `json:"phone"`
	Name      string `json:"name,omitempty"`
	Body      string `json:"body"`
	MediaURL  string `json:"mediaUrl,omitempty"`
	Timestamp string `json:"timestamp,omitempty"` // RFC3339
	FromMe    bool   `json:"fromMe,omitempty"`
}

type Output struct {
	LeadID          string `json:"leadId"`
	MessageID       string `json:"messageId"`
	Sender          string `json:"sender"`
	LeadCreated     bool   `json:"leadCreated"`
	Status          string `json:"status"`
	DraftSuperseded bool   `json:"draftSuperseded"`
}

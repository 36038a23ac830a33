// internal/workers/messaging/dispatch-reply/models.go
package dispatchreply

type Input struct {
	LeadID        string `json:"leadId"`
	Response      string `json:"response"`
	MediaURL      string `json:"mediaUrl,omitempty"`
	TypingDelayMs int64  `json:"typingDelayMs,omitempty"`
	DecidedAt     string `json:"decidedAt,omitempty"` // RFC3339
}

type Output struct {
	LeadID             string `json:"leadId"`
	Status             string `json:"status"`
	Transport          string `json:"transport,omitempty"`
	TransportMessageID string `json:"transportMessageId,omitempty"`
	MessageID          string `json:"messageId,omitempty"`
	Recorded           bool   `json:"recorded"`
	SentAt             string `json:"sentAt,omitempty"`
}

const (
	StatusSent       = "sent"
	StatusSuperseded = "superseded"
)

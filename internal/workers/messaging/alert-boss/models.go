// internal/workers/messaging/alert-boss/models.go
package alertboss

type Input struct {
	LeadID           string `json:"leadId"`
	BossAlert        string `json:"bossAlert,omitempty"`
	ThoughtProcess   string `json:"thoughtProcess,omitempty"`
	EscalationReason string `json:"escalationReason,omitempty"`
}

type Output struct {
	AlertID   string `json:"alertId"`
	Status    string `json:"status"` // "sent", "partial", "disabled"
	SMSSent   bool   `json:"smsSent"`
	EmailSent bool   `json:"emailSent"`
	Recorded  bool   `json:"recorded"`
	SentAt    string `json:"sentAt"` // ISO 8601
}

const (
	StatusSent     = "sent"
	StatusPartial  = "partial"
	StatusDisabled = "disabled"
)

// internal/workers/lead/evaluate-lead/models.go
package evaluatelead

import (
	"sales-crm-workers/internal/intelligence"
	"sales-crm-workers/internal/models"
)

type Input struct {
	LeadID  string          `json:"leadId"`
	Message *models.Message `json:"message,omitempty"`
}

type Output struct {
	LeadID string `json:"leadId"`
	intelligence.Guidance
	Draft          string `json:"draft"`
	JudgeSource    string `json:"judgeSource"`
	FallbackReason string `json:"fallbackReason,omitempty"`
}

// internal/workers/lead/agent-decide/models.go
package agentdecide

import "sales-crm-workers/internal/agent"

type Input struct {
	LeadID  string `json:"leadId"`
	Content string `json:"content,omitempty"`
}

type Output struct {
	LeadID    string `json:"leadId"`
	LeadName  string `json:"leadName"`
	LeadPhone string `json:"leadPhone"`
	agent.Decision
	State          string `json:"state"`
	BossAlert      string `json:"bossAlert,omitempty"`
	JudgeSource    string `json:"judgeSource"`
	FallbackReason string `json:"fallbackReason,omitempty"`
	// DecidedAt lets dispatch-reply drop the reply if the client wrote again.
	DecidedAt string `json:"decidedAt"` // RFC3339
}

package agent

import (
	"fmt"

	"sales-crm-workers/internal/models"
)

// FormatBossAlert renders the hand-over message sent to the owner when the
// agent escalates.
func FormatBossAlert(lead *models.Lead, d Decision) string {
	reason := "High Urgency/Emotion Detected"
	switch d.Escalation {
	case EscalationHighValue:
		reason = "High Value Deal"
	case EscalationCategory:
		reason = "Boss-only Product Category"
	case EscalationSampleAccepted:
		reason = "Sample Charge Accepted"
	case EscalationExternal:
		reason = "Flagged by AI Review"
	}

	return fmt.Sprintf(`🚨 *BOSS ALERT* 🚨

*Client:* %s (%s)
*Status:* %s
*Reason:* %s
*Action Required:* Please takeover chat immediately. Agent has paused.

[Reply 'RESUME' to re-activate Agent]`, lead.Name, lead.Phone, d.ThoughtProcess, reason)
}

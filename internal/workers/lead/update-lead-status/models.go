// internal/workers/lead/update-lead-status/models.go
package updateleadstatus

type Input struct {
	LeadID string `json:"leadId"`
	Status string `json:"status"`
}

type Output struct {
	LeadID         string `json:"leadId"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previousStatus"`
	Changed        bool   `json:"changed"`
}

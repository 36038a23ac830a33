// internal/workers/lead/draft-reply/models.go
package draftreply

type Input struct {
	LeadID       string `json:"leadId,omitempty"`
	Content      string `json:"content,omitempty"`
	CustomerType string `json:"customerType,omitempty"`
}

type Output struct {
	Reply        string  `json:"reply"`
	Topic        string  `json:"topic"`
	Confidence   float64 `json:"confidence"`
	CustomerType string  `json:"customerType"`
}

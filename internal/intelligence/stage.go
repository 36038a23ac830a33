package intelligence

import (
	"strings"

	"sales-crm-workers/internal/models"
)

// QuoteSent reports whether we have already sent a quote or estimate. Only
// our own messages count. Boss alerts and the sample courier charge carry
// rupee amounts but are not prices.
func QuoteSent(lead *models.Lead) bool {
	for _, m := range lead.Messages {
		if m.Sender == models.SenderClient || m.Type == models.MessageAlert {
			continue
		}
		if m.Type == models.MessageEstimate {
			return true
		}
		lower := strings.ToLower(m.Content)
		if containsAny(lower, "quotation", "estimate") {
			return true
		}
		if strings.Contains(m.Content, "₹") && !strings.Contains(lower, "courier charge") {
			return true
		}
	}
	return false
}

// formalQuoteSent looks for a numbered quotation, the marker the closing
// window keys on.
func formalQuoteSent(lead *models.Lead) bool {
	for _, m := range lead.Messages {
		if m.Sender != models.SenderClient && strings.Contains(m.Content, "Quotation #") {
			return true
		}
	}
	return false
}

type stageInput struct {
	lead      *models.Lead
	text      string
	quoteSent bool
}

var stageTable = Table[stageInput, Stage]{
	{Name: "closed", Result: StageClosed, Match: func(in stageInput) bool {
		return in.lead.Status == models.StatusClosed || containsAny(in.text, "payment done", "booked")
	}},
	{Name: "negotiation", Result: StageNegotiation, Match: func(in stageInput) bool {
		return in.quoteSent && containsAny(in.text, "discount", "rate", "expensive", "budget", "final")
	}},
	{Name: "quotation", Result: StageQuotation, Match: func(in stageInput) bool {
		return in.quoteSent
	}},
	{Name: "sampling", Result: StageSampling, Match: func(in stageInput) bool {
		return in.lead.Sample != nil || containsAny(in.text, "sample", "photo", "catalog", "images")
	}},
}

// DetectStage places the lead in the pipeline.
func DetectStage(lead *models.Lead, text string) Stage {
	return stageTable.Classify(stageInput{
		lead:      lead,
		text:      strings.ToLower(text),
		quoteSent: QuoteSent(lead),
	}, StageLead)
}

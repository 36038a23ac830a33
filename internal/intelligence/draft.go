package intelligence

import (
	"fmt"

	"sales-crm-workers/internal/models"
)

type draftInput struct {
	lead     *models.Lead
	name     string
	stage    Stage
	customer CustomerType
	climate  ClimateStrategy
}

type template func(in draftInput) string

// draftTemplates is checked top-down: pipeline stage first, then customer
// type, then the generic fallback.
var draftTemplates = Table[draftInput, template]{
	{
		Name: "negotiation_builder",
		Match: func(in draftInput) bool {
			return in.stage == StageNegotiation && in.customer == CustomerBuilder
		},
		Result: func(in draftInput) string {
			return fmt.Sprintf("Hi %s, for a bulk project like yours, the long-term value of our wirecut bricks far outweighs the small price difference. I can stretch to give you free unloading if we close today.", in.name)
		},
	},
	{
		Name:  "negotiation",
		Match: func(in draftInput) bool { return in.stage == StageNegotiation },
		Result: func(in draftInput) string {
			return fmt.Sprintf("Hi %s, I understand the budget. However, this is a one-time elevation investment. Our bricks ensure zero maintenance for 50 years. Can we proceed?", in.name)
		},
	},
	{
		Name:  "quotation",
		Match: func(in draftInput) bool { return in.stage == StageQuotation },
		Result: func(in draftInput) string {
			zone := "this area"
			if in.climate.Coastal() {
				zone = "a high rain zone"
			}
			return fmt.Sprintf("Hi %s, hope you reviewed the estimate. Since you are in %s, our %s is the perfect technical fit. Shall I block the stock?", in.name, zone, in.climate.ProductFocus)
		},
	},
	{
		Name:  "qualify_architect",
		Match: func(in draftInput) bool { return qualifying(in) && in.customer == CustomerArchitect },
		Result: func(in draftInput) string {
			return fmt.Sprintf("Hi Ar. %s, glad to connect. To assist better with the facade design, could you share the project location and approximate cladding area?", in.name)
		},
	},
	{
		Name: "qualify_new_homeowner",
		Match: func(in draftInput) bool {
			return qualifying(in) && in.customer == CustomerHomeowner && len(in.lead.Messages) <= 2
		},
		Result: func(in draftInput) string {
			return fmt.Sprintf("Hi %s, congratulations on your new home! To suggest the best elevation designs, are you looking for a red brick look or something more modern like grey/black?", in.name)
		},
	},
	{
		Name:  "qualify",
		Match: qualifying,
		Result: func(in draftInput) string {
			return fmt.Sprintf("Hi %s, thanks for inquiring. To give you the correct rate card, could you confirm the delivery location?", in.name)
		},
	},
	{
		Name:  "sampling",
		Match: func(in draftInput) bool { return in.stage == StageSampling },
		Result: func(in draftInput) string {
			site := in.lead.SiteLocation
			if site == "" {
				site = "your area"
			}
			return fmt.Sprintf("Hi %s, sharing the latest site photos of our %s. Would you like to see physical samples at your site in %s?", in.name, in.climate.ProductFocus, site)
		},
	},
}

func qualifying(in draftInput) bool {
	return in.stage == StageLead || qualificationPending(in.lead)
}

func genericDraft(in draftInput) string {
	return fmt.Sprintf("Hi %s, how can I help you with your elevation requirements today?", in.name)
}

// Draft writes a stage-aware reply for the lead. Exactly one template fires
// for any input.
func Draft(lead *models.Lead, stage Stage, customer CustomerType, climate ClimateStrategy) string {
	if lead == nil {
		lead = &models.Lead{}
	}
	in := draftInput{
		lead:     lead,
		name:     models.FirstName(lead.Name),
		stage:    stage,
		customer: customer,
		climate:  climate,
	}
	render := draftTemplates.Classify(in, genericDraft)
	return render(in)
}

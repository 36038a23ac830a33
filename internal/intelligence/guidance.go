package intelligence

import (
	"strings"
	"time"

	"sales-crm-workers/internal/models"
)

const maxSuggestions = 4

// Guidance is a one-shot judgment on a lead. It is recomputed on every
// evaluation and never stored.
type Guidance struct {
	LeadScore           LeadScore                  `json:"leadScore"`
	SeriousBuyerScore   int                        `json:"seriousBuyerScore"`
	HeatColor           HeatColor                  `json:"heatColor"`
	Intent              Intent                     `json:"intent"`
	Summary             string                     `json:"summary"`
	NextStep            string                     `json:"nextStep"`
	PersonaComment      string                     `json:"personaComment"`
	Suggestions         []SuggestedAction          `json:"suggestions"`
	CustomerType        CustomerType               `json:"customerType"`
	Location            string                     `json:"location,omitempty"`
	QualificationStatus models.QualificationStatus `json:"qualificationStatus"`
	GhostingStatus      GhostingStatus             `json:"ghostingStatus"`
	DecisionPressure    DecisionPressure           `json:"decisionPressure"`
	ClosingWindow       bool                       `json:"closingWindow"`
	ObjectionDetected   Objection                  `json:"objectionDetected"`
	ClimateStrategy     ClimateStrategy            `json:"climateStrategy"`
	PipelineStage       Stage                      `json:"pipelineStage"`
	BranchKind          BranchKind                 `json:"branch"`
	Branch              Branch                     `json:"-"`

	OrderValue
}

// Evaluator compiles Guidance from a lead and its latest message. It holds
// no mutable state and is safe for concurrent use.
type Evaluator struct {
	params  Params
	coastal coastalMatcher
	now     func() time.Time
}

type Option func(*Evaluator)

// WithClock replaces the wall clock used for inactivity checks.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

func NewEvaluator(params Params, opts ...Option) *Evaluator {
	e := &Evaluator{
		params:  params,
		coastal: newCoastalMatcher(params.CoastalMarkets),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) Params() Params { return e.params }

func (e *Evaluator) Evaluate(lead *models.Lead, last models.Message) Guidance {
	return e.EvaluateAt(lead, last, e.now())
}

// situation is everything the cascade looks at.
type situation struct {
	lead      *models.Lead
	objection Objection
	trigger   string
	ghosting  GhostingStatus
	inactive  time.Duration
	closing   ClosingWindow
}

// primaryBranches run in precedence order. Only the first that applies
// supplies the primary suggestions.
var primaryBranches = []func(s *situation) (Branch, bool){
	func(s *situation) (Branch, bool) {
		if qualificationPending(s.lead) {
			return Qualify{MissingFields: missingFields(s.lead)}, true
		}
		return nil, false
	},
	func(s *situation) (Branch, bool) {
		if s.objection == ObjectionPrice {
			return PriceObjection{Trigger: s.trigger}, true
		}
		return nil, false
	},
	func(s *situation) (Branch, bool) {
		if s.ghosting == GhostingRisk {
			return GhostRisk{Inactive: s.inactive}, true
		}
		return nil, false
	},
	func(s *situation) (Branch, bool) {
		if s.ghosting == GhostingGhosted {
			return Ghosted{Inactive: s.inactive}, true
		}
		return nil, false
	},
}

// EvaluateAt is Evaluate with an explicit "now". It never mutates lead.
func (e *Evaluator) EvaluateAt(lead *models.Lead, last models.Message, now time.Time) Guidance {
	if lead == nil {
		lead = &models.Lead{}
	}
	text := last.Content

	customer := DetectCustomerType(lead, text)
	score := BuyerIntentScore(lead, text)
	objection, trigger := detectObjection(text)
	ghosting := Ghosting(lead, now)
	inactive, _ := Inactivity(lead, now)
	stage := DetectStage(lead, text)
	climate := e.coastal.strategy(lead, text)

	closing := ClosingWindow{
		QuoteSent:        formalQuoteSent(lead),
		SampleDelivered:  lead.Sample != nil && lead.Sample.Status == models.SampleDelivered,
		ActiveDiscussion: lead.Responsiveness() == models.ResponsivenessFast,
	}
	windowOpen := (closing.QuoteSent || closing.SampleDelivered) && closing.ActiveDiscussion

	s := &situation{
		lead:      lead,
		objection: objection,
		trigger:   trigger,
		ghosting:  ghosting,
		inactive:  inactive,
		closing:   closing,
	}

	var branch Branch
	for _, step := range primaryBranches {
		if b, ok := step(s); ok {
			branch = b
			break
		}
	}
	if branch == nil {
		if closing.ActiveDiscussion {
			branch = closing
		} else {
			branch = Default{}
		}
	}

	p := playFor(branch)
	suggestions := append([]SuggestedAction(nil), p.suggestions...)

	if closing.ActiveDiscussion {
		suggestions = append(suggestions, assumptiveCloses...)
	}

	if len(suggestions) < 3 {
		suggestions = append(suggestions, SuggestedAction{
			Label:       "✨ AI Smart Draft",
			ActionType:  ActionCustomReply,
			Payload:     Draft(lead, stage, customer, climate),
			Description: "Context-aware auto-reply",
			Tone:        ToneProfessional,
		})
	}
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}

	persona := p.persona
	if persona == "" {
		persona = "Guide them to the next step."
	}

	qualification := lead.QualificationStatus
	if qualification == "" {
		qualification = models.QualificationPending
	}

	return Guidance{
		LeadScore:           ScoreLabel(score),
		SeriousBuyerScore:   score,
		HeatColor:           HeatBand(score),
		Intent:              DetectIntent(text),
		Summary:             p.summary,
		NextStep:            p.nextStep,
		PersonaComment:      persona,
		Suggestions:         suggestions,
		CustomerType:        customer,
		OrderValue:          EstimateOrderValue(text, customer, lead.EstimatedArea, e.params),
		Location:            lead.SiteLocation,
		QualificationStatus: qualification,
		GhostingStatus:      ghosting,
		DecisionPressure:    Pressure(lead, now),
		ClosingWindow:       windowOpen,
		ObjectionDetected:   objection,
		ClimateStrategy:     climate,
		PipelineStage:       stage,
		BranchKind:          branch.Kind(),
		Branch:              branch,
	}
}

func qualificationPending(lead *models.Lead) bool {
	return lead.QualificationStatus == "" || lead.QualificationStatus == models.QualificationPending
}

func missingFields(lead *models.Lead) []string {
	var missing []string
	if strings.TrimSpace(lead.SiteLocation) == "" {
		missing = append(missing, "siteLocation")
	}
	if lead.ProjectType == "" {
		missing = append(missing, "projectType")
	}
	if lead.EstimatedArea <= 0 {
		missing = append(missing, "estimatedArea")
	}
	return missing
}

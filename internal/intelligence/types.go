package intelligence

type CustomerType string

const (
	CustomerArchitect  CustomerType = "Architect"
	CustomerBuilder    CustomerType = "Builder"
	CustomerContractor CustomerType = "Contractor"
	CustomerHomeowner  CustomerType = "Homeowner"
	CustomerUnknown    CustomerType = "Unknown"
)

type Objection string

const (
	ObjectionPrice  Objection = "Price"
	ObjectionVendor Objection = "Vendor"
	ObjectionDelay  Objection = "Delay"
	ObjectionNone   Objection = "None"
)

type GhostingStatus string

const (
	GhostingSafe    GhostingStatus = "Safe"
	GhostingRisk    GhostingStatus = "Risk"
	GhostingGhosted GhostingStatus = "Ghosted"
)

type DecisionPressure string

const (
	PressureFastMover DecisionPressure = "Fast Mover"
	PressureThinking  DecisionPressure = "Thinking"
	PressureDelayZone DecisionPressure = "Delay Zone"
	PressureDropping  DecisionPressure = "Dropping"
)

// Stage is the position of a lead in the sales pipeline.
type Stage string

const (
	StageLead        Stage = "Lead"
	StageSampling    Stage = "Sampling"
	StageQuotation   Stage = "Quotation"
	StageNegotiation Stage = "Negotiation"
	StageClosed      Stage = "Closed"
)

type LeadScore string

const (
	ScoreHot  LeadScore = "HOT 🔥"
	ScoreWarm LeadScore = "WARM 🟡"
	ScoreCold LeadScore = "COLD ❄️"

	// Only produced by the external judgment service.
	ScoreTimepass LeadScore = "TIMEPASS 🤡"
	ScoreDead     LeadScore = "DEAD ⚫"
)

type HeatColor string

const (
	HeatRed    HeatColor = "red"
	HeatYellow HeatColor = "yellow"
	HeatBlue   HeatColor = "blue"
)

type Intent string

const (
	IntentPriceCheck Intent = "Price Check"
	IntentBuying     Intent = "Buying"
	IntentPlanning   Intent = "Planning"
	IntentDesign     Intent = "Design Exploration"
	IntentComparison Intent = "Comparison"
)

type ActionType string

const (
	ActionSendPhotos       ActionType = "send_photos"
	ActionSendSiteImage    ActionType = "send_site_image"
	ActionSendEstimate     ActionType = "send_estimate"
	ActionAskQuestion      ActionType = "ask_question"
	ActionCustomReply      ActionType = "custom_reply"
	ActionLogQualification ActionType = "log_qualification"
)

type Tone string

const (
	ToneProfessional Tone = "Professional"
	ToneFriendly     Tone = "Friendly"
	TonePremium      Tone = "Premium"
	ToneUrgent       Tone = "Urgent"
	ToneDirect       Tone = "Direct"
)

// SuggestedAction is one entry of the rep's action list.
type SuggestedAction struct {
	Label       string     `json:"label"`
	ActionType  ActionType `json:"actionType"`
	Payload     string     `json:"payload,omitempty"`
	Description string     `json:"description,omitempty"`
	Tone        Tone       `json:"tone,omitempty"`
}

// ClimateStrategy is the messaging angle picked for the site's region.
type ClimateStrategy struct {
	Label        string `json:"label"`
	Advice       string `json:"advice"`
	ProductFocus string `json:"productFocus"`
}

// OrderValue is an estimated deal size.
type OrderValue struct {
	Display   string  `json:"estimatedValue"`
	Value     float64 `json:"numericValue"`
	HighValue bool    `json:"isHighValue"`
}

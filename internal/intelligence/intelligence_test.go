package intelligence

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"sales-crm-workers/internal/common/config"
	"sales-crm-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func hoursAgo(h float64) *time.Time {
	t := testNow.Add(-time.Duration(h * float64(time.Hour)))
	return &t
}

func clientMsg(content string) models.Message {
	return models.Message{Sender: models.SenderClient, Content: content, Type: models.MessageText, Timestamp: testNow}
}

func repMsg(content string) models.Message {
	return models.Message{Sender: models.SenderSalesRep, Content: content, Type: models.MessageText, Timestamp: testNow}
}

func qualifiedLead() *models.Lead {
	return &models.Lead{
		ID:                  "lead-1",
		Name:                "Priya Sharma",
		Status:              models.StatusFollowUp,
		QualificationStatus: models.QualificationQualified,
		SiteLocation:        "Pune",
		ProjectType:         models.ProjectRenovation,
		EstimatedArea:       3000,
		LastActive:          hoursAgo(1),
	}
}

func newTestEvaluator() *Evaluator {
	return NewEvaluator(DefaultParams(), WithClock(func() time.Time { return testNow }))
}

// ==========================
// Rule tables
// ==========================

func TestTable_FirstMatchWins(t *testing.T) {
	table := concat(
		keywordRules("first", "alpha"),
		keywordRules("second", "alpha", "beta"),
	)

	r, ok := table.Match("alpha beta")
	require.True(t, ok)
	assert.Equal(t, "first", r.Result)
	assert.Equal(t, "alpha", r.Name)

	assert.Equal(t, "second", table.Classify("beta", "none"))
	assert.Equal(t, "none", table.Classify("gamma", "none"))
}

// ==========================
// Scoring primitives
// ==========================

func TestBuyerIntentScore(t *testing.T) {
	tests := []struct {
		name string
		lead *models.Lead
		text string
		want int
	}{
		{"base", &models.Lead{}, "hello there how are you", 30},
		{"bare rate inquiry", &models.Lead{}, "what's the rate?", 15},
		{"long rate question is not penalised", &models.Lead{}, "could you tell me the rate for wirecut", 30},
		{"negotiator and bare rate", &models.Lead{}, "rate too expensive", 10},
		{"urgency and payment", &models.Lead{}, "urgent, I can transfer the advance", 60},
		{"site visit", &models.Lead{}, "can we plan a visit", 40},
		{"qualified villa", &models.Lead{QualificationStatus: models.QualificationQualified, ProjectType: models.ProjectVilla}, "ok", 75},
		{
			"clamped at 100",
			&models.Lead{
				QualificationStatus: models.QualificationQualified,
				ProjectType:         models.ProjectCommercial,
				EstimatedArea:       5000,
				Profile:             &models.ClientProfile{Responsiveness: models.ResponsivenessFast, Seriousness: models.SeriousnessHigh},
			},
			"urgent, budget approved, visit the site",
			100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuyerIntentScore(tt.lead, tt.text))
		})
	}
}

func TestBuyerIntentScore_AlwaysInRange(t *testing.T) {
	texts := []string{"", "rate", "RATE??", "expensive discount rate", "urgent budget sample visit site transfer account immediately start work"}
	leads := []*models.Lead{
		{},
		{QualificationStatus: models.QualificationQualified, ProjectType: models.ProjectVilla, EstimatedArea: 1e9,
			Profile: &models.ClientProfile{Responsiveness: models.ResponsivenessFast, Seriousness: models.SeriousnessHigh}},
		{EstimatedArea: -10},
	}

	for _, l := range leads {
		for _, text := range texts {
			score := BuyerIntentScore(l, text)
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
		}
	}
}

func TestHeatBandAndLabel(t *testing.T) {
	assert.Equal(t, HeatRed, HeatBand(76))
	assert.Equal(t, HeatYellow, HeatBand(75))
	assert.Equal(t, HeatYellow, HeatBand(41))
	assert.Equal(t, HeatBlue, HeatBand(40))

	assert.Equal(t, ScoreHot, ScoreLabel(90))
	assert.Equal(t, ScoreWarm, ScoreLabel(50))
	assert.Equal(t, ScoreCold, ScoreLabel(10))
}

func TestDetectObjection(t *testing.T) {
	tests := []struct {
		text string
		want Objection
	}{
		{"This is expensive, the other vendor is cheaper", ObjectionPrice},
		{"Is it more than the quoted amount?", ObjectionPrice},
		{"Which other brand do you compare with", ObjectionVendor},
		{"I will confirm next month", ObjectionDelay},
		{"Let me wait", ObjectionDelay},
		{"Looks good", ObjectionNone},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectObjection(tt.text))
		})
	}

	_, trigger := detectObjection("too EXPENSIVE for us")
	assert.Equal(t, "expensive", trigger)
}

func TestGhosting(t *testing.T) {
	tests := []struct {
		name       string
		lastActive *time.Time
		want       GhostingStatus
	}{
		{"47 hours", hoursAgo(47), GhostingSafe},
		{"49 hours", hoursAgo(49), GhostingRisk},
		{"121 hours", hoursAgo(121), GhostingGhosted},
		{"never active", nil, GhostingSafe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Ghosting(&models.Lead{LastActive: tt.lastActive}, testNow))
		})
	}
}

func TestPressure(t *testing.T) {
	fast := &models.ClientProfile{Responsiveness: models.ResponsivenessFast}

	assert.Equal(t, PressureFastMover, Pressure(&models.Lead{LastActive: hoursAgo(200), Profile: fast}, testNow))
	assert.Equal(t, PressureDropping, Pressure(&models.Lead{LastActive: hoursAgo(169)}, testNow))
	assert.Equal(t, PressureDelayZone, Pressure(&models.Lead{LastActive: hoursAgo(73)}, testNow))
	assert.Equal(t, PressureThinking, Pressure(&models.Lead{LastActive: hoursAgo(10)}, testNow))
	assert.Equal(t, PressureThinking, Pressure(&models.Lead{}, testNow))
}

func TestDetectCustomerType(t *testing.T) {
	tests := []struct {
		name    string
		project models.ProjectType
		text    string
		want    CustomerType
	}{
		{"commercial project wins over keywords", models.ProjectCommercial, "I am an architect", CustomerBuilder},
		{"villa project", models.ProjectVilla, "hello", CustomerHomeowner},
		{"architect keyword", "", "Our elevation design needs cladding", CustomerArchitect},
		{"builder keyword", "", "bulk order for a project", CustomerBuilder},
		{"contractor keyword", "", "contractor here", CustomerContractor},
		{"homeowner keyword", "", "for my house", CustomerHomeowner},
		{"renovation falls back to keywords", models.ProjectRenovation, "my home", CustomerHomeowner},
		{"unknown", "", "hello", CustomerUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectCustomerType(&models.Lead{ProjectType: tt.project}, tt.text))
		})
	}
}

func TestEstimateOrderValue(t *testing.T) {
	p := DefaultParams()

	tests := []struct {
		name     string
		text     string
		customer CustomerType
		area     float64
		want     float64
		display  string
		high     bool
	}{
		{"area based", "tower", CustomerBuilder, 2000, 110000, "₹1.1L+", false},
		{"builder default", "hello", CustomerBuilder, 0, 1000000, "₹10.0L+", true},
		{"architect default", "hello", CustomerArchitect, 0, 300000, "₹3.0L+", true},
		{"homeowner default", "hello", CustomerHomeowner, 0, 150000, "₹1.5L+", false},
		{"fallback", "hello", CustomerUnknown, 0, 50000, "₹0.5L+", false},
		{"villa override", "for our villa", CustomerUnknown, 0, 500000, "₹5.0L+", true},
		{"tower override", "a villa tower", CustomerHomeowner, 0, 2000000, "₹20.0L+", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateOrderValue(tt.text, tt.customer, tt.area, p)
			assert.Equal(t, tt.want, got.Value)
			assert.Equal(t, tt.display, got.Display)
			assert.Equal(t, tt.high, got.HighValue)
		})
	}
}

func TestDetectStage(t *testing.T) {
	quoted := []models.Message{repMsg("Quotation #204 attached, total ₹1,20,000")}

	tests := []struct {
		name string
		lead *models.Lead
		text string
		want Stage
	}{
		{"closed status", &models.Lead{Status: models.StatusClosed}, "hi", StageClosed},
		{"payment done", &models.Lead{}, "Payment done, please dispatch", StageClosed},
		{"negotiation after quote", &models.Lead{Messages: quoted}, "final discount?", StageNegotiation},
		{"quotation after quote", &models.Lead{Messages: quoted}, "ok will check", StageQuotation},
		{"estimate message type", &models.Lead{Messages: []models.Message{{Sender: models.SenderSalesRep, Type: models.MessageEstimate}}}, "ok", StageQuotation},
		{"client rupee mention is not a quote", &models.Lead{Messages: []models.Message{clientMsg("my budget is ₹50000")}}, "ok", StageLead},
		{"rate reply is a quote", &models.Lead{Messages: []models.Message{repMsg("the rate is ₹42/piece, about ₹224/sqft")}}, "ok", StageQuotation},
		{"sample courier charge is not a quote", &models.Lead{Messages: []models.Message{repMsg("Could you share your site location? There is a courier charge of ₹500 for the sample box.")}}, "ok", StageLead},
		{"boss alert is not a quote", &models.Lead{Messages: []models.Message{{Sender: models.SenderSystem, Type: models.MessageAlert, Content: "BOSS ALERT: deal value ₹12,00,000"}}}, "ok", StageLead},
		{"sample requested", &models.Lead{Sample: &models.SampleRequest{Status: models.SamplePending}}, "ok", StageSampling},
		{"asks for photos", &models.Lead{}, "send photos please", StageSampling},
		{"default", &models.Lead{}, "hello", StageLead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectStage(tt.lead, tt.text))
		})
	}
}

func TestClimateStrategy(t *testing.T) {
	m := newCoastalMatcher(DefaultParams().CoastalMarkets)

	assert.True(t, m.strategy(&models.Lead{SiteLocation: "Kharghar, Navi Mumbai"}, "").Coastal())
	assert.True(t, m.strategy(&models.Lead{Messages: []models.Message{clientMsg("site is near Goa")}}, "").Coastal())
	assert.True(t, m.strategy(&models.Lead{}, "delivery to Thane").Coastal())
	assert.False(t, m.strategy(&models.Lead{SiteLocation: "Pune"}, "hello").Coastal())
	assert.False(t, m.strategy(&models.Lead{}, "mumbaikar here").Coastal())

	assert.Equal(t, "Wirecut Series", m.strategy(&models.Lead{SiteLocation: "Mumbai"}, "").ProductFocus)
	assert.Equal(t, "All Products", newCoastalMatcher(nil).strategy(&models.Lead{SiteLocation: "Mumbai"}, "").ProductFocus)
}

// ==========================
// Guidance compiler
// ==========================

func TestEvaluate_PendingLeadIsQualifiedFirst(t *testing.T) {
	lead := &models.Lead{Name: "Ravi", QualificationStatus: models.QualificationPending, LastActive: hoursAgo(1)}

	g := newTestEvaluator().Evaluate(lead, clientMsg("what's the rate?"))

	require.NotEmpty(t, g.Suggestions)
	assert.Equal(t, ActionLogQualification, g.Suggestions[0].ActionType)
	assert.Equal(t, BranchQualify, g.BranchKind)

	branch, ok := g.Branch.(Qualify)
	require.True(t, ok)
	assert.Equal(t, []string{"siteLocation", "projectType", "estimatedArea"}, branch.MissingFields)
	assert.Equal(t, models.QualificationPending, g.QualificationStatus)
}

func TestEvaluate_QualificationGatesEverything(t *testing.T) {
	lead := &models.Lead{
		Name:       "Angry Buyer",
		LastActive: hoursAgo(200),
		Messages:   []models.Message{repMsg("Quotation #9 for ₹2L")},
	}

	g := newTestEvaluator().Evaluate(lead, clientMsg("This is a waste, too expensive, bad service"))

	assert.Equal(t, ObjectionPrice, g.ObjectionDetected)
	assert.Equal(t, GhostingGhosted, g.GhostingStatus)
	assert.Equal(t, ActionLogQualification, g.Suggestions[0].ActionType)
	assert.Equal(t, BranchQualify, g.Branch.Kind())
}

func TestEvaluate_PriceObjection(t *testing.T) {
	g := newTestEvaluator().Evaluate(qualifiedLead(), clientMsg("this is too expensive"))

	assert.Equal(t, ObjectionPrice, g.ObjectionDetected)
	assert.Contains(t, strings.ToLower(g.Summary), "price objection")
	assert.Equal(t, PriceObjection{Trigger: "expensive"}, g.Branch)

	var labels []string
	for _, s := range g.Suggestions {
		labels = append(labels, s.Label)
		assert.NotContains(t, strings.ToLower(s.Payload), "discount")
		assert.NotContains(t, strings.ToLower(s.Label), "discount")
	}
	assert.Contains(t, labels, "🛡️ Value Defense")
	assert.NotContains(t, strings.ToLower(g.NextStep), "discount")
}

func TestEvaluate_GhostedLead(t *testing.T) {
	lead := qualifiedLead()
	lead.LastActive = hoursAgo(130)

	g := newTestEvaluator().Evaluate(lead, clientMsg("hi"))

	assert.Equal(t, GhostingGhosted, g.GhostingStatus)
	require.NotEmpty(t, g.Suggestions)
	assert.Equal(t, "🛑 Stock Release Warning", g.Suggestions[0].Label)

	branch, ok := g.Branch.(Ghosted)
	require.True(t, ok)
	assert.Equal(t, 130*time.Hour, branch.Inactive)
}

func TestEvaluate_GhostRiskGetsSmartDraft(t *testing.T) {
	lead := qualifiedLead()
	lead.LastActive = hoursAgo(60)

	g := newTestEvaluator().Evaluate(lead, clientMsg("hi"))

	assert.Equal(t, BranchGhostRisk, g.BranchKind)
	require.Len(t, g.Suggestions, 2)
	assert.Equal(t, "Soft Nudge", g.Suggestions[0].Label)
	assert.Equal(t, "✨ AI Smart Draft", g.Suggestions[1].Label)
}

func TestEvaluate_ClosingWindow(t *testing.T) {
	lead := qualifiedLead()
	lead.Profile = &models.ClientProfile{Responsiveness: models.ResponsivenessFast}
	lead.Messages = []models.Message{repMsg("Quotation #77 sent, valid for 7 days")}

	g := newTestEvaluator().Evaluate(lead, clientMsg("ok"))

	assert.True(t, g.ClosingWindow)
	assert.Equal(t, ClosingWindow{QuoteSent: true, ActiveDiscussion: true}, g.Branch)
	assert.Equal(t, StageQuotation, g.PipelineStage)
	require.Len(t, g.Suggestions, 3)
	assert.Equal(t, "🤝 Assumption Close (Dates)", g.Suggestions[0].Label)
	assert.Equal(t, "📝 Assumption Close (Invoice)", g.Suggestions[1].Label)
}

func TestEvaluate_ClosesAppendAfterPrimaryAndTruncate(t *testing.T) {
	lead := qualifiedLead()
	lead.Profile = &models.ClientProfile{Responsiveness: models.ResponsivenessFast}

	g := newTestEvaluator().Evaluate(lead, clientMsg("too costly"))

	require.Len(t, g.Suggestions, maxSuggestions)
	assert.Equal(t, "🛡️ Value Defense", g.Suggestions[0].Label)
	assert.Equal(t, "🤝 Assumption Close (Dates)", g.Suggestions[3].Label)
	assert.False(t, g.ClosingWindow)
}

func TestEvaluate_DefaultBranch(t *testing.T) {
	g := newTestEvaluator().Evaluate(qualifiedLead(), clientMsg("thanks"))

	assert.Equal(t, Default{}, g.Branch)
	assert.Equal(t, "Review lead details.", g.Summary)
	assert.Equal(t, "Guide them to the next step.", g.PersonaComment)
	require.Len(t, g.Suggestions, 1)
	assert.Equal(t, ActionCustomReply, g.Suggestions[0].ActionType)
}

func TestEvaluate_SuggestionBounds(t *testing.T) {
	e := newTestEvaluator()
	texts := []string{"", "rate?", "expensive", "urgent budget", "will confirm later"}
	statuses := []models.QualificationStatus{"", models.QualificationPending, models.QualificationPartial, models.QualificationQualified}
	idle := []float64{1, 50, 130}
	profiles := []*models.ClientProfile{nil, {Responsiveness: models.ResponsivenessFast}}

	for _, text := range texts {
		for _, q := range statuses {
			for _, h := range idle {
				for _, p := range profiles {
					lead := &models.Lead{QualificationStatus: q, LastActive: hoursAgo(h), Profile: p}
					g := e.Evaluate(lead, clientMsg(text))
					name := fmt.Sprintf("%q/%s/%v/%v", text, q, h, p != nil)
					assert.NotEmpty(t, g.Suggestions, name)
					assert.LessOrEqual(t, len(g.Suggestions), maxSuggestions, name)
				}
			}
		}
	}
}

func TestEvaluate_DeterministicAndReadOnly(t *testing.T) {
	lead := qualifiedLead()
	lead.Messages = []models.Message{clientMsg("need bricks"), repMsg("Quotation #3 attached")}
	lead.Tags = []string{"indiamart"}
	before := *lead
	beforeMessages := append([]models.Message(nil), lead.Messages...)

	e := newTestEvaluator()
	msg := clientMsg("final rate please")
	first := e.Evaluate(lead, msg)
	second := e.Evaluate(lead, msg)

	assert.Equal(t, first, second)
	assert.Equal(t, before, *lead)
	assert.Equal(t, beforeMessages, lead.Messages)
}

func TestEvaluate_NilLead(t *testing.T) {
	assert.NotPanics(t, func() {
		g := newTestEvaluator().Evaluate(nil, clientMsg("hello"))
		assert.Equal(t, BranchQualify, g.BranchKind)
	})
}

// ==========================
// Drafting
// ==========================

func TestDraft(t *testing.T) {
	coastal := coastalStrategy
	standard := standardStrategy

	qualified := &models.Lead{Name: "Anil Mehta", QualificationStatus: models.QualificationQualified}
	pending := &models.Lead{Name: "Anil Mehta"}
	chatty := &models.Lead{Name: "Anil", Messages: []models.Message{clientMsg("a"), clientMsg("b"), clientMsg("c")}}

	tests := []struct {
		name     string
		lead     *models.Lead
		stage    Stage
		customer CustomerType
		climate  ClimateStrategy
		contains string
	}{
		{"negotiation builder", qualified, StageNegotiation, CustomerBuilder, standard, "free unloading"},
		{"negotiation other", qualified, StageNegotiation, CustomerHomeowner, standard, "one-time elevation investment"},
		{"quotation coastal", qualified, StageQuotation, CustomerUnknown, coastal, "a high rain zone, our Wirecut Series"},
		{"quotation standard", qualified, StageQuotation, CustomerUnknown, standard, "this area, our All Products"},
		{"architect intro", pending, StageLead, CustomerArchitect, standard, "Hi Ar. Anil"},
		{"new homeowner", pending, StageLead, CustomerHomeowner, standard, "congratulations on your new home"},
		{"homeowner with history", chatty, StageLead, CustomerHomeowner, standard, "confirm the delivery location"},
		{"pending qualification beats sampling", pending, StageSampling, CustomerUnknown, standard, "confirm the delivery location"},
		{"sampling", qualified, StageSampling, CustomerUnknown, coastal, "samples at your site in your area"},
		{"fallback", qualified, StageClosed, CustomerUnknown, standard, "how can I help you"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, Draft(tt.lead, tt.stage, tt.customer, tt.climate), tt.contains)
		})
	}

	assert.Contains(t, Draft(&models.Lead{}, StageLead, CustomerUnknown, standard), "Hi Sir/Ma'am")
}

func TestDraftReply(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		customer   CustomerType
		topic      string
		confidence float64
		contains   string
	}{
		{"fly ash", "Is this better than fly ash?", CustomerUnknown, "Fly Ash Comparison", 0.9, "breathable"},
		{"aac", "AAC blocks are cheaper", CustomerUnknown, "AAC Block Comparison", 0.9, "crack easily"},
		{"local", "local bricks are fine", CustomerUnknown, "Local Handmade Comparison", 0.9, "machine-extruded"},
		{"strength", "what is the strength", CustomerUnknown, "Strength Specs", 0.95, "standard local bricks are 3-5 MPa"},
		{"water", "does it leak in rain", CustomerUnknown, "Water Absorption", 0.95, "< 6%"},
		{"price architect", "price please", CustomerArchitect, "Premium Value (Architect)", 0.85, "1050°C"},
		{"price homeowner", "price please", CustomerHomeowner, "Price Calculation", 0.9, "40% lower"},
		{"efflorescence", "how to avoid shora", CustomerUnknown, "Efflorescence", 0.85, "shora"},
		{"architect intro", "hello", CustomerArchitect, "Architect Intro", 0.8, "Wirecut"},
		{"homeowner intro", "hello", CustomerUnknown, "Homeowner Intro", 0.7, "dream home"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DraftReply(nil, tt.content, tt.customer)
			assert.Equal(t, tt.topic, got.Topic)
			assert.Equal(t, tt.confidence, got.Confidence)
			assert.Contains(t, got.Reply, tt.contains)
			assert.GreaterOrEqual(t, got.Confidence, 0.0)
			assert.LessOrEqual(t, got.Confidence, 1.0)
		})
	}
}

func TestDraftReply_DetectsCustomerWhenUnset(t *testing.T) {
	lead := &models.Lead{ProjectType: models.ProjectVilla}
	assert.Equal(t, "Homeowner Intro", DraftReply(lead, "hello", "").Topic)
	assert.Equal(t, "Architect Intro", DraftReply(nil, "I am the architect", "").Topic)
}

// ==========================
// Params
// ==========================

func TestParamsFromConfig(t *testing.T) {
	p := ParamsFromConfig(config.IntelligenceConfig{
		PerAreaRate:    70,
		CoastalMarkets: []string{"pondicherry"},
	})

	assert.Equal(t, 70.0, p.PerAreaRate)
	assert.Equal(t, 200000.0, p.HighValueThreshold)
	assert.Equal(t, 1000000.0, p.OrderValues.Builder)
	assert.Equal(t, []string{"pondicherry"}, p.CoastalMarkets)

	e := NewEvaluator(p, WithClock(func() time.Time { return testNow }))
	lead := qualifiedLead()
	lead.SiteLocation = "Pondicherry"
	assert.True(t, e.Evaluate(lead, clientMsg("ok")).ClimateStrategy.Coastal())
}

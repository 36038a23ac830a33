package agent

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"sales-crm-workers/internal/models"
)

type Action string

const (
	ActionReply     Action = "REPLY"
	ActionAlertBoss Action = "ALERT_BOSS"
	ActionWait      Action = "WAIT"
)

// State is a node of the agent's decision cycle:
// Idle -> Thinking -> Reply | AlertBoss | Wait.
type State string

const (
	StateIdle      State = "Idle"
	StateThinking  State = "Thinking"
	StateReply     State = "Reply"
	StateAlertBoss State = "AlertBoss"
	StateWait      State = "Wait"
)

// State is the terminal state an action leads to.
func (a Action) State() State {
	switch a {
	case ActionReply:
		return StateReply
	case ActionAlertBoss:
		return StateAlertBoss
	case ActionWait:
		return StateWait
	}
	return StateIdle
}

type EscalationReason string

const (
	EscalationAnger          EscalationReason = "anger"
	EscalationHighValue      EscalationReason = "high_value"
	EscalationCategory       EscalationReason = "escalation_category"
	EscalationSampleAccepted EscalationReason = "sample_charge_accepted"
	EscalationExternal       EscalationReason = "external_judgment"
)

// Decision is what the agent wants done with an inbound message.
// TypingDelayMs is advisory; the agent never sleeps.
type Decision struct {
	Action         Action           `json:"action"`
	Response       string           `json:"response,omitempty"`
	ThoughtProcess string           `json:"thoughtProcess"`
	TypingDelayMs  int64            `json:"typingDelayMs"`
	Language       Language         `json:"detectedLanguage"`
	Intent         Intent           `json:"intent,omitempty"`
	Emotion        Emotion          `json:"emotion,omitempty"`
	Escalation     EscalationReason `json:"escalationReason,omitempty"`
	Quote          *Quote           `json:"quote,omitempty"`
}

func (d Decision) TypingDelay() time.Duration {
	return time.Duration(d.TypingDelayMs) * time.Millisecond
}

// Agent decides between replying, escalating and staying silent. It is
// safe for concurrent use.
type Agent struct {
	params  Params
	catalog Catalog
	jitter  func(limit time.Duration) time.Duration
}

type Option func(*Agent)

// WithJitter replaces the random typing jitter source.
func WithJitter(fn func(limit time.Duration) time.Duration) Option {
	return func(a *Agent) { a.jitter = fn }
}

// New builds an agent. catalog may be nil, in which case price inquiries
// never produce a quote.
func New(params Params, catalog Catalog, opts ...Option) *Agent {
	a := &Agent{
		params:  params,
		catalog: catalog,
		jitter:  randomJitter,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(limit)))
}

func (a *Agent) Params() Params { return a.params }

// Decide handles one inbound message for lead.
func (a *Agent) Decide(ctx context.Context, lead *models.Lead, content string) Decision {
	if lead == nil {
		lead = &models.Lead{}
	}
	lang := DetectLanguage(content)

	if strings.TrimSpace(content) == "" {
		return Decision{Action: ActionWait, ThoughtProcess: "Empty message. Nothing to answer.", Language: lang}
	}

	lower := strings.ToLower(content)
	intent := detectIntent(lower, lead, &a.params)
	emotion := detectEmotion(lower, intent)

	if reason, thought := a.escalation(lead, lower, intent, emotion); reason != "" {
		return Decision{
			Action:         ActionAlertBoss,
			ThoughtProcess: thought,
			Language:       lang,
			Intent:         intent,
			Emotion:        emotion,
			Escalation:     reason,
		}
	}

	if lead.Status.Terminal() {
		return Decision{
			Action:         ActionWait,
			ThoughtProcess: fmt.Sprintf("Lead is %s. Staying silent.", lead.Status),
			Language:       lang,
			Intent:         intent,
			Emotion:        emotion,
		}
	}

	name := models.FirstName(lead.Name)
	d := Decision{Action: ActionReply, Language: lang, Intent: intent, Emotion: emotion}

	switch intent {
	case IntentPrice:
		a.price(ctx, &d, lead, content, name)
	case IntentBuyNow, IntentSample:
		d.Response = a.sampleReply(lang, name, intent == IntentSample)
		d.ThoughtProcess = fmt.Sprintf("Client is %s. Detected %s. Aiming to get Site Location for samples.", emotion, lang)
	case IntentInstallation:
		d.Response = installationReply(lang, name)
		d.ThoughtProcess = "Installation query. Checking with the team before committing."
	case IntentLocation:
		d.Response = locationReply(lang, name, a.params.StoreAddress)
		d.ThoughtProcess = "Location query. Sharing the Experience Centre."
	default:
		d.Response = casualReply(lang)
		d.ThoughtProcess = "General inquiry. Keeping it open."
		d.TypingDelayMs = a.params.Typing.Casual.Milliseconds()
		return d
	}

	d.TypingDelayMs = a.TypingDelay(d.Response).Milliseconds()
	return d
}

// escalation applies the boss-alert rule. It outranks every other branch.
func (a *Agent) escalation(lead *models.Lead, text string, intent Intent, emotion Emotion) (EscalationReason, string) {
	switch {
	case emotion == EmotionAngry:
		return EscalationAnger, fmt.Sprintf("Client is %s and high priority. Risk of losing deal. Alerting Boss.", emotion)
	case lead.DealValue > a.params.EscalationDealValue:
		return EscalationHighValue, fmt.Sprintf("Client is %s and high priority. Deal value ₹%.0f. Alerting Boss.", emotion, lead.DealValue)
	case intent == IntentEscalationCategory:
		return EscalationCategory, fmt.Sprintf("Client asked about %s. Only the Boss handles this category. Alerting Boss.",
			escalationCategory(text, a.params.EscalationCategories))
	case intent == IntentSampleChargeAgreed:
		return EscalationSampleAccepted, fmt.Sprintf("Client agreed to the ₹%.0f sample charge. Alerting Boss.", a.params.SampleCharge)
	}
	return "", ""
}

func (a *Agent) price(ctx context.Context, d *Decision, lead *models.Lead, content, name string) {
	area, ok := ParseArea(content)
	if !ok && lead.EstimatedArea > 0 {
		area, ok = lead.EstimatedArea, true
	}
	if !ok {
		d.Response = askAreaReply(d.Language, name)
		d.ThoughtProcess = "Price asked without quantity. Asking for area first."
		return
	}

	product, err := a.resolve(ctx, strings.TrimSpace(content+" "+lead.ProductInterest))
	if err != nil {
		d.Response = askProductReply(d.Language, name, area)
		d.ThoughtProcess = fmt.Sprintf("Area is %.0f sqft but the product is unclear (%v). Asking which product.", area, err)
		return
	}

	coverage := product.Coverage
	if coverage <= 0 {
		coverage = a.params.DefaultCoverage
	}
	cost := product.Cost
	if cost <= 0 {
		cost = product.SellingRate
	}

	q := a.params.Margins.Price(area, cost, coverage)
	q.ProductID = product.ID
	q.Product = product.Name
	d.Quote = &q
	d.Response = quoteReply(d.Language, name, q)
	d.ThoughtProcess = fmt.Sprintf("Quoting %s for %.0f sqft at the %s margin (%.0f%%). Asking PINCODE for transport.",
		product.Name, area, q.Tier, q.Margin*100)
}

func (a *Agent) resolve(ctx context.Context, query string) (*models.Product, error) {
	if a.catalog == nil {
		return nil, ErrNoProduct
	}
	p, err := a.catalog.Resolve(ctx, query)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNoProduct
	}
	return p, nil
}

// TypingDelay simulates a human typing reply: per-character time plus
// thinking time plus jitter, capped at the configured maximum.
func (a *Agent) TypingDelay(reply string) time.Duration {
	t := a.params.Typing
	d := time.Duration(utf8.RuneCountInString(reply))*t.PerChar + t.Thinking + a.jitter(t.MaxJitter)
	if d > t.Max {
		return t.Max
	}
	return d
}

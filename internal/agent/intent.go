package agent

import (
	"fmt"
	"strings"

	"sales-crm-workers/internal/intelligence"
	"sales-crm-workers/internal/models"
)

type Intent string

const (
	IntentEscalationCategory Intent = "ESCALATION_CATEGORY"
	IntentSampleChargeAgreed Intent = "SAMPLE_CHARGE_AGREED"
	IntentComplaint          Intent = "COMPLAINT"
	IntentBuyNow             Intent = "BUY_NOW"
	IntentInstallation       Intent = "INSTALLATION"
	IntentLocation           Intent = "LOCATION"
	IntentPrice              Intent = "PRICE_INQUIRY"
	IntentSample             Intent = "SAMPLE_INQUIRY"
	IntentCasual             Intent = "CASUAL"
)

type Emotion string

const (
	EmotionAngry   Emotion = "Angry"
	EmotionAnxious Emotion = "Anxious"
	EmotionCurious Emotion = "Curious"
	EmotionNeutral Emotion = "Neutral"
)

type intentInput struct {
	text   string
	lead   *models.Lead
	params *Params
}

var (
	angerWords    = anyWord("waste", "wasted", "late", "bad", "expensive", "worst", "pathetic", "cheated", "complaint")
	urgencyWords  = anyWord("urgent", "urgently", "immediately", "now", "asap")
	installWords  = anyWord("install", "installation", "installing", "fitting", "fixing", "mason")
	locationWords = anyWord("address", "showroom", "experience centre", "experience center", "located", "your store", "your office")
	priceWords    = anyWord("price", "prices", "rate", "rates", "cost", "quote", "quotation", "bhav")
	sampleWords   = anyWord("sample", "samples", "visit")
	sampleBox     = anyWord("sample", "samples", "sample box")
	agreeWords    = anyWord("ok", "okay", "agree", "agreed", "fine", "sure", "done", "confirm", "confirmed", "pay", "paid", "will pay", "theek", "chalega", "haan")
	chargeWords   = anyWord("charge", "charges", "courier", "pay", "paid")
)

// intentTable is evaluated top-down; the first match wins.
var intentTable = intelligence.Table[intentInput, Intent]{
	{Name: "escalation_category", Result: IntentEscalationCategory, Match: func(in intentInput) bool {
		return escalationCategory(in.text, in.params.EscalationCategories) != ""
	}},
	{Name: "sample_charge_agreed", Result: IntentSampleChargeAgreed, Match: func(in intentInput) bool {
		return sampleChargeAgreed(in.text, in.lead, in.params.SampleCharge)
	}},
	{Name: "complaint", Result: IntentComplaint, Match: func(in intentInput) bool { return angerWords(in.text) }},
	{Name: "buy_now", Result: IntentBuyNow, Match: func(in intentInput) bool { return urgencyWords(in.text) }},
	{Name: "installation", Result: IntentInstallation, Match: func(in intentInput) bool { return installWords(in.text) }},
	{Name: "location", Result: IntentLocation, Match: func(in intentInput) bool { return locationWords(in.text) }},
	{Name: "price", Result: IntentPrice, Match: func(in intentInput) bool { return priceWords(in.text) }},
	{Name: "sample", Result: IntentSample, Match: func(in intentInput) bool { return sampleWords(in.text) }},
}

func detectIntent(text string, lead *models.Lead, p *Params) Intent {
	return intentTable.Classify(intentInput{text: text, lead: lead, params: p}, IntentCasual)
}

// detectEmotion runs independently of the intent precedence so that anger
// is never masked by a higher-ranked intent.
func detectEmotion(text string, intent Intent) Emotion {
	switch {
	case angerWords(text):
		return EmotionAngry
	case intent == IntentBuyNow:
		return EmotionAnxious
	case intent == IntentPrice || intent == IntentSample:
		return EmotionCurious
	default:
		return EmotionNeutral
	}
}

func escalationCategory(text string, categories []string) string {
	lower := strings.ToLower(text)
	for _, c := range categories {
		if c = strings.TrimSpace(strings.ToLower(c)); c != "" && strings.Contains(lower, c) {
			return c
		}
	}
	return ""
}

// sampleChargeAgreed reports that the buyer accepted the paid sample box.
// The message must talk about samples and agree, and either mention the
// charge itself or follow our disclosure of it.
func sampleChargeAgreed(text string, lead *models.Lead, charge float64) bool {
	if !sampleBox(text) || !agreeWords(text) {
		return false
	}
	amount := fmt.Sprintf("%.0f", charge)
	if chargeWords(text) || strings.Contains(text, amount) {
		return true
	}
	return chargeDisclosed(lead)
}

func chargeDisclosed(lead *models.Lead) bool {
	if lead == nil {
		return false
	}
	for i := len(lead.Messages) - 1; i >= 0; i-- {
		m := lead.Messages[i]
		if m.Sender == models.SenderClient {
			continue
		}
		lower := strings.ToLower(m.Content)
		if strings.Contains(lower, "sample") && strings.Contains(lower, "courier charge") {
			return true
		}
	}
	return false
}

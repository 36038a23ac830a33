package intelligence

import (
	"strings"

	"sales-crm-workers/internal/models"
)

const (
	baseIntentScore = 30
	largeAreaSqft   = 2000
)

// signal is one additive term of the buyer-intent score.
type signal struct {
	name  string
	delta int
	match func(lead *models.Lead, text string) bool
}

var intentSignals = []signal{
	{"qualified", 30, func(l *models.Lead, _ string) bool {
		return l.QualificationStatus == models.QualificationQualified
	}},
	{"premium_project", 15, func(l *models.Lead, _ string) bool {
		return l.ProjectType == models.ProjectVilla || l.ProjectType == models.ProjectCommercial
	}},
	{"large_area", 10, func(l *models.Lead, _ string) bool {
		return l.EstimatedArea > largeAreaSqft
	}},
	{"fast_responder", 10, func(l *models.Lead, _ string) bool {
		return l.Responsiveness() == models.ResponsivenessFast
	}},
	{"high_seriousness", 10, func(l *models.Lead, _ string) bool {
		return l.Seriousness() == models.SeriousnessHigh
	}},
	{"urgency", 15, func(_ *models.Lead, t string) bool {
		return containsAny(t, "urgent", "immediately", "start work")
	}},
	{"payment_intent", 15, func(_ *models.Lead, t string) bool {
		return containsAny(t, "budget", "account", "transfer")
	}},
	{"visit_or_sample", 10, func(_ *models.Lead, t string) bool {
		return containsAny(t, "sample", "visit", "site")
	}},
	{"bare_rate_inquiry", -15, func(_ *models.Lead, t string) bool {
		return strings.Contains(t, "rate") && len(strings.Fields(t)) < 5
	}},
	{"negotiator", -5, func(_ *models.Lead, t string) bool {
		return containsAny(t, "expensive", "discount")
	}},
}

// BuyerIntentScore rates how serious the buyer is on a 0-100 scale.
func BuyerIntentScore(lead *models.Lead, text string) int {
	lower := strings.ToLower(text)
	score := baseIntentScore
	for _, s := range intentSignals {
		if s.match(lead, lower) {
			score += s.delta
		}
	}
	return clamp(score, 0, 100)
}

// HeatBand maps a score to its color band.
func HeatBand(score int) HeatColor {
	switch {
	case score > 75:
		return HeatRed
	case score > 40:
		return HeatYellow
	default:
		return HeatBlue
	}
}

func ScoreLabel(score int) LeadScore {
	switch HeatBand(score) {
	case HeatRed:
		return ScoreHot
	case HeatYellow:
		return ScoreWarm
	default:
		return ScoreCold
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var intentTable = concat(
	keywordRules(IntentBuying, "urgent", "immediately", "book", "order", "advance", "payment"),
	keywordRules(IntentComparison, "compare", "other", "vendor", "brand", "difference"),
	keywordRules(IntentDesign, "design", "elevation", "facade", "pattern"),
	keywordRules(IntentPriceCheck, "rate", "price", "cost", "quotation"),
)

// DetectIntent labels what the buyer is trying to do in this message.
func DetectIntent(text string) Intent {
	return intentTable.Classify(strings.ToLower(text), IntentPlanning)
}

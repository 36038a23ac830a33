package intelligence

import (
	"regexp"
	"strings"

	"sales-crm-workers/internal/models"
)

var (
	coastalStrategy = ClimateStrategy{
		Label:        "Coastal/High Rain",
		Advice:       "Pitch low water absorption (<6%).",
		ProductFocus: "Wirecut Series",
	}
	standardStrategy = ClimateStrategy{
		Label:        "Standard",
		Advice:       "Focus on durability",
		ProductFocus: "All Products",
	}
)

// coastalMatcher finds any configured market as a whole word.
type coastalMatcher struct {
	re *regexp.Regexp
}

func newCoastalMatcher(markets []string) coastalMatcher {
	quoted := make([]string, 0, len(markets))
	for _, m := range markets {
		if m = strings.TrimSpace(m); m != "" {
			quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(m)))
		}
	}
	if len(quoted) == 0 {
		return coastalMatcher{}
	}
	return coastalMatcher{re: regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)}
}

func (c coastalMatcher) matches(s string) bool {
	return c.re != nil && c.re.MatchString(s)
}

// strategy checks the site location, the conversation and the current text.
func (c coastalMatcher) strategy(lead *models.Lead, text string) ClimateStrategy {
	if c.matches(lead.SiteLocation) || c.matches(text) {
		return coastalStrategy
	}
	for _, m := range lead.Messages {
		if c.matches(m.Content) {
			return coastalStrategy
		}
	}
	return standardStrategy
}

// Coastal reports whether s is the coastal/high-rain strategy.
func (s ClimateStrategy) Coastal() bool {
	return s.Label == coastalStrategy.Label
}

package agent

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

type MarginTier string

const (
	TierSmall    MarginTier = "small"
	TierStandard MarginTier = "standard"
	TierBulk     MarginTier = "bulk"
)

// Quote is a priced offer for a product and area.
type Quote struct {
	ProductID   string     `json:"productId,omitempty"`
	Product     string     `json:"product"`
	Area        float64    `json:"area"`
	Tier        MarginTier `json:"tier"`
	Margin      float64    `json:"margin"`
	UnitCost    float64    `json:"unitCost"`
	UnitPrice   float64    `json:"unitPrice"`
	Coverage    float64    `json:"coverage"`
	RatePerSqft float64    `json:"ratePerSqft"`
}

// Tier picks the margin for an order area. Orders below SmallOrderBelow
// carry the small margin, above BulkOrderAbove the bulk margin.
func (m Margins) Tier(area float64) (MarginTier, float64) {
	switch {
	case area < m.SmallOrderBelow:
		return TierSmall, m.Small
	case area > m.BulkOrderAbove:
		return TierBulk, m.Bulk
	default:
		return TierStandard, m.Standard
	}
}

// Price marks up unitCost by the tier margin and converts it to a per-sqft
// rate with the coverage factor (pieces per sqft).
func (m Margins) Price(area, unitCost, coverage float64) Quote {
	tier, margin := m.Tier(area)
	unit := round2(unitCost * (1 + margin))
	return Quote{
		Area:        area,
		Tier:        tier,
		Margin:      margin,
		UnitCost:    unitCost,
		UnitPrice:   unit,
		Coverage:    coverage,
		RatePerSqft: round2(unit * coverage),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var areaPattern = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s*(?:sq\.?\s*ft|sqft|sft|square\s*feet|square\s*foot|sq\.?\s*feet)`)

// ParseArea extracts an area in sqft from free text.
func ParseArea(text string) (float64, bool) {
	m := areaPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

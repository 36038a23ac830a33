package intelligence

import (
	"fmt"
	"strings"
)

// EstimateOrderValue sizes the deal from the area when known, otherwise from
// the customer type and project-scale words in the message.
func EstimateOrderValue(text string, ct CustomerType, area float64, p Params) OrderValue {
	val := p.OrderValues.Fallback

	if area > 0 {
		val = area * p.PerAreaRate
	} else {
		switch ct {
		case CustomerBuilder:
			val = p.OrderValues.Builder
		case CustomerArchitect:
			val = p.OrderValues.Architect
		case CustomerHomeowner:
			val = p.OrderValues.Homeowner
		}

		lower := strings.ToLower(text)
		if strings.Contains(lower, "villa") {
			val = p.OrderValues.Villa
		}
		if strings.Contains(lower, "tower") {
			val = p.OrderValues.Tower
		}
	}

	return OrderValue{
		Display:   FormatLakh(val),
		Value:     val,
		HighValue: val > p.HighValueThreshold,
	}
}

// FormatLakh renders rupees in lakh units, e.g. 250000 -> "₹2.5L+".
func FormatLakh(v float64) string {
	return fmt.Sprintf("₹%.1fL+", v/100000)
}

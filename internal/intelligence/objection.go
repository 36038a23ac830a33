package intelligence

import "strings"

var objectionTable = concat(
	keywordRules(ObjectionPrice, "expensive", "costly", "budget", "more than", "discount"),
	keywordRules(ObjectionVendor, "other", "vendor", "brand", "market"),
	keywordRules(ObjectionDelay, "later", "wait", "ask", "confirm", "next month"),
)

// DetectObjection classifies the buyer's objection. Price outranks Vendor,
// which outranks Delay.
func DetectObjection(text string) Objection {
	o, _ := detectObjection(text)
	return o
}

// detectObjection also returns the keyword that triggered the match.
func detectObjection(text string) (Objection, string) {
	r, ok := objectionTable.Match(strings.ToLower(text))
	if !ok {
		return ObjectionNone, ""
	}
	return r.Result, r.Name
}

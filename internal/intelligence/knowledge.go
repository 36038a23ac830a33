package intelligence

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"sales-crm-workers/internal/models"
)

// SmartReply is a knowledge-base answer to a message.
type SmartReply struct {
	Reply      string  `json:"reply"`
	Topic      string  `json:"topic"`
	Confidence float64 `json:"confidence"`
}

type techSpec struct {
	value      string
	comparison string
	benefit    string
}

var (
	compressiveStrength = techSpec{
		value:      "35 MPa",
		comparison: "Standard local bricks are 3-5 MPa. Fly ash bricks are 7-10 MPa.",
		benefit:    "Equivalent to M35 grade concrete. Suitable for load-bearing walls up to 3 floors without pillars.",
	}
	waterAbsorption = techSpec{
		value:      "< 6%",
		comparison: "Handmade local bricks absorb 15-20% water.",
		benefit:    "Prevents efflorescence (white patches), dampness, and moss growth. Zero fungal attacks for 50+ years.",
	}
	firingDetails = "Fired at 1050°C - 1100°C for 48 hours in a zig-zag kiln."

	vsFlyAsh = []string{
		"Fly ash is cement-based and absorbs heat. Clay is natural and breathable.",
		"Fly ash looks dull gray and needs painting. Urban Clay acts as a visible facade element (Exposed Brick).",
		"Fly ash strength degrades over 20 years. Fired clay lasts centuries (like Roman ruins).",
	}
	vsLocalHandmade = []string{
		"Local bricks are uneven (size varies by 10mm). Urban Clay is machine-extruded with <1mm tolerance.",
		"Local bricks are soft and breakable. Ours 'ring' like a bell when struck (metallic sound test).",
		"Local bricks need plastering. Ours are designed to be exposed.",
	}
	vsAAC = []string{
		"AAC blocks crack easily at joints. Clay bricks have better bonding with mortar.",
		"AAC holds moisture and causes paint peeling. Vitrified clay is moisture-resistant.",
	}
)

const (
	introArchitect = "We specialize in High-Density Wirecut Bricks (35MPa) for exposed elevations. Unlike local handmade options, ours are machine-extruded for perfect geometry and fired at 1100°C."
	introHomeowner = "Building your dream home? Our exposed bricks keep your house cooler, sound-proof, and maintenance-free for generations. It's a one-time investment for a legacy look."
	priceScript    = "I understand the price difference. However, a local brick at ₹8 requires ₹25/sq.ft of plaster and paint every 5 years. Our brick at ₹20 is a finished wall. The lifetime cost of Urban Clay is actually 40% lower."
)

type kbInput struct {
	text     string
	customer CustomerType
}

type answer func(in kbInput) SmartReply

func fixed(reply, topic string, confidence float64) answer {
	return func(kbInput) SmartReply {
		return SmartReply{Reply: reply, Topic: topic, Confidence: confidence}
	}
}

func words(ws ...string) func(kbInput) bool {
	return func(in kbInput) bool { return containsAny(in.text, ws...) }
}

// knowledgeBase is checked top-down. The homeowner intro is the fallback.
var knowledgeBase = Table[kbInput, answer]{
	{Name: "competitor", Match: words("local", "flyash", "fly ash", "aac", "cement"), Result: competitorAnswer},
	{Name: "strength", Match: words("strength", "load", "floors"), Result: func(kbInput) SmartReply {
		return SmartReply{
			Reply: fmt.Sprintf("Our bricks are machine-pressed to %s compressive strength. To give you context, %s This means you can easily build up to 3 floors load-bearing without RCC pillars.",
				compressiveStrength.value, lowerFirst(compressiveStrength.comparison)),
			Topic:      "Strength Specs",
			Confidence: 0.95,
		}
	}},
	{Name: "water", Match: words("water", "damp", "leak", "rain"), Result: func(kbInput) SmartReply {
		return SmartReply{
			Reply: fmt.Sprintf("Water absorption is critical for exposed work. Ours is %s, whereas %s This low porosity ensures %s",
				waterAbsorption.value, lowerFirst(waterAbsorption.comparison), lowerFirst(waterAbsorption.benefit)),
			Topic:      "Water Absorption",
			Confidence: 0.95,
		}
	}},
	{Name: "price", Match: words("price", "cost", "expensive", "rate"), Result: func(in kbInput) SmartReply {
		if in.customer == CustomerArchitect {
			return SmartReply{
				Reply:      fmt.Sprintf("For the premium finish you are designing, the cost per sq.ft impact is minimal compared to the aesthetic value. %s This ensures the color never fades.", firingDetails),
				Topic:      "Premium Value (Architect)",
				Confidence: 0.85,
			}
		}
		return SmartReply{Reply: priceScript, Topic: "Price Calculation", Confidence: 0.9}
	}},
	{Name: "efflorescence", Match: words("efflorescence", "shora", "white patch"), Result: fixed(
		"Our low water absorption (<6%) virtually eliminates efflorescence (shora). Local bricks are sponges for salts.",
		"Efflorescence", 0.85)},
	{Name: "maintenance", Match: words("maintenance", "maintain", "painting"), Result: fixed(
		"Zero maintenance. No painting, no plastering. Just pressure wash every 5 years if needed.",
		"Maintenance", 0.85)},
	{Name: "delivery", Match: words("delivery", "dispatch", "breakage"), Result: fixed(
		"We dispatch directly from the kiln to site to minimize breakage. Transit breakage >3% is refunded.",
		"Delivery", 0.85)},
	{Name: "joints", Match: words("joint", "mortar"), Result: fixed(
		"We recommend a 8mm-10mm recessed joint using high-grade mortar mixed with waterproofing compound.",
		"Joints & Mortar", 0.85)},
	{Name: "sound", Match: words("sound", "noise"), Result: fixed(
		"Natural clay density gives about 45 dB reduction and blocks street noise significantly better than hollow blocks.",
		"Sound Insulation", 0.85)},
	{Name: "thermal", Match: words("thermal", "heat", "cooler"), Result: fixed(
		"Keeps interiors 5°C cooler in summer due to thermal lag of natural terracotta.",
		"Thermal Comfort", 0.85)},
	{Name: "intro_architect", Match: func(in kbInput) bool { return in.customer == CustomerArchitect }, Result: fixed(
		introArchitect, "Architect Intro", 0.8)},
}

func competitorAnswer(in kbInput) SmartReply {
	comparison, topic := vsLocalHandmade, "Local Handmade Comparison"
	switch {
	case containsAny(in.text, "flyash", "fly ash"):
		comparison, topic = vsFlyAsh, "Fly Ash Comparison"
	case strings.Contains(in.text, "aac"):
		comparison, topic = vsAAC, "AAC Block Comparison"
	}
	return SmartReply{
		Reply:      fmt.Sprintf("That's a valid comparison. However, consider the long-term value: %s With Urban Clay, you are buying a legacy product, not just a wall filler.", strings.Join(comparison, " ")),
		Topic:      topic,
		Confidence: 0.9,
	}
}

// DraftReply answers ad-hoc message content from the product knowledge
// base. It does not look at the pipeline stage. When customer is empty it
// is detected from the lead and the message.
func DraftReply(lead *models.Lead, content string, customer CustomerType) SmartReply {
	if customer == "" {
		customer = DetectCustomerType(lead, content)
	}
	in := kbInput{text: strings.ToLower(content), customer: customer}
	respond := knowledgeBase.Classify(in, fixed(introHomeowner, "Homeowner Intro", 0.7))
	return respond(in)
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

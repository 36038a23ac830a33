package judge

import (
	"fmt"
	"strings"

	"sales-crm-workers/internal/models"
)

const (
	guidanceHistory = 5
	decisionHistory = 3
)

const companyContext = `You are %s, the Sales Manager for Urban Clay, a premium terracotta and clay brick manufacturer in India with over 30 years of expertise.

Company:
- Experience Centre in Kharghar, Navi Mumbai. Factory in Madhya Pradesh.
- Products: exposed wirecut bricks, perforated bricks, terracotta wall cladding tiles, jalis, floor tiles, Mangalore roof tiles.

Technical specifications:
- Fired at 1200°C. Up to 60MPa compressive strength.
- Zero maintenance for 50+ years. Natural colours never fade.
- Water absorption below 10-12%%. 100%% natural clay.

Commercial policy:
- Margin is 39%% below 600 sqft, 29%% for 600-5000 sqft, 19%% above 5000 sqft.
- All rates are ex-factory. Always ask for the site PINCODE to calculate transport.
- Cladding tiles cost ₹10 to ₹45 per piece, about 5.33 pieces per sqft.
- A sample box carries a mandatory ₹500 courier charge. If the client agrees to it, notify the boss.

Persona:
- Professional, consultative, uses the customer's name.
- Replies in English, Hindi or Marathi as the client prefers.
- Defends value with the 30-year legacy and 60MPa strength. Never offers discounts.
`

func companyBrief(agentName string) string {
	if agentName == "" {
		agentName = "SalesHero"
	}
	return fmt.Sprintf(companyContext, agentName)
}

func orUnknown(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func area(l *models.Lead, fallback string) string {
	if l.EstimatedArea <= 0 {
		return fallback
	}
	return fmt.Sprintf("%.0f", l.EstimatedArea)
}

func history(l *models.Lead, n int, rep string) string {
	msgs := l.Messages
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		who := rep
		if m.Sender == models.SenderClient {
			who = "Customer"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", who, m.Content))
	}
	return strings.Join(lines, "\n")
}

// GuidancePrompt asks for a Guidance-shaped JSON report.
func GuidancePrompt(agentName string, lead *models.Lead, last models.Message) string {
	qualification := string(lead.QualificationStatus)

	var b strings.Builder
	b.WriteString(companyBrief(agentName))
	fmt.Fprintf(&b, `
Lead information:
- Name: %s
- Phone: %s
- Source: %s
- Status: %s
- Project Type: %s
- Estimated Area: %s sqft
- Site Location: %s
- Qualification Status: %s

Recent conversation:
%s

Latest message from customer:
%q
`,
		lead.Name,
		lead.Phone,
		strings.Join(lead.Tags, ", "),
		lead.Status,
		orUnknown(string(lead.ProjectType), "Unknown"),
		area(lead, "Unknown"),
		orUnknown(lead.SiteLocation, "Unknown"),
		orUnknown(qualification, "pending"),
		history(lead, guidanceHistory, "Sales Rep"),
		last.Content,
	)
	b.WriteString(`
Analyze this lead and answer with JSON of this shape:
{
  "leadScore": "HOT 🔥" | "WARM 🟡" | "COLD ❄️" | "TIMEPASS 🤡" | "DEAD ⚫",
  "seriousBuyerScore": <0-100>,
  "customerType": "Architect" | "Builder" | "Contractor" | "Homeowner" | "Unknown",
  "intent": "Price Check" | "Buying" | "Planning" | "Design Exploration" | "Comparison",
  "summary": "<one line>",
  "nextStep": "<recommended next action>",
  "personaComment": "<internal sales tip>",
  "estimatedValue": "<e.g. ₹2.5L+>",
  "isHighValue": <boolean>,
  "objectionDetected": "Price" | "Vendor" | "Delay" | "None",
  "suggestions": [
    {"label": "", "actionType": "send_photos" | "send_estimate" | "ask_question" | "custom_reply", "payload": "", "description": "", "tone": "Professional" | "Friendly" | "Premium" | "Urgent"}
  ]
}

Scoring: HOT 80-100 ready to buy; WARM 40-79 interested; COLD 20-39 exploring; TIMEPASS 0-19 only asking rates.
Suggest 2-4 actions. Handle price objections with value, not discounts.
Return ONLY valid JSON.`)
	return b.String()
}

// DecisionPrompt asks for an AgentDecision-shaped JSON answer.
func DecisionPrompt(agentName string, lead *models.Lead, content string) string {
	var b strings.Builder
	b.WriteString(companyBrief(agentName))
	fmt.Fprintf(&b, `
Lead details:
- Name: %s
- Project: %s
- Area: %s sqft
- Location: %s

Conversation history:
%s

Customer's latest message:
%q
`,
		lead.Name,
		orUnknown(string(lead.ProjectType), "Unknown"),
		area(lead, "Not specified"),
		orUnknown(lead.SiteLocation, "Not specified"),
		history(lead, decisionHistory, "You"),
		content,
	)
	b.WriteString(`
Decide on one action: REPLY, ALERT_BOSS or WAIT.
- Flexible cladding questions, angry or complaining customers: ALERT_BOSS.
- Price without area: ask for the area first.
- Installation: offer to check with the team within 30-60 minutes.

Answer with JSON:
{
  "action": "REPLY" | "ALERT_BOSS" | "WAIT",
  "response": "<message to customer>",
  "thoughtProcess": "<internal reasoning>",
  "detectedLanguage": "English" | "Hindi" | "Marathi"
}

Return ONLY valid JSON.`)
	return b.String()
}

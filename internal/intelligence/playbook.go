package intelligence

// play is the primary content a branch contributes.
type play struct {
	summary     string
	nextStep    string
	persona     string
	suggestions []SuggestedAction
}

var assumptiveCloses = []SuggestedAction{
	{
		Label:       "🤝 Assumption Close (Dates)",
		ActionType:  ActionAskQuestion,
		Payload:     "We have a truck leaving for your area on Tuesday. If we finalize today, I can include your dispatch. Does that routing work for you?",
		Description: "Assume the sale",
		Tone:        ToneUrgent,
	},
	{
		Label:       "📝 Assumption Close (Invoice)",
		ActionType:  ActionAskQuestion,
		Payload:     "Should I generate the proforma invoice in the name of your company or personal name?",
		Description: "Direct step to money",
		Tone:        ToneProfessional,
	},
}

func playFor(b Branch) play {
	switch br := b.(type) {
	case Qualify:
		return play{
			summary:  "Unqualified Lead. Missing key details.",
			nextStep: "Capture Qualification Data.",
			suggestions: []SuggestedAction{
				{
					Label:       "⚠️ Qualify Lead",
					ActionType:  ActionLogQualification,
					Description: "Mandatory: Site, Type, Area",
					Tone:        ToneUrgent,
				},
				{
					Label:       "Ask: Project Details",
					ActionType:  ActionAskQuestion,
					Payload:     "To suggest the right Series, could you share the project location and approximate elevation area?",
					Description: "Soft qualify",
					Tone:        ToneProfessional,
				},
			},
		}

	case PriceObjection:
		return play{
			summary:  "Price Objection Detected.",
			nextStep: "Defend value. Hold the rate for now.",
			persona:  "Hold the line. They want it, they just want to feel they won the negotiation.",
			suggestions: []SuggestedAction{
				{
					Label:       "🛡️ Value Defense",
					ActionType:  ActionCustomReply,
					Payload:     "I understand the budget concern. However, with Urban Clay's 30+ years of expertise, you aren't just buying bricks. Our clay is fired at 1200°C to reach a massive 60MPa compressive strength, which is 3x stronger than standard market bricks. It ensures zero fading and zero maintenance for a lifetime.",
					Description: "Justify with Quality & Legacy",
					Tone:        TonePremium,
				},
				{
					Label:       "⏳ Scarcity Push",
					ActionType:  ActionCustomReply,
					Payload:     "The best I can do is freeze the old stock rate for you if we book today. We only have 2500 units left in this lot. Shall I block it?",
					Description: "Create Urgency",
					Tone:        ToneUrgent,
				},
				{
					Label:       "🔄 Product Swap",
					ActionType:  ActionCustomReply,
					Payload:     `If budget is tight, we can look at our "Classic" series range. It has the same strength but simpler texture, saving you ₹8 per sq ft. Should I send photos?`,
					Description: "Alternative Solution",
					Tone:        ToneProfessional,
				},
			},
		}

	case GhostRisk:
		return play{
			summary:  "Lead is drifting away (48h+ inactive).",
			nextStep: "Send soft check-in.",
			suggestions: []SuggestedAction{
				{
					Label:      "Soft Nudge",
					ActionType: ActionCustomReply,
					Payload:    "Hi, just checking if you had a chance to discuss the designs with your family/architect?",
					Tone:       ToneFriendly,
				},
			},
		}

	case Ghosted:
		return play{
			summary:  "Lead is unresponsive (5d+).",
			nextStep: "Trigger Loss Aversion.",
			persona:  "They are gone unless you shock them.",
			suggestions: []SuggestedAction{
				{
					Label:       "🛑 Stock Release Warning",
					ActionType:  ActionCustomReply,
					Payload:     "Hi, since I haven't heard back, I assume you are holding off. I am releasing the block on your requested batch for another client today. Let me know if you change your mind.",
					Description: `The "Takeaway" Close`,
					Tone:        ToneDirect,
				},
			},
		}

	case ClosingWindow:
		if br.QuoteSent || br.SampleDelivered {
			return play{
				summary:  "Closing window open. Buyer is replying after the quote or sample.",
				nextStep: "Assume the sale.",
				persona:  "Best moment to close. Ask for the dispatch date, not for permission.",
			}
		}
		return play{
			summary:  "Buyer is actively engaged.",
			nextStep: "Move toward a commitment.",
		}
	}

	return play{
		summary:  "Review lead details.",
		nextStep: "Engage.",
	}
}

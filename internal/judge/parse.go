package judge

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"sales-crm-workers/internal/common/validation"
	"sales-crm-workers/internal/intelligence"
)

const defaultEstimatedValue = 50000

var estimatedValuePattern = regexp.MustCompile(`(?i)₹?(\d+(?:\.\d+)?)([LCK])?`)

// externalGuidance is the subset of a guidance report taken from the
// external service.
type externalGuidance struct {
	LeadScore         intelligence.LeadScore         `json:"leadScore"`
	SeriousBuyerScore float64                        `json:"seriousBuyerScore"`
	CustomerType      intelligence.CustomerType      `json:"customerType"`
	Intent            intelligence.Intent            `json:"intent"`
	Summary           string                         `json:"summary"`
	NextStep          string                         `json:"nextStep"`
	PersonaComment    string                         `json:"personaComment"`
	EstimatedValue    string                         `json:"estimatedValue"`
	IsHighValue       bool                           `json:"isHighValue"`
	ObjectionDetected intelligence.Objection         `json:"objectionDetected"`
	Suggestions       []intelligence.SuggestedAction `json:"suggestions"`
}

type externalDecision struct {
	Action           string `json:"action"`
	Response         string `json:"response"`
	ThoughtProcess   string `json:"thoughtProcess"`
	DetectedLanguage string `json:"detectedLanguage"`
}

var guidanceSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"leadScore", "seriousBuyerScore"},
	"properties": map[string]interface{}{
		"leadScore": map[string]interface{}{
			"enum": []interface{}{
				string(intelligence.ScoreHot), string(intelligence.ScoreWarm), string(intelligence.ScoreCold),
				string(intelligence.ScoreTimepass), string(intelligence.ScoreDead),
			},
		},
		"seriousBuyerScore": map[string]interface{}{"type": "number", "minimum": 0, "maximum": 100},
		"customerType": map[string]interface{}{
			"enum": []interface{}{"Architect", "Builder", "Contractor", "Homeowner", "Unknown"},
		},
		"intent": map[string]interface{}{
			"enum": []interface{}{"Price Check", "Buying", "Planning", "Design Exploration", "Comparison"},
		},
		"objectionDetected": map[string]interface{}{
			"enum": []interface{}{"Price", "Vendor", "Delay", "None"},
		},
		"summary":        map[string]interface{}{"type": "string"},
		"nextStep":       map[string]interface{}{"type": "string"},
		"personaComment": map[string]interface{}{"type": "string"},
		"estimatedValue": map[string]interface{}{"type": "string"},
		"suggestions": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"label", "actionType"},
				"properties": map[string]interface{}{
					"label":      map[string]interface{}{"type": "string", "minLength": 1},
					"actionType": map[string]interface{}{"type": "string", "minLength": 1},
					"payload":    map[string]interface{}{"type": "string"},
				},
			},
		},
	},
}

var decisionSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"action"},
	"properties": map[string]interface{}{
		"action":           map[string]interface{}{"enum": []interface{}{"REPLY", "ALERT_BOSS", "WAIT"}},
		"response":         map[string]interface{}{"type": "string"},
		"thoughtProcess":   map[string]interface{}{"type": "string"},
		"detectedLanguage": map[string]interface{}{"enum": []interface{}{"English", "Hindi", "Marathi"}},
	},
}

// extractJSON returns the outermost {...} block of text, which may be
// wrapped in markdown fences or prose.
func extractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// decode extracts, schema-checks and unmarshals a model answer into out.
func decode(text string, schema map[string]interface{}, out interface{}) error {
	raw, ok := extractJSON(text)
	if !ok {
		return fmt.Errorf("no JSON object in response")
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("malformed JSON: %w", err)
	}

	result, err := validation.Validate(schema, doc)
	if err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("schema: %s", strings.Join(result.GetErrorMessages(), "; "))
	}

	return json.Unmarshal([]byte(raw), out)
}

// parseEstimatedValue reads strings like "₹2.5L+", "1.2C" or "800K".
func parseEstimatedValue(s string) float64 {
	m := estimatedValuePattern.FindStringSubmatch(s)
	if m == nil {
		return defaultEstimatedValue
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return defaultEstimatedValue
	}

	switch strings.ToUpper(m[2]) {
	case "L":
		return n * 100000
	case "C":
		return n * 10000000
	case "K":
		return n * 1000
	default:
		return n
	}
}

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var decisionSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"action"},
	"properties": map[string]interface{}{
		"action":     map[string]interface{}{"type": "string", "enum": []interface{}{"REPLY", "WAIT"}},
		"confidence": map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1},
	},
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		doc       map[string]interface{}
		wantValid bool
		field     string
	}{
		{name: "valid", doc: map[string]interface{}{"action": "REPLY", "confidence": 0.4}, wantValid: true},
		{name: "missing action", doc: map[string]interface{}{"confidence": 0.4}, field: "(root)"},
		{name: "bad enum", doc: map[string]interface{}{"action": "DISCOUNT"}, field: "action"},
		{name: "out of range", doc: map[string]interface{}{"action": "WAIT", "confidence": 3}, field: "confidence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Validate(decisionSchema, tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, res.Valid)
			if !tt.wantValid {
				assert.True(t, res.HasErrors(tt.field), res.GetErrorMessages())
			}
		})
	}
}

func TestPhoneHelpers(t *testing.T) {
	assert.Equal(t, "9876543210", PhoneKey("+91 98765-43210"))
	assert.Equal(t, "9876543210", PhoneKey("09876543210"))
	assert.Equal(t, "12345", PhoneKey("12345"))
	assert.Equal(t, "919876543210", DigitsOnly("+91 (98765) 43210"))

	assert.True(t, ValidatePhone("+91 98765 43210"))
	assert.False(t, ValidatePhone("98765"))

	assert.True(t, ValidateEmail("buyer@example.in"))
	assert.False(t, ValidateEmail("buyer@"))
}

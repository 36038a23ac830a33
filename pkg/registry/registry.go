// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"sales-crm-workers/internal/common/validation"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse activity registry: %w", err)
	}
	seen := make(map[string]bool, len(reg.Activities))
	for _, a := range reg.Activities {
		if a.TaskType == "" {
			return nil, fmt.Errorf("activity %q has no taskType", a.ID)
		}
		if seen[a.TaskType] {
			return nil, fmt.Errorf("duplicate taskType %q", a.TaskType)
		}
		seen[a.TaskType] = true
	}
	return &reg, nil
}

// Find returns the activity registered for taskType.
func (r *ActivityRegistry) Find(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

// CheckEnabled fails when any of taskTypes is not registered.
func (r *ActivityRegistry) CheckEnabled(taskTypes []string) error {
	var unknown []string
	for _, t := range taskTypes {
		if _, ok := r.Find(t); !ok {
			unknown = append(unknown, t)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("workers enabled but not registered: %s", strings.Join(unknown, ", "))
}

// ValidateInput checks job variables against the activity's input schema.
// Activities without a schema accept anything.
func (a Activity) ValidateInput(variables string) (*validation.ValidationResult, error) {
	if len(a.InputSchema) == 0 {
		return &validation.ValidationResult{Valid: true}, nil
	}
	var doc interface{}
	if err := json.Unmarshal([]byte(variables), &doc); err != nil {
		return nil, fmt.Errorf("job variables: %w", err)
	}
	return validation.Validate(a.InputSchema, doc)
}

// Lint reports problems a load does not catch: missing display fields and
// error codes the workers never raise.
func (r *ActivityRegistry) Lint(knownCodes map[string]bool) []string {
	var problems []string
	if len(r.Activities) == 0 {
		problems = append(problems, "registry contains no activities")
	}
	for _, a := range r.Activities {
		if a.ID == "" || a.DisplayName == "" || a.Category == "" {
			problems = append(problems, fmt.Sprintf("%s: id, displayName and category are required", a.TaskType))
		}
		for _, code := range a.ErrorCodes {
			if !knownCodes[code] {
				problems = append(problems, fmt.Sprintf("%s: unknown error code %s", a.TaskType, code))
			}
		}
	}
	return problems
}

// Save writes the registry back as indented JSON.
func (r *ActivityRegistry) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"sales-crm-workers/internal/common/config"
	apperrors "sales-crm-workers/internal/common/errors"
	"sales-crm-workers/pkg/registry"
)

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	checkCmd := flag.NewFlagSet("check-input", flag.ExitOnError)

	validatePath := validateCmd.String("path", "configs/activity-registry.json", "Path to registry file")
	configPath := validateCmd.String("config", "configs/config.yaml", "Worker config to cross-check")

	updatePath := updateCmd.String("path", "configs/activity-registry.json", "Path to registry file")
	taskType := updateCmd.String("taskType", "", "Task type to update")
	field := updateCmd.String("field", "", "Field to update (version, description, retries)")
	value := updateCmd.String("value", "", "New value for the field")

	checkPath := checkCmd.String("path", "configs/activity-registry.json", "Path to registry file")
	checkTask := checkCmd.String("taskType", "", "Task type whose input schema applies")
	vars := checkCmd.String("vars", "{}", "Job variables as JSON")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "validate":
		_ = validateCmd.Parse(os.Args[2:])
		err = validate(*validatePath, *configPath)
	case "update":
		_ = updateCmd.Parse(os.Args[2:])
		err = update(*updatePath, *taskType, *field, *value)
	case "check-input":
		_ = checkCmd.Parse(os.Args[2:])
		err = checkInput(*checkPath, *checkTask, *vars)
	default:
		help()
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func validate(path, configPath string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return err
	}

	known := make(map[string]bool)
	for _, code := range apperrors.BPMNErrorMapping {
		known[code] = true
	}
	known[string(apperrors.ErrCodeInternal)] = true

	problems := reg.Lint(known)
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return fmt.Errorf("load %s: %w", configPath, err)
		}
		var configured []string
		for name := range cfg.Workers {
			configured = append(configured, name)
		}
		if err := reg.CheckEnabled(configured); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%d problem(s):\n  %s", len(problems), strings.Join(problems, "\n  "))
	}

	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

func update(path, taskType, field, value string) error {
	if taskType == "" || field == "" || value == "" {
		return fmt.Errorf("taskType, field and value are required")
	}
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return err
	}

	idx := -1
	for i := range reg.Activities {
		if reg.Activities[i].TaskType == taskType {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("activity %s not found", taskType)
	}

	a := &reg.Activities[idx]
	switch field {
	case "version":
		a.Version = value
	case "description":
		a.Description = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil || retries < 0 {
			return fmt.Errorf("invalid retries value %q", value)
		}
		a.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	reg.LastUpdated = time.Now().Format("2006-01-02")
	if err := reg.Save(path); err != nil {
		return err
	}
	fmt.Printf("Updated %s: %s = %s\n", taskType, field, value)
	return nil
}

func checkInput(path, taskType, vars string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return err
	}
	a, ok := reg.Find(taskType)
	if !ok {
		return fmt.Errorf("activity %s not found", taskType)
	}
	result, err := a.ValidateInput(vars)
	if err != nil {
		return err
	}
	if !result.Valid {
		msgs := result.GetErrorMessages()
		sort.Strings(msgs)
		return fmt.Errorf("input rejected:\n  %s", strings.Join(msgs, "\n  "))
	}
	fmt.Println("Input accepted.")
	return nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  validate     Lint the registry and cross-check it against the worker config
  update       Update an activity's version, description or retries
  check-input  Validate job variables against an activity's input schema
  help         Show this help message

Examples:
  registry-updater validate -path configs/activity-registry.json -config configs/config.yaml
  registry-updater update -taskType alert-boss -field retries -value 3
  registry-updater check-input -taskType update-lead-status -vars '{"leadId":"l-1","status":"won"}'
` + "\n")
}

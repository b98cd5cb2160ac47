package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/weaver/internal/config"
	"github.com/roach88/weaver/internal/ir"
)

// Scenario is one transformation test.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Units are the source units by name. A nil unit is empty.
	Units map[string]*ir.Unit `yaml:"units"`

	// Platform lists unit-name prefixes that are never transformed.
	Platform []string `yaml:"platform,omitempty"`

	// Passes configures the built-in passes.
	Passes config.Passes `yaml:"passes,omitempty"`

	// Manifests lists CUE pass manifests. Relative paths are resolved
	// against the scenario file by LoadScenario.
	Manifests []string `yaml:"manifests,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after every step has run.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step loads one unit.
type Step struct {
	// Unit is the unit name.
	Unit string `yaml:"unit"`

	// StopBefore, if set, runs a partial walk ending right before that pass.
	StopBefore string `yaml:"stop_before,omitempty"`

	// Expect is checked against the step's result when present.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is the expected result of one step.
type Expect struct {
	// Outcome is the folded outcome name, e.g. "simple_rewrite".
	Outcome string `yaml:"outcome,omitempty"`

	// Selected is the exact list of selected passes, marker included.
	Selected []string `yaml:"selected,omitempty"`

	// Error is an error code, e.g. "RECOMPUTE_NOT_PERMITTED", that must
	// appear in the step's error. Empty means the step must succeed.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates state after all steps.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Unit is the unit name (audit, frames, report).
	Unit string `yaml:"unit,omitempty"`

	// Passes is the expected pass list (order, reachable).
	Passes []string `yaml:"passes,omitempty"`

	// Asked is the expected list of passes asked, in order (audit).
	Asked []string `yaml:"asked,omitempty"`

	// Applied is the expected list of passes applied, in order (audit).
	Applied []string `yaml:"applied,omitempty"`

	// Ancestors is the expected ancestor chain (frames).
	Ancestors []string `yaml:"ancestors,omitempty"`

	// Interfaces is the expected transitive interface set (frames).
	Interfaces []string `yaml:"interfaces,omitempty"`

	// Contains must appear in the audit report (report).
	Contains string `yaml:"contains,omitempty"`
}

// Assertion type constants.
const (
	AssertOrder     = "order"
	AssertReachable = "reachable"
	AssertAudit     = "audit"
	AssertFrames    = "frames"
	AssertReport    = "report"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i, m := range s.Manifests {
		if !filepath.IsAbs(m) {
			s.Manifests[i] = filepath.Join(base, m)
		}
	}
	for i, m := range s.Manifests {
		if _, err := os.Stat(m); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: manifests[%d]: file not found: %s", i, m)
		}
	}

	return s, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Units) == 0 {
		return fmt.Errorf("units map is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for name, u := range s.Units {
		if u != nil && u.Name != "" && u.Name != name {
			return fmt.Errorf("units[%s]: name %q does not match key", name, u.Name)
		}
	}

	for i, step := range s.Steps {
		if step.Unit == "" {
			return fmt.Errorf("steps[%d]: unit is required", i)
		}
		if step.StopBefore != "" {
			if _, err := ir.ParseName(step.StopBefore); err != nil {
				return fmt.Errorf("steps[%d].stop_before: %w", i, err)
			}
		}
		if e := step.Expect; e != nil {
			if e.Outcome != "" {
				if _, err := ir.ParseOutcome(e.Outcome); err != nil {
					return fmt.Errorf("steps[%d].expect.outcome: %w", i, err)
				}
			}
			if e.Error != "" && (e.Outcome != "" || len(e.Selected) > 0) {
				return fmt.Errorf("steps[%d].expect: error excludes outcome and selected", i)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertOrder, AssertReachable:
		if a.Passes == nil {
			return fmt.Errorf("assertions[%d]: passes is required for %s", index, a.Type)
		}
	case AssertAudit:
		if a.Unit == "" {
			return fmt.Errorf("assertions[%d]: unit is required for audit", index)
		}
		if a.Asked == nil && a.Applied == nil {
			return fmt.Errorf("assertions[%d]: asked or applied is required for audit", index)
		}
	case AssertFrames:
		if a.Unit == "" {
			return fmt.Errorf("assertions[%d]: unit is required for frames", index)
		}
	case AssertReport:
		if a.Unit == "" || a.Contains == "" {
			return fmt.Errorf("assertions[%d]: unit and contains are required for report", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

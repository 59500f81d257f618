package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a sequence of envelopes run against one fresh document.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description"`

	// Demo loads the built-in demo document.
	Demo bool `yaml:"demo,omitempty"`

	// Seed is a fixture file, relative to the scenario file. Mutually
	// exclusive with Demo.
	Seed string `yaml:"seed,omitempty"`

	// Steps run in order. A failing step does not stop the scenario.
	Steps []Step `yaml:"steps"`

	// Assertions run after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one envelope with an optional expectation.
type Step struct {
	Action string         `yaml:"action"`
	Args   map[string]any `yaml:"args,omitempty"`
	Expect *Expect        `yaml:"expect,omitempty"`
}

// Expect checks a step's response. Unset fields are not checked; Data is
// a subset match.
type Expect struct {
	OK              *bool          `yaml:"ok,omitempty"`
	Message         string         `yaml:"message,omitempty"`
	MessageContains string         `yaml:"message_contains,omitempty"`
	Data            map[string]any `yaml:"data,omitempty"`
}

// Assertion checks the trace or the final document.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Action names the action for trace_contains and trace_count.
	Action string `yaml:"action,omitempty"`

	// OK narrows trace_contains and trace_count to successes or failures.
	OK *bool `yaml:"ok,omitempty"`

	// Count is the exact number of matching events for trace_count.
	Count int `yaml:"count,omitempty"`

	// Actions is the expected order for trace_order.
	Actions []string `yaml:"actions,omitempty"`

	// Element is a fixture key or a numeric id, for param_equals and
	// element_count.
	Element string `yaml:"element,omitempty"`

	// Param is a parameter display name, for param_equals.
	Param string `yaml:"param,omitempty"`

	// Value is the expected value string, for param_equals.
	Value string `yaml:"value,omitempty"`

	// Class and View scope element_count.
	Class string `yaml:"class,omitempty"`
	View  string `yaml:"view,omitempty"`
}

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertParamEquals   = "param_equals"
	AssertElementCount  = "element_count"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos fail loudly. A relative seed path is resolved against
// the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if s.Seed != "" && !filepath.IsAbs(s.Seed) {
		s.Seed = filepath.Join(filepath.Dir(path), s.Seed)
	}
	return s, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if s.Demo && s.Seed != "" {
		return errors.New("demo and seed are mutually exclusive")
	}
	if len(s.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if step.Action == "" {
			return fmt.Errorf("steps[%d]: action is required", i)
		}
		if e := step.Expect; e != nil && e.Message != "" && e.MessageContains != "" {
			return fmt.Errorf("steps[%d]: message and message_contains are mutually exclusive", i)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertTraceContains, AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("%s requires action", a.Type)
		}
	case AssertTraceOrder:
		if len(a.Actions) < 2 {
			return errors.New("trace_order requires at least two actions")
		}
	case AssertParamEquals:
		if a.Element == "" || a.Param == "" {
			return errors.New("param_equals requires element and param")
		}
	case AssertElementCount:
		if a.Class == "" {
			return errors.New("element_count requires class")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/graphgate/internal/command"
	"github.com/roach88/graphgate/internal/wire"
)

// Scenario defines a conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Scene is an optional simulated-host scene file. Relative paths are
	// resolved against the scenario file's directory. Empty uses the
	// built-in scene.
	Scene string `yaml:"scene,omitempty"`

	// Setup commands establish initial state and must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Steps are the commands under test.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step sends one command.
type Step struct {
	// Command is the command kind (e.g., "create_node").
	Command string `yaml:"command"`

	// Params are sent as the command's parameters. Nil sends {}.
	Params map[string]any `yaml:"params,omitempty"`

	// Expect checks the reply. Nil accepts any reply.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected reply.
type Expect struct {
	// Status is "success" or "error".
	Status string `yaml:"status"`

	// Result is a subset of the expected success result.
	Result map[string]any `yaml:"result,omitempty"`

	// Message must appear in the error message.
	Message string `yaml:"message,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Command is used by trace_contains, trace_count and final_state.
	Command string `yaml:"command,omitempty"`

	// Params are subset-matched by trace_contains and sent by final_state.
	Params map[string]any `yaml:"params,omitempty"`

	// Commands is the expected order (trace_order).
	Commands []string `yaml:"commands,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Expect is a subset of the final_state command's result.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve the scene relative to the scenario BEFORE validation
	if scenario.Scene != "" && !filepath.IsAbs(scenario.Scene) {
		scenario.Scene = filepath.Join(filepath.Dir(path), scenario.Scene)
	}
	if scenario.Scene != "" {
		if _, err := os.Stat(scenario.Scene); err != nil {
			return nil, fmt.Errorf("invalid scenario: scene file not found: %s", scenario.Scene)
		}
	}
	return scenario, nil
}

// ParseScenario decodes and validates a scenario document. The scene path
// is left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if step.Command == "" {
			return fmt.Errorf("setup[%d]: command is required", i)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is not allowed in setup", i)
		}
	}

	// Steps may name unknown commands on purpose; the gateway's reply to
	// them is part of what a scenario can check.
	for i, step := range s.Steps {
		if step.Command == "" {
			return fmt.Errorf("steps[%d]: command is required", i)
		}
		if step.Expect == nil {
			continue
		}
		switch step.Expect.Status {
		case wire.StatusSuccess:
			if step.Expect.Message != "" {
				return fmt.Errorf("steps[%d].expect: message requires status %q", i, wire.StatusError)
			}
		case wire.StatusError:
			if step.Expect.Result != nil {
				return fmt.Errorf("steps[%d].expect: result requires status %q", i, wire.StatusSuccess)
			}
		default:
			return fmt.Errorf("steps[%d].expect: status must be %q or %q", i, wire.StatusSuccess, wire.StatusError)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Command == "" {
			return fmt.Errorf("assertions[%d]: command is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Commands) == 0 {
			return fmt.Errorf("assertions[%d]: commands list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Command == "" {
			return fmt.Errorf("assertions[%d]: command is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		k := command.Kind(a.Command)
		if !k.Valid() {
			return fmt.Errorf("assertions[%d]: unknown command %q for final_state", index, a.Command)
		}
		if k.Mutates() {
			return fmt.Errorf("assertions[%d]: final_state command %q modifies the scene", index, a.Command)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/reactors/internal/timing"
)

// Scenario defines a network test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Network is the directory holding the network's CUE files.
	// Relative paths are resolved against the scenario file location.
	Network string `yaml:"network"`

	// Options override the network's own run options.
	Options ScenarioOptions `yaml:"options,omitempty"`

	// Assertions validate the run's trace.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run id for the stored run.
	// If empty, defaults to DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`
}

// DefaultRunID is the run id of scenarios that do not set one.
const DefaultRunID = "scenario-run"

// ScenarioOptions override network options. Zero values keep the
// network's setting.
type ScenarioOptions struct {
	Timeout string `yaml:"timeout,omitempty"`
	Workers int    `yaml:"workers,omitempty"`
}

// Assertion validates the run's trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "fires_count": reaction executed exactly Expected times
	// - "fires_order": Reactions first executed in order
	// - "value_at": Reaction recorded Value under Label at Tag
	// - "values": Reaction recorded exactly Values under Label
	// - "stops_at": the run's last tag is Tag
	Type string `yaml:"type"`

	// Reaction names a reaction ("main/sink#0") or every reaction of a
	// reactor ("main/sink").
	Reaction string `yaml:"reaction,omitempty"`

	// Reactions is the expected first-execution order (fires_order).
	Reactions []string `yaml:"reactions,omitempty"`

	// Label selects recorded values (value_at, values). Empty matches any.
	Label string `yaml:"label,omitempty"`

	// Tag is "offset/microstep", e.g. "5 ms/0" (value_at, stops_at).
	Tag string `yaml:"tag,omitempty"`

	// Value is the expected recorded value (value_at).
	Value any `yaml:"value,omitempty"`

	// Values is the expected recorded sequence (values).
	Values []any `yaml:"values,omitempty"`

	// Expected is the expected execution count (fires_count).
	Expected int `yaml:"expected,omitempty"`
}

// Assertion type constants.
const (
	AssertFiresCount = "fires_count"
	AssertFiresOrder = "fires_order"
	AssertValueAt    = "value_at"
	AssertValues     = "values"
	AssertStopsAt    = "stops_at"
)

// LoadScenario reads and parses a scenario YAML file, resolving the
// network path relative to the file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the network path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the network path BEFORE validation
	if scenario.Network != "" && !filepath.IsAbs(scenario.Network) && basePath != "" {
		scenario.Network = filepath.Join(basePath, scenario.Network)
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

	if s.Network == "" {
		return fmt.Errorf("network is required")
	}
	if info, err := os.Stat(s.Network); err != nil || !info.IsDir() {
		return fmt.Errorf("network directory not found: %s", s.Network)
	}

	if s.Options.Timeout != "" {
		if _, err := timing.ParseDuration(s.Options.Timeout); err != nil {
			return fmt.Errorf("options.timeout: %w", err)
		}
	}
	if s.Options.Workers < 0 {
		return fmt.Errorf("options.workers must be non-negative")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
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
	case AssertFiresCount:
		if a.Reaction == "" {
			return fmt.Errorf("assertions[%d]: reaction is required for fires_count", index)
		}
		if a.Expected < 0 {
			return fmt.Errorf("assertions[%d]: expected must be non-negative for fires_count", index)
		}
	case AssertFiresOrder:
		if len(a.Reactions) < 2 {
			return fmt.Errorf("assertions[%d]: at least two reactions are required for fires_order", index)
		}
	case AssertValueAt:
		if a.Reaction == "" || a.Tag == "" {
			return fmt.Errorf("assertions[%d]: reaction and tag are required for value_at", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for value_at", index)
		}
		if _, err := timing.ParseTag(a.Tag); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertValues:
		if a.Reaction == "" {
			return fmt.Errorf("assertions[%d]: reaction is required for values", index)
		}
	case AssertStopsAt:
		if a.Tag == "" {
			return fmt.Errorf("assertions[%d]: tag is required for stops_at", index)
		}
		if _, err := timing.ParseTag(a.Tag); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/contactstore/internal/backend"
	"github.com/roach88/contactstore/internal/contact"
)

// Scenario is a scripted run against a fresh store.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Flow lists the store operations to run, in order.
	Flow []Step `yaml:"flow"`

	// Assertions validate the call log and final state.
	// Supported types: call_count, call_order, final_index, persisted_index, dirty
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one store operation.
type Step struct {
	// Op names the store operation (see validOps).
	Op string `yaml:"op"`

	// Record is the payload for save and update.
	Record *contact.Record `yaml:"record,omitempty"`

	// UID identifies the record for remove and get.
	UID string `yaml:"uid,omitempty"`

	// Number is the phone number for find.
	Number string `yaml:"number,omitempty"`

	// Flush forces an index write after remove.
	Flush bool `yaml:"flush,omitempty"`

	// Heal removes all installed faults before the step.
	Heal bool `yaml:"heal,omitempty"`

	// Fail installs a backend fault before the step.
	Fail *FaultSpec `yaml:"fail,omitempty"`

	// Expect specifies the expected result.
	// If nil, the step may succeed or fail.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// FaultSpec describes a backend fault.
type FaultSpec struct {
	Op    string `yaml:"op"`              // add | get | update | remove | clear
	Key   int64  `yaml:"key,omitempty"`   // zero matches any key
	Times int    `yaml:"times,omitempty"` // zero means every matching call
	Error string `yaml:"error"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Outcome is "ok" or "error".
	Outcome string `yaml:"outcome"`

	// Code is the expected error code (store code or BACKEND).
	Code string `yaml:"code,omitempty"`

	// Value is the expected result value, if checked.
	Value interface{} `yaml:"value,omitempty"`
}

// Assertion validates the call log or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "call_count": Check a backend call was made exactly Count times
	// - "call_order": Check Calls appear in order
	// - "final_index": Compare the in-memory index
	// - "persisted_index": Compare the stored index
	// - "dirty": Check the dirty flag
	Type string `yaml:"type"`

	// Call is a backend call in trace form, e.g. "update(1)" (used by call_count).
	Call string `yaml:"call,omitempty"`

	// Count is the expected number of occurrences (used by call_count).
	Count int `yaml:"count,omitempty"`

	// Calls is the expected call order (used by call_order).
	Calls []string `yaml:"calls,omitempty"`

	// Index holds the expected maps, keyed byUid, byTel or byShortTel
	// (used by final_index and persisted_index). Omitted maps are not checked.
	Index map[string]map[string]int64 `yaml:"index,omitempty"`

	// Dirty is the expected dirty flag (used by dirty).
	Dirty *bool `yaml:"dirty,omitempty"`
}

// Assertion type constants.
const (
	AssertCallCount      = "call_count"
	AssertCallOrder      = "call_order"
	AssertFinalIndex     = "final_index"
	AssertPersistedIndex = "persisted_index"
	AssertDirty          = "dirty"
)

// Step op constants.
const (
	OpInitialize = "initialize"
	OpSave       = "save"
	OpUpdate     = "update"
	OpRemove     = "remove"
	OpClear      = "clear"
	OpFlush      = "flush"
	OpGet        = "get"
	OpFind       = "find"
	OpCount      = "count"
	OpRefresh    = "refresh"
)

var validOps = map[string]bool{
	OpInitialize: true, OpSave: true, OpUpdate: true, OpRemove: true, OpClear: true,
	OpFlush: true, OpGet: true, OpFind: true, OpCount: true, OpRefresh: true,
}

var validFaultOps = map[backend.Op]bool{
	backend.OpAdd: true, backend.OpGet: true, backend.OpUpdate: true,
	backend.OpRemove: true, backend.OpClear: true,
}

var indexMaps = map[string]bool{"byUid": true, "byTel": true, "byShortTel": true}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
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

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks a flow step's op-specific fields.
func validateStep(index int, step *Step) error {
	if !validOps[step.Op] {
		return fmt.Errorf("flow[%d]: unknown op %q", index, step.Op)
	}

	switch step.Op {
	case OpSave, OpUpdate:
		if step.Record == nil {
			return fmt.Errorf("flow[%d]: record is required for %s", index, step.Op)
		}
	case OpRemove, OpGet:
		if step.UID == "" {
			return fmt.Errorf("flow[%d]: uid is required for %s", index, step.Op)
		}
	case OpFind:
		if step.Number == "" {
			return fmt.Errorf("flow[%d]: number is required for find", index)
		}
	}

	if step.Fail != nil {
		if !validFaultOps[backend.Op(step.Fail.Op)] {
			return fmt.Errorf("flow[%d].fail: unknown backend op %q", index, step.Fail.Op)
		}
		if step.Fail.Error == "" {
			return fmt.Errorf("flow[%d].fail: error is required", index)
		}
	}

	if step.Expect != nil {
		switch step.Expect.Outcome {
		case OutcomeOK:
			if step.Expect.Code != "" {
				return fmt.Errorf("flow[%d].expect: code is only valid with outcome error", index)
			}
		case OutcomeError:
		default:
			return fmt.Errorf("flow[%d].expect: outcome must be ok or error", index)
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
	case AssertCallCount:
		if a.Call == "" {
			return fmt.Errorf("assertions[%d]: call is required for call_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for call_count", index)
		}
	case AssertCallOrder:
		if len(a.Calls) == 0 {
			return fmt.Errorf("assertions[%d]: calls list is required for call_order", index)
		}
	case AssertFinalIndex, AssertPersistedIndex:
		if len(a.Index) == 0 {
			return fmt.Errorf("assertions[%d]: index is required for %s", index, a.Type)
		}
		for name := range a.Index {
			if !indexMaps[name] {
				return fmt.Errorf("assertions[%d]: unknown index map %q", index, name)
			}
		}
	case AssertDirty:
		if a.Dirty == nil {
			return fmt.Errorf("assertions[%d]: dirty is required for dirty", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// Package scenario implements the declarative action-list engine: JSON
// scenario definitions, the manifest registry that locates them, parameter
// substitution, and the executor that runs actions against the capability
// catalog under a per-action optional/fatal policy.
package scenario

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidScenario marks a structurally invalid scenario file.
	ErrInvalidScenario = errors.New("invalid scenario file")
	// ErrInvalidManifest marks a structurally invalid manifest file.
	ErrInvalidManifest = errors.New("invalid scenarios manifest")
	// ErrUnknownKind marks a scenario kind outside the enumeration.
	ErrUnknownKind = errors.New("unknown scenario kind")
	// ErrUnknownScenario marks a scenario key missing from a known
	// manifest section.
	ErrUnknownScenario = errors.New("scenario not registered")
	// ErrKindMismatch marks a scenario file whose kind disagrees with the
	// manifest section it was resolved through.
	ErrKindMismatch = errors.New("scenario kind mismatch")
)

// Kind enumerates the scenario categories.
type Kind string

// The supported scenario kinds.
const (
	KindQuest    Kind = "quest"
	KindMission  Kind = "mission"
	KindRun      Kind = "run"
	KindVanquish Kind = "vanquish"
)

// Kinds lists every supported kind.
func Kinds() []Kind {
	return []Kind{KindQuest, KindMission, KindRun, KindVanquish}
}

// ParseKind normalizes a raw kind string against the enumeration.
func ParseKind(v string) (Kind, error) {
	text := strings.ToLower(strings.TrimSpace(v))
	for _, k := range Kinds() {
		if string(k) == text {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, v)
}

// Section names the manifest section for a kind ("quest" → "quests").
func (k Kind) Section() string { return string(k) + "s" }

// Action is one named operation within a scenario.
type Action struct {
	Name        string
	Args        []any
	Kwargs      map[string]any
	Optional    bool
	Description string
}

// Definition is a parsed scenario file. Definitions are immutable once
// loaded.
type Definition struct {
	ID       string
	Kind     Kind
	Name     string
	Actions  []Action
	Metadata map[string]any
}

// Result is the terminal record of one execution. FailedActionIndex is -1
// when no action failed.
type Result struct {
	OK                bool
	ScenarioID        string
	Kind              Kind
	FailedActionIndex int
	FailedActionName  string
	Reason            string
}

// Params maps placeholder names to substitution values.
type Params map[string]any

package versioned

import (
	"encoding/json"
)

// Trace records what a single parse did with a stored string.
type Trace struct {
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	// Version is the handle's version, the target of the parse.
	Version int `json:"version" yaml:"version"`
	// SourceVersion is the version found in the stored string, or -1 when
	// the string was not JSON.
	SourceVersion  int    `json:"source_version" yaml:"source_version"`
	Applied        []int  `json:"applied,omitempty" yaml:"applied,omitempty"`
	Fallback       bool   `json:"fallback" yaml:"fallback"`
	Reason         Reason `json:"reason,omitempty" yaml:"reason,omitempty"`
	Error          string `json:"error,omitempty" yaml:"error,omitempty"`
	DefaultInvalid bool   `json:"default_invalid,omitempty" yaml:"default_invalid,omitempty"`
}

// Migrated reports whether at least one migration ran and the result was
// kept.
func (t Trace) Migrated() bool {
	return !t.Fallback && len(t.Applied) > 0
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

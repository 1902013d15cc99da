package versioned

import (
	"bytes"
	"encoding/json"
	"math"
)

// Envelope is the stored form of a value: the version index that produced it
// and the payload in that version's shape.
type Envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// splitEnvelope reports the source version and payload of a stored string.
// Anything that is not an object holding both an integer "version" and a
// "data" member is treated as an unversioned version 0 payload.
func splitEnvelope(raw json.RawMessage) (int, json.RawMessage) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return 0, raw
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &members); err != nil {
		return 0, raw
	}
	versionRaw, hasVersion := members["version"]
	data, hasData := members["data"]
	if !hasVersion || !hasData {
		return 0, raw
	}
	version, ok := integerVersion(versionRaw)
	if !ok {
		return 0, raw
	}
	return version, data
}

func integerVersion(raw json.RawMessage) (int, bool) {
	var number float64
	if err := json.Unmarshal(raw, &number); err != nil {
		return 0, false
	}
	if math.IsNaN(number) || math.IsInf(number, 0) || number != math.Trunc(number) {
		return 0, false
	}
	if number > math.MaxInt32 || number < math.MinInt32 {
		// Out of any plausible range; still an integer, so report it as an
		// unknown version rather than a legacy payload.
		return -1, true
	}
	return int(number), true
}

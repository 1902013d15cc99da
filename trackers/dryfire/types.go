// Package dryfire keeps the drills and practice sessions of a dry-fire
// trainer under a single key. The stored shape has two generations: the
// first recorded a time and a hit flag per shot, the current one records a
// graded result.
package dryfire

// StorageKey is the key the trainer data is stored under.
const StorageKey = "dry-fire-trainer"

// Drill is a configured exercise: a par time in seconds and the number of
// repetitions per session.
type Drill struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	ParTime float64 `json:"parTime"`
	Reps    int     `json:"reps"`
}

// Result grades one repetition.
type Result string

const (
	ResultHit  Result = "hit"
	ResultSlow Result = "slow"
	ResultMiss Result = "miss"
)

// Valid reports whether r is a known grade.
func (r Result) Valid() bool {
	switch r {
	case ResultHit, ResultSlow, ResultMiss:
		return true
	}
	return false
}

// Shot is one repetition. A nil Result has not been graded yet.
type Shot struct {
	Result *Result `json:"result"`
}

// Session is one run of a drill. Drill name and par time are copied from the
// drill when the session starts.
type Session struct {
	ID        string  `json:"id"`
	Date      string  `json:"date"`
	DrillID   string  `json:"drillId"`
	DrillName string  `json:"drillName"`
	ParTime   float64 `json:"parTime"`
	Shots     []Shot  `json:"shots"`
	Completed bool    `json:"completed"`
}

// Data is the current stored shape.
type Data struct {
	Drills    []Drill   `json:"drills"`
	Sessions  []Session `json:"sessions"`
	ChaosMode bool      `json:"chaosMode"`
}

// ShotV0 is a repetition as first stored: the reaction time in seconds and
// whether it hit. Ignored shots did not count.
type ShotV0 struct {
	Time    *float64 `json:"time"`
	Hit     *bool    `json:"hit"`
	Ignored bool     `json:"ignored"`
}

// SessionV0 is a session of the first generation.
type SessionV0 struct {
	ID        string   `json:"id"`
	Date      string   `json:"date"`
	DrillID   string   `json:"drillId"`
	DrillName string   `json:"drillName"`
	ParTime   float64  `json:"parTime"`
	Shots     []ShotV0 `json:"shots"`
	Completed bool     `json:"completed"`
}

// DataV0 is the first stored shape. Chaos mode was added later and may be
// absent.
type DataV0 struct {
	Drills    []Drill     `json:"drills"`
	Sessions  []SessionV0 `json:"sessions"`
	ChaosMode bool        `json:"chaosMode,omitempty"`
}

// DefaultDrills returns the stock drills.
func DefaultDrills() []Drill {
	return []Drill{
		{ID: "low-ready", Name: "Low Ready", ParTime: 1.5, Reps: 20},
		{ID: "draw", Name: "Draw", ParTime: 2.0, Reps: 20},
		{ID: "draw-from-concealment", Name: "Draw from Concealment", ParTime: 2.5, Reps: 20},
	}
}

// DefaultData returns the stock drills with no sessions.
func DefaultData() Data {
	return Data{Drills: DefaultDrills(), Sessions: []Session{}}
}

// DefaultDataV0 is DefaultData in the first generation's shape.
func DefaultDataV0() DataV0 {
	return DataV0{Drills: DefaultDrills(), Sessions: []SessionV0{}}
}

func ptr[T any](v T) *T {
	return &v
}

// Package workout is a 5x5-style workout log kept in a key/value store. The
// configuration and the logged workouts live under separate keys, each with
// its own versioned model. Data written by older releases under a single
// combined key is split into the two keys on open.
package workout

// ExerciseConfig is one exercise of a template.
type ExerciseConfig struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SetCount int    `json:"setCount"`
}

// Template is a named list of exercises. Templates rotate from one workout to
// the next.
type Template struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Exercises []ExerciseConfig `json:"exercises"`
}

// Set is one logged set.
type Set struct {
	Reps int `json:"reps"`
}

// ExerciseEntry is one exercise of a logged workout. A nil weight means the
// exercise was not done.
type ExerciseEntry struct {
	ID     string   `json:"id"`
	Weight *float64 `json:"weight"`
	Sets   []Set    `json:"sets"`
}

// Entry is the workout logged for a date (yyyy-MM-dd).
type Entry struct {
	Date       string          `json:"date"`
	TemplateID string          `json:"templateId"`
	Exercises  []ExerciseEntry `json:"exercises"`
	BonusReps  *int            `json:"bonusReps"`
}

// Config holds templates, the label of the bonus exercise and the plates
// available for loading a bar.
type Config struct {
	Templates  []Template `json:"templates"`
	BonusLabel string     `json:"bonusLabel"`
	Plates     []float64  `json:"plates"`
}

// Entries maps dates to logged workouts.
type Entries map[string]Entry

// Data is the combined view, and the shape of the legacy single key.
type Data struct {
	Config   Config  `json:"config"`
	Workouts Entries `json:"workouts"`
}

// Serialized is the exported form: the stored string of each key.
type Serialized struct {
	Config   string `json:"config"`
	Workouts string `json:"workouts"`
}

// DefaultConfig returns the stock A/B program.
func DefaultConfig() Config {
	return Config{
		Templates: []Template{
			{
				ID:   "workout-a",
				Name: "Workout A",
				Exercises: []ExerciseConfig{
					{ID: "squat", Name: "Squat", SetCount: 5},
					{ID: "overhead-press", Name: "Overhead Press", SetCount: 5},
					{ID: "deadlift", Name: "Deadlift", SetCount: 1},
				},
			},
			{
				ID:   "workout-b",
				Name: "Workout B",
				Exercises: []ExerciseConfig{
					{ID: "squat", Name: "Squat", SetCount: 5},
					{ID: "bench-press", Name: "Bench Press", SetCount: 5},
					{ID: "barbell-row", Name: "Barbell Row", SetCount: 5},
				},
			},
		},
		BonusLabel: "Pull-ups",
		Plates:     []float64{45, 35, 25, 10, 5, 2.5},
	}
}

// DefaultData returns the default config with no workouts.
func DefaultData() Data {
	return Data{Config: DefaultConfig(), Workouts: Entries{}}
}

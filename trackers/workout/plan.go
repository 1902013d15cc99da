package workout

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrNoTemplates is returned when the configuration holds no template.
var ErrNoTemplates = errors.New("workout: no workout templates configured")

// BarWeight is the weight of an empty bar.
const BarWeight = 45.0

// WeightIncrement is added to the last logged weight of an exercise when a
// new workout is created.
const WeightIncrement = 5.0

// ResolveTemplate picks the template for a new workout on date: the one after
// the template of the latest earlier workout, wrapping around, or the first
// template when there is no earlier workout or its template is gone.
func ResolveTemplate(data Data, date string) (Template, error) {
	templates := data.Config.Templates
	if len(templates) == 0 {
		return Template{}, ErrNoTemplates
	}

	earlier := datesBefore(data.Workouts, date)
	if len(earlier) == 0 {
		return templates[0], nil
	}
	previous := data.Workouts[earlier[len(earlier)-1]]
	for idx, template := range templates {
		if template.ID == previous.TemplateID {
			return templates[(idx+1)%len(templates)], nil
		}
	}
	return templates[0], nil
}

// CreateEntry builds an empty workout for date. Each exercise starts at the
// most recent logged weight plus WeightIncrement, or no weight when it was
// never logged.
func CreateEntry(data Data, date string) (Entry, error) {
	template, err := ResolveTemplate(data, date)
	if err != nil {
		return Entry{}, err
	}

	earlier := datesBefore(data.Workouts, date)
	previousWeight := func(exerciseID string) *float64 {
		for i := len(earlier) - 1; i >= 0; i-- {
			for _, exercise := range data.Workouts[earlier[i]].Exercises {
				if exercise.ID == exerciseID && exercise.Weight != nil {
					next := *exercise.Weight + WeightIncrement
					return &next
				}
			}
		}
		return nil
	}

	exercises := make([]ExerciseEntry, 0, len(template.Exercises))
	for _, exercise := range template.Exercises {
		exercises = append(exercises, ExerciseEntry{
			ID:     exercise.ID,
			Weight: previousWeight(exercise.ID),
			Sets:   make([]Set, exercise.SetCount),
		})
	}
	return Entry{
		Date:       date,
		TemplateID: template.ID,
		Exercises:  exercises,
	}, nil
}

// AlignWithTemplate reshapes entry to the exercises and set counts of
// template, keeping logged weights and reps. Exercises the template no
// longer has are dropped. It returns entry unchanged, and false, when it
// already matches.
func AlignWithTemplate(entry Entry, template Template) (Entry, bool) {
	existing := make(map[string]ExerciseEntry, len(entry.Exercises))
	for _, exercise := range entry.Exercises {
		existing[exercise.ID] = exercise
	}

	changed := entry.TemplateID != template.ID || len(entry.Exercises) != len(template.Exercises)
	exercises := make([]ExerciseEntry, 0, len(template.Exercises))
	for _, config := range template.Exercises {
		current, ok := existing[config.ID]
		if !ok || len(current.Sets) != config.SetCount {
			changed = true
		}
		sets := make([]Set, config.SetCount)
		for i := range sets {
			if i < len(current.Sets) {
				sets[i] = current.Sets[i]
			}
		}
		exercises = append(exercises, ExerciseEntry{
			ID:     config.ID,
			Weight: current.Weight,
			Sets:   sets,
		})
	}
	if !changed {
		return entry, false
	}

	aligned := entry
	aligned.TemplateID = template.ID
	aligned.Exercises = exercises
	return aligned, true
}

// Reconcile aligns every workout with its template after a configuration
// change. Workouts whose template was removed move to the first template.
func Reconcile(entries Entries, cfg Config) Entries {
	templates := make(map[string]Template, len(cfg.Templates))
	for _, template := range cfg.Templates {
		templates[template.ID] = template
	}

	out := make(Entries, len(entries))
	for date, entry := range entries {
		template, ok := templates[entry.TemplateID]
		if !ok {
			if len(cfg.Templates) == 0 {
				continue
			}
			template = cfg.Templates[0]
		}
		out[date], _ = AlignWithTemplate(entry, template)
	}
	return out
}

// SetGroup is a run of consecutive sets with the same reps.
type SetGroup struct {
	Reps  int
	Count int
}

// SummarizeSets collapses consecutive sets with equal reps.
func SummarizeSets(exercise ExerciseEntry) []SetGroup {
	var groups []SetGroup
	for _, set := range exercise.Sets {
		if n := len(groups); n > 0 && groups[n-1].Reps == set.Reps {
			groups[n-1].Count++
			continue
		}
		groups = append(groups, SetGroup{Reps: set.Reps, Count: 1})
	}
	return groups
}

// FormatSummary renders a workout as text, one exercise per line in the
// form "Squat: 135x5x5". Exercises without a weight are skipped.
func FormatSummary(entry Entry, template Template, cfg Config) string {
	names := make(map[string]string, len(template.Exercises))
	for _, exercise := range template.Exercises {
		names[exercise.ID] = exercise.Name
	}

	var lines []string
	for _, exercise := range entry.Exercises {
		if exercise.Weight == nil {
			continue
		}
		label, ok := names[exercise.ID]
		if !ok {
			label = exercise.ID
		}
		weight := formatWeight(*exercise.Weight)
		groups := SummarizeSets(exercise)
		parts := make([]string, 0, len(groups))
		for _, group := range groups {
			parts = append(parts, fmt.Sprintf("%sx%dx%d", weight, group.Count, group.Reps))
		}
		lines = append(lines, label+": "+strings.Join(parts, ", "))
	}
	if cfg.BonusLabel != "" && entry.BonusReps != nil {
		lines = append(lines, fmt.Sprintf("%s: %d reps", cfg.BonusLabel, *entry.BonusReps))
	}
	return strings.Join(lines, "\n")
}

// Breakdown lists the plates to load on each side of the bar.
type Breakdown struct {
	PerSide []float64
	// Exact is false when the plates cannot make up the requested weight.
	Exact bool
}

// PlateBreakdown loads the heaviest plates first until total is reached.
func PlateBreakdown(total float64, plates []float64) Breakdown {
	if total <= BarWeight {
		return Breakdown{PerSide: []float64{}, Exact: total == BarWeight}
	}

	remaining := (total - BarWeight) / 2
	sorted := append([]float64(nil), plates...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	perSide := []float64{}
	for _, plate := range sorted {
		if plate <= 0 {
			continue
		}
		count := int(math.Floor((remaining + 1e-6) / plate))
		for i := 0; i < count; i++ {
			perSide = append(perSide, plate)
		}
		if count > 0 {
			remaining = math.Max(0, remaining-plate*float64(count))
		}
	}
	return Breakdown{PerSide: perSide, Exact: remaining <= 1e-3}
}

// MaxWeights returns the heaviest logged weight of each exercise.
func MaxWeights(entries Entries) map[string]float64 {
	out := map[string]float64{}
	for _, entry := range entries {
		for _, exercise := range entry.Exercises {
			if exercise.Weight == nil {
				continue
			}
			if *exercise.Weight > out[exercise.ID] {
				out[exercise.ID] = *exercise.Weight
			}
		}
	}
	return out
}

func datesBefore(entries Entries, date string) []string {
	dates := make([]string, 0, len(entries))
	for candidate := range entries {
		if candidate < date {
			dates = append(dates, candidate)
		}
	}
	sort.Strings(dates)
	return dates
}

func formatWeight(weight float64) string {
	return strconv.FormatFloat(weight, 'f', -1, 64)
}

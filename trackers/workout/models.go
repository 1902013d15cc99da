package workout

import (
	"errors"
	"fmt"

	versioned "github.com/goliatone/go-versioned"
	"github.com/goliatone/go-versioned/schema"
)

// Storage keys.
const (
	ConfigKey   = "workout-tracker-config"
	WorkoutsKey = "workout-tracker-workouts"
	LegacyKey   = "workout-tracker"
)

const entriesSchema = `{
  "type": "object",
  "additionalProperties": {
    "type": "object",
    "required": ["date", "templateId", "exercises", "bonusReps"],
    "properties": {
      "date": {"type": "string"},
      "templateId": {"type": "string"},
      "bonusReps": {"type": ["integer", "null"], "minimum": 0, "maximum": 500},
      "exercises": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["id", "weight", "sets"],
          "properties": {
            "id": {"type": "string"},
            "weight": {"type": ["number", "null"], "minimum": 0, "maximum": 1500},
            "sets": {
              "type": "array",
              "items": {
                "type": "object",
                "required": ["reps"],
                "properties": {"reps": {"type": "integer", "minimum": 0, "maximum": 1000}}
              }
            }
          }
        }
      }
    }
  }
}`

// Models holds the three model handles of the tracker.
type Models struct {
	Config   *versioned.Model[Config]
	Workouts *versioned.Model[Entries]
	Legacy   *versioned.Model[Data]
}

// NewModels declares the tracker models. opts apply to each of them.
func NewModels(opts ...versioned.Option) Models {
	return Models{
		Config:   versioned.New(ConfigSchema(), DefaultConfig(), append([]versioned.Option{versioned.WithName("workout-config")}, opts...)...),
		Workouts: versioned.New(EntriesSchema(), Entries{}, append([]versioned.Option{versioned.WithName("workout-entries")}, opts...)...),
		Legacy:   versioned.New(DataSchema(), DefaultData(), append([]versioned.Option{versioned.WithName("workout-legacy")}, opts...)...),
	}
}

// ConfigSchema validates a tracker configuration.
func ConfigSchema() *schema.Definition[Config] {
	return schema.MustDefine[Config](
		schema.Named("workout-config"),
		schema.ExprRule("templates", "len(templates) >= 1"),
		schema.ExprRule("plates", "len(plates) >= 1 && all(plates, # > 0 && # <= 200)"),
		schema.CELRule("exercises", "templates.all(t, size(t.exercises) >= 1 && t.exercises.all(e, e.setCount >= 1.0 && e.setCount <= 10.0))"),
	).WithCheck("template-ids", checkTemplateIDs)
}

// EntriesSchema validates the logged workouts.
func EntriesSchema() *schema.Definition[Entries] {
	return schema.MustDefine[Entries](
		schema.Named("workout-entries"),
		schema.JSONSchema(entriesSchema),
	).WithDefaults(Entries{})
}

// DataSchema validates the legacy combined shape.
func DataSchema() *schema.Definition[Data] {
	config := ConfigSchema()
	entries := EntriesSchema()
	return schema.MustDefine[Data](schema.Named("workout-legacy")).
		WithCheck("config", func(d Data) error {
			_, err := config.Validate(d.Config)
			return err
		}).
		WithCheck("workouts", func(d Data) error {
			if d.Workouts == nil {
				return errors.New("workouts are required")
			}
			_, err := entries.Validate(d.Workouts)
			return err
		})
}

func checkTemplateIDs(cfg Config) error {
	seen := make(map[string]struct{}, len(cfg.Templates))
	for _, template := range cfg.Templates {
		if template.ID == "" {
			return errors.New("template id is required")
		}
		if _, dup := seen[template.ID]; dup {
			return fmt.Errorf("duplicate template id %q", template.ID)
		}
		seen[template.ID] = struct{}{}
	}
	return nil
}

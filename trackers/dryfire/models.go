package dryfire

import (
	"fmt"

	versioned "github.com/goliatone/go-versioned"
	"github.com/goliatone/go-versioned/schema"
)

const shotsSchema = `{
  "type": "object",
  "properties": {
    "sessions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "shots": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["result"],
              "properties": {"result": {"enum": ["hit", "slow", "miss", null]}}
            }
          }
        }
      }
    }
  }
}`

const drillRule = "all(drills, #.parTime > 0 && #.parTime <= 60 && #.reps >= 1 && #.reps <= 100)"

// Models holds both generations of the trainer model. Data is the handle
// callers normally use.
type Models struct {
	V0   *versioned.Model[DataV0]
	Data *versioned.Model[Data]
}

// NewModels declares the model chain. opts apply to the chain.
func NewModels(opts ...versioned.Option) Models {
	v0 := versioned.New(DataV0Schema(), DefaultDataV0(), append([]versioned.Option{versioned.WithName("dry-fire")}, opts...)...)
	return Models{
		V0:   v0,
		Data: versioned.Migrate(v0, DataSchema(), DefaultData(), UpgradeV0),
	}
}

// DataV0Schema validates the first generation.
func DataV0Schema() *schema.Definition[DataV0] {
	return schema.MustDefine[DataV0](
		schema.Named("dry-fire-v0"),
		schema.ExprRule("drills", "len(drills) >= 1 && "+drillRule),
		schema.ExprRule("shot-times", "all(sessions, all(#.shots, #.time == nil || #.time >= 0))"),
	).WithCheck("unique-ids", func(d DataV0) error {
		return uniqueDrillIDs(d.Drills)
	})
}

// DataSchema validates the current generation.
func DataSchema() *schema.Definition[Data] {
	return schema.MustDefine[Data](
		schema.Named("dry-fire"),
		schema.JSONSchema(shotsSchema),
		schema.ExprRule("drills", "len(drills) >= 1 && "+drillRule),
		schema.CELRule("shots", "sessions.all(s, size(s.shots) <= 100)"),
	).WithCheck("unique-ids", func(d Data) error {
		if err := uniqueDrillIDs(d.Drills); err != nil {
			return err
		}
		seen := make(map[string]struct{}, len(d.Sessions))
		for _, session := range d.Sessions {
			if _, dup := seen[session.ID]; dup {
				return fmt.Errorf("duplicate session id %q", session.ID)
			}
			seen[session.ID] = struct{}{}
		}
		return nil
	})
}

// UpgradeV0 grades first-generation shots. Ignored and unrecorded shots stay
// ungraded, misses stay misses, and hits slower than the par time become
// slow.
func UpgradeV0(prev DataV0) (Data, error) {
	sessions := make([]Session, 0, len(prev.Sessions))
	for _, session := range prev.Sessions {
		shots := make([]Shot, len(session.Shots))
		for i, shot := range session.Shots {
			shots[i] = Shot{Result: gradeShot(shot, session.ParTime)}
		}
		sessions = append(sessions, Session{
			ID:        session.ID,
			Date:      session.Date,
			DrillID:   session.DrillID,
			DrillName: session.DrillName,
			ParTime:   session.ParTime,
			Shots:     shots,
			Completed: session.Completed,
		})
	}
	return Data{
		Drills:    append([]Drill{}, prev.Drills...),
		Sessions:  sessions,
		ChaosMode: prev.ChaosMode,
	}, nil
}

func gradeShot(shot ShotV0, parTime float64) *Result {
	switch {
	case shot.Ignored || shot.Hit == nil:
		return nil
	case !*shot.Hit:
		return ptr(ResultMiss)
	case shot.Time != nil && *shot.Time > parTime:
		return ptr(ResultSlow)
	default:
		return ptr(ResultHit)
	}
}

func uniqueDrillIDs(drills []Drill) error {
	seen := make(map[string]struct{}, len(drills))
	for _, drill := range drills {
		if drill.ID == "" {
			return fmt.Errorf("drill %q has no id", drill.Name)
		}
		if _, dup := seen[drill.ID]; dup {
			return fmt.Errorf("duplicate drill id %q", drill.ID)
		}
		seen[drill.ID] = struct{}{}
	}
	return nil
}

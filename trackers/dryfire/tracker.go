package dryfire

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	versioned "github.com/goliatone/go-versioned"
	"github.com/goliatone/go-versioned/pkg/activity"
	"github.com/goliatone/go-versioned/pkg/store"
)

var (
	// ErrDrillNotFound is returned for an unknown drill id.
	ErrDrillNotFound = errors.New("dryfire: drill not found")
	// ErrDrillInUse is returned when deleting a drill that has sessions.
	ErrDrillInUse = errors.New("dryfire: cannot delete drill with existing sessions")
	// ErrLastDrill is returned when deleting the only remaining drill.
	ErrLastDrill = errors.New("dryfire: cannot delete the last drill")
	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("dryfire: session not found")
	// ErrRepOutOfRange is returned when recording a result for a repetition
	// the session does not have.
	ErrRepOutOfRange = errors.New("dryfire: repetition out of range")
)

// sessionDateLayout matches the millisecond UTC timestamps of stored sessions.
const sessionDateLayout = "2006-01-02T15:04:05.000Z07:00"

// Option configures a Tracker.
type Option func(*options)

type options struct {
	namespace string
	emitter   *activity.Emitter
	modelOpts []versioned.Option
	now       func() time.Time
	newID     func() string
}

// WithNamespace keeps the key under a namespace, for example one per user.
func WithNamespace(namespace string) Option {
	return func(o *options) {
		o.namespace = namespace
	}
}

// WithEmitter reports storage activity.
func WithEmitter(emitter *activity.Emitter) Option {
	return func(o *options) {
		o.emitter = emitter
	}
}

// WithModelOptions passes options, such as a logger, to the model chain.
func WithModelOptions(opts ...versioned.Option) Option {
	return func(o *options) {
		o.modelOpts = append(o.modelOpts, opts...)
	}
}

// WithClock overrides the clock used to date new sessions.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides how drill and session ids are generated. The
// returned value is prefixed with "drill-" or "session-".
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// DrillInput describes a drill to add.
type DrillInput struct {
	Name    string
	ParTime float64
	Reps    int
}

// DrillPatch lists drill fields to change; nil fields are kept.
type DrillPatch struct {
	Name    *string
	ParTime *float64
	Reps    *int
}

// Tracker reads and writes the trainer data.
type Tracker struct {
	models  Models
	binding *store.Binding[Data]
	now     func() time.Time
	newID   func() string
}

// Open binds a tracker to s.
func Open(s store.Store, opts ...Option) (*Tracker, error) {
	o := options{now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	key, err := store.Ref{Namespace: o.namespace, Key: StorageKey}.Identifier()
	if err != nil {
		return nil, err
	}
	models := NewModels(o.modelOpts...)
	binding, err := store.Bind(s, models.Data, key, store.WithEmitter(o.emitter))
	if err != nil {
		return nil, err
	}
	return &Tracker{models: models, binding: binding, now: o.now, newID: o.newID}, nil
}

// Models returns the model handles the tracker uses.
func (t *Tracker) Models() Models {
	return t.models
}

// Data loads the trainer data, upgrading older stored generations.
func (t *Tracker) Data(ctx context.Context) (Data, error) {
	return t.binding.Load(ctx)
}

// Drill returns the drill with id.
func (t *Tracker) Drill(ctx context.Context, id string) (Drill, bool, error) {
	data, err := t.binding.Load(ctx)
	if err != nil {
		return Drill{}, false, err
	}
	idx := drillIndex(data, id)
	if idx < 0 {
		return Drill{}, false, nil
	}
	return data.Drills[idx], true, nil
}

// AddDrill stores a new drill and returns it with its generated id.
func (t *Tracker) AddDrill(ctx context.Context, input DrillInput) (Drill, error) {
	drill := Drill{
		ID:      "drill-" + t.newID(),
		Name:    strings.TrimSpace(input.Name),
		ParTime: input.ParTime,
		Reps:    input.Reps,
	}
	_, err := t.binding.Update(ctx, func(current Data) (Data, error) {
		current.Drills = append(current.Drills, drill)
		return current, nil
	})
	if err != nil {
		return Drill{}, fmt.Errorf("dryfire: add drill: %w", err)
	}
	return drill, nil
}

// UpdateDrill applies patch to the drill with id. Sessions already started
// keep the name and par time they were created with.
func (t *Tracker) UpdateDrill(ctx context.Context, id string, patch DrillPatch) (Drill, error) {
	var updated Drill
	_, err := t.binding.Update(ctx, func(current Data) (Data, error) {
		idx := drillIndex(current, id)
		if idx < 0 {
			return current, ErrDrillNotFound
		}
		drill := current.Drills[idx]
		if patch.Name != nil {
			drill.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.ParTime != nil {
			drill.ParTime = *patch.ParTime
		}
		if patch.Reps != nil {
			drill.Reps = *patch.Reps
		}
		current.Drills[idx] = drill
		updated = drill
		return current, nil
	})
	if err != nil {
		return Drill{}, fmt.Errorf("dryfire: update drill %s: %w", id, err)
	}
	return updated, nil
}

// CanDeleteDrill reports whether no session references the drill and it is
// not the last one.
func (t *Tracker) CanDeleteDrill(ctx context.Context, id string) (bool, error) {
	data, err := t.binding.Load(ctx)
	if err != nil {
		return false, err
	}
	return !hasSessions(data, id) && len(data.Drills) > 1, nil
}

// DeleteDrill removes the drill with id. Drills with sessions are kept and
// ErrDrillInUse is returned. At least one drill always remains.
func (t *Tracker) DeleteDrill(ctx context.Context, id string) error {
	_, err := t.binding.Update(ctx, func(current Data) (Data, error) {
		if hasSessions(current, id) {
			return current, ErrDrillInUse
		}
		if len(current.Drills) == 1 && current.Drills[0].ID == id {
			return current, ErrLastDrill
		}
		drills := make([]Drill, 0, len(current.Drills))
		for _, drill := range current.Drills {
			if drill.ID != id {
				drills = append(drills, drill)
			}
		}
		current.Drills = drills
		return current, nil
	})
	if err != nil {
		return fmt.Errorf("dryfire: delete drill %s: %w", id, err)
	}
	return nil
}

// CreateSession starts a session of the drill with one ungraded shot per
// repetition.
func (t *Tracker) CreateSession(ctx context.Context, drillID string) (Session, error) {
	var session Session
	_, err := t.binding.Update(ctx, func(current Data) (Data, error) {
		idx := drillIndex(current, drillID)
		if idx < 0 {
			return current, ErrDrillNotFound
		}
		drill := current.Drills[idx]
		session = Session{
			ID:        "session-" + t.newID(),
			Date:      t.now().UTC().Format(sessionDateLayout),
			DrillID:   drill.ID,
			DrillName: drill.Name,
			ParTime:   drill.ParTime,
			Shots:     make([]Shot, drill.Reps),
		}
		current.Sessions = append(current.Sessions, session)
		return current, nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("dryfire: create session: %w", err)
	}
	return session, nil
}

// Session returns the session with id.
func (t *Tracker) Session(ctx context.Context, id string) (Session, bool, error) {
	data, err := t.binding.Load(ctx)
	if err != nil {
		return Session{}, false, err
	}
	idx := sessionIndex(data, id)
	if idx < 0 {
		return Session{}, false, nil
	}
	return data.Sessions[idx], true, nil
}

// UpdateSession applies fn to the session with id and saves the result. The
// session id cannot be changed.
func (t *Tracker) UpdateSession(ctx context.Context, id string, fn func(Session) (Session, error)) (Session, error) {
	if fn == nil {
		return Session{}, errors.New("dryfire: session update func is required")
	}
	var updated Session
	_, err := t.binding.Update(ctx, func(current Data) (Data, error) {
		idx := sessionIndex(current, id)
		if idx < 0 {
			return current, ErrSessionNotFound
		}
		session := current.Sessions[idx]
		session.Shots = append([]Shot{}, session.Shots...)
		next, err := fn(session)
		if err != nil {
			return current, err
		}
		next.ID = id
		current.Sessions[idx] = next
		updated = next
		return current, nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("dryfire: update session %s: %w", id, err)
	}
	return updated, nil
}

// RecordResult grades repetition rep (zero based). Grading the last
// repetition completes the session.
func (t *Tracker) RecordResult(ctx context.Context, id string, rep int, result Result) (Session, error) {
	if !result.Valid() {
		return Session{}, fmt.Errorf("dryfire: unknown result %q", result)
	}
	return t.UpdateSession(ctx, id, func(session Session) (Session, error) {
		if rep < 0 || rep >= len(session.Shots) {
			return session, fmt.Errorf("%w: %d of %d", ErrRepOutOfRange, rep, len(session.Shots))
		}
		session.Shots[rep] = Shot{Result: ptr(result)}
		if rep+1 >= len(session.Shots) {
			session.Completed = true
		}
		return session, nil
	})
}

// CompleteSession marks the session completed.
func (t *Tracker) CompleteSession(ctx context.Context, id string) error {
	_, err := t.UpdateSession(ctx, id, func(session Session) (Session, error) {
		session.Completed = true
		return session, nil
	})
	return err
}

// DeleteSession removes the session with id. Unknown ids are ignored.
func (t *Tracker) DeleteSession(ctx context.Context, id string) error {
	_, err := t.binding.Update(ctx, func(current Data) (Data, error) {
		sessions := make([]Session, 0, len(current.Sessions))
		for _, session := range current.Sessions {
			if session.ID != id {
				sessions = append(sessions, session)
			}
		}
		current.Sessions = sessions
		return current, nil
	})
	return err
}

// SetChaosMode toggles random distraction shots during repetitions.
func (t *Tracker) SetChaosMode(ctx context.Context, enabled bool) error {
	_, err := t.binding.Update(ctx, func(current Data) (Data, error) {
		current.ChaosMode = enabled
		return current, nil
	})
	return err
}

// Export returns the stored string.
func (t *Tracker) Export(ctx context.Context) (string, error) {
	return t.binding.Export(ctx)
}

// Import replaces the stored data with serialized, upgrading older
// generations. The trace reports whether serialized was usable.
func (t *Tracker) Import(ctx context.Context, serialized string) (Data, versioned.Trace, error) {
	return t.binding.Import(ctx, serialized)
}

func drillIndex(data Data, id string) int {
	for i, drill := range data.Drills {
		if drill.ID == id {
			return i
		}
	}
	return -1
}

func sessionIndex(data Data, id string) int {
	for i, session := range data.Sessions {
		if session.ID == id {
			return i
		}
	}
	return -1
}

func hasSessions(data Data, drillID string) bool {
	for _, session := range data.Sessions {
		if session.DrillID == drillID {
			return true
		}
	}
	return false
}

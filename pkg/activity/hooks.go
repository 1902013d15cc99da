package activity

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Event describes something that happened to a stored value: a load that
// fell back to defaults, a migration, a save. IDs are stringly-typed to avoid
// coupling call sites to specific UUID types.
type Event struct {
	Verb       string
	ActorID    string
	UserID     string
	TenantID   string
	ObjectType string
	ObjectID   string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivityHook receives normalized activity events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []ActivityHook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards the event to all hooks, returning a joined error if any fail.
// Events without a verb or object are dropped.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if !normalized.Valid() {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Valid reports whether the event names a verb and the object it happened to.
func (e Event) Valid() bool {
	return e.Verb != "" && e.ObjectType != "" && e.ObjectID != ""
}

// NormalizeEvent trims whitespace, clones metadata, and ensures a timestamp
// is present. Events with an object id but no type are key events. A key
// event whose id is namespaced ("user-1/dry-fire-trainer") gets its
// namespace and bare key recorded in metadata.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.Verb = strings.TrimSpace(event.Verb)
	normalized.ActorID = strings.TrimSpace(event.ActorID)
	normalized.UserID = strings.TrimSpace(event.UserID)
	normalized.TenantID = strings.TrimSpace(event.TenantID)
	normalized.ObjectType = strings.TrimSpace(event.ObjectType)
	normalized.ObjectID = strings.TrimSpace(event.ObjectID)
	normalized.Channel = strings.TrimSpace(event.Channel)
	normalized.Metadata = cloneMap(event.Metadata)
	if normalized.ObjectType == "" && normalized.ObjectID != "" {
		normalized.ObjectType = ObjectTypeKey
	}
	if normalized.ObjectType == ObjectTypeKey {
		normalized.Metadata = splitNamespacedKey(normalized.ObjectID, normalized.Metadata)
	}
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

// splitNamespacedKey records the namespace and key of a "namespace/key"
// object id. Values already present in meta win.
func splitNamespacedKey(objectID string, meta map[string]any) map[string]any {
	idx := strings.LastIndex(objectID, "/")
	if idx <= 0 || idx == len(objectID)-1 {
		return meta
	}
	meta = ensureMetadata(meta)
	if _, ok := meta["namespace"]; !ok {
		meta["namespace"] = objectID[:idx]
	}
	if _, ok := meta["key"]; !ok {
		meta["key"] = objectID[idx+1:]
	}
	return meta
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}

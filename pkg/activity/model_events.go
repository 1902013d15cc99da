package activity

import (
	"strings"
	"time"
)

// Verbs emitted for stored model values.
const (
	VerbFallback = "versioned.fallback"
	VerbMigrated = "versioned.migrated"
	VerbSaved    = "versioned.saved"
	VerbImported = "versioned.imported"
	VerbCleared  = "versioned.cleared"
	VerbAdopted  = "versioned.adopted"
)

// ObjectTypeKey is the object type of events about a storage key.
const ObjectTypeKey = "versioned.key"

// ModelEventInput describes the common fields for stored value events.
type ModelEventInput struct {
	ActorID       string
	UserID        string
	TenantID      string
	Channel       string
	Key           string
	Model         string
	Version       int
	SourceVersion int
	Applied       []int
	Reason        string
	Error         string
	Metadata      map[string]any
	OccurredAt    time.Time
}

// BuildFallbackEvent describes a load that replaced stored data with the
// model default.
func BuildFallbackEvent(input ModelEventInput) Event {
	return buildModelEvent(VerbFallback, input)
}

// BuildMigratedEvent describes a load that upgraded stored data.
func BuildMigratedEvent(input ModelEventInput) Event {
	return buildModelEvent(VerbMigrated, input)
}

// BuildSavedEvent describes a write.
func BuildSavedEvent(input ModelEventInput) Event {
	return buildModelEvent(VerbSaved, input)
}

// BuildImportedEvent describes a write of externally supplied data.
func BuildImportedEvent(input ModelEventInput) Event {
	return buildModelEvent(VerbImported, input)
}

// BuildClearedEvent describes a deleted key.
func BuildClearedEvent(input ModelEventInput) Event {
	return buildModelEvent(VerbCleared, input)
}

// BuildAdoptedEvent describes data moved over from a legacy key.
func BuildAdoptedEvent(input ModelEventInput) Event {
	return buildModelEvent(VerbAdopted, input)
}

func buildModelEvent(verb string, input ModelEventInput) Event {
	metadata := cloneMap(input.Metadata)
	metadata = ensureMetadata(metadata)
	metadata["version"] = input.Version
	if input.Model != "" {
		metadata["model"] = input.Model
	}
	if verb == VerbFallback || verb == VerbMigrated {
		metadata["source_version"] = input.SourceVersion
	}
	if len(input.Applied) > 0 {
		metadata["applied"] = append([]int{}, input.Applied...)
	}
	if input.Reason != "" {
		metadata["reason"] = input.Reason
	}
	if input.Error != "" {
		metadata["error"] = input.Error
	}

	objectID := strings.TrimSpace(input.Key)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Model)
	}
	if objectID == "" {
		objectID = ObjectTypeKey
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: ObjectTypeKey,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}

package versioned

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownVersion is reported when a stored envelope names a version the
	// handle cannot reach.
	ErrUnknownVersion = errors.New("versioned: unknown model version")
	// ErrMissingMigration is reported when a step after version 0 has no
	// migration function.
	ErrMissingMigration = errors.New("versioned: missing migration")
	// ErrMigrationType is reported when a migration receives a value of an
	// unexpected type, which happens when a chain was extended from a handle
	// that was not the latest one.
	ErrMigrationType = errors.New("versioned: migration input has unexpected type")
)

// ValidationError reports a value that does not satisfy the schema of a
// specific version. It is returned by Serialize and Verify.
type ValidationError struct {
	Model   string
	Version int
	Err     error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("versioned: %s v%d: validation failed: %v", describeModel(e.Model), e.Version, e.Err)
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Reason classifies why Parse fell back to the default value.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonMalformedJSON     Reason = "malformed_json"
	ReasonUnknownVersion    Reason = "unknown_version"
	ReasonSchemaMismatch    Reason = "schema_mismatch"
	ReasonMissingMigration  Reason = "missing_migration"
	ReasonMigrationFailed   Reason = "migration_failed"
	ReasonMigrationPanicked Reason = "migration_panicked"
	// ReasonInvalidDefault is reported alongside another reason when the
	// handle's own default does not satisfy its own schema.
	ReasonInvalidDefault Reason = "invalid_default"
)

// recoverable is the internal error kind for data that cannot be trusted.
// It never leaves the package: Parse turns it into a fallback.
type recoverable struct {
	reason  Reason
	version int
	err     error
}

func (e *recoverable) Error() string {
	return fmt.Sprintf("versioned: %s at v%d: %v", e.reason, e.version, e.err)
}

func (e *recoverable) Unwrap() error {
	return e.err
}

func dataError(reason Reason, version int, err error) *recoverable {
	return &recoverable{reason: reason, version: version, err: err}
}

func describeModel(name string) string {
	if name == "" {
		return "model"
	}
	return fmt.Sprintf("model %q", name)
}

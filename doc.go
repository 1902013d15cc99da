// Package versioned keeps locally persisted data readable across schema
// changes. A Model is a chain of generations, each with a schema, a default
// value and, after the first, a migration from the generation before it.
// Parse never fails: stored data that is malformed, from an unknown version
// or invalid at any step is replaced by the handle's default.
package versioned

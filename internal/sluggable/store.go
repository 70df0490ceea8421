package sluggable

import "context"

// Entity is the view of a record the resolver and the hook work against.
type Entity interface {
	// Get returns the value stored in the named column.
	Get(field string) (any, error)
	// Set writes the named column on the in-memory record.
	Set(field string, value any) error
	// IsNew reports whether the record was inserted by the save that triggered the hook.
	IsNew() bool
	// IsDirty reports whether the triggering save wrote the row.
	IsDirty() bool
}

// VersioningInfo describes how a versioned table marks its current rows.
type VersioningInfo struct {
	// ValidityField holds the validity marker, e.g. "valid_until".
	ValidityField string
	// Current is the marker value of the current version.
	Current any
	// RevisionField is the primary key component that numbers versions. It is left
	// out of identity comparisons so every version of a record is excluded at once.
	RevisionField string
}

// Versioned is implemented by record types that keep superseded versions as rows.
type Versioned interface {
	VersioningInfo() VersioningInfo
}

// Filter is a conjunction of predicates over one table.
type Filter struct {
	// Equal requires column = value for every entry.
	Equal map[string]any
	// Regexp requires column REGEXP pattern for every entry.
	Regexp map[string]string
	// Exclude removes rows matching all entries at once: NOT (a = ? AND b = ?).
	Exclude map[string]any
}

// Store is the persistence surface the slug logic needs from one table.
type Store interface {
	Count(ctx context.Context, filter Filter) (int64, error)
	// Query returns the given column of every matching row.
	Query(ctx context.Context, filter Filter, column, orderBy string) ([]string, error)
	// First loads the first matching row into dest.
	First(ctx context.Context, filter Filter, dest any) error
	// Pluck returns key column → value column for every matching row.
	Pluck(ctx context.Context, filter Filter, key, value string) (map[string]string, error)
	Save(ctx context.Context, entity Entity) error
	// RawSave writes the record without running hooks or creating a version.
	RawSave(ctx context.Context, entity Entity) error
	PrimaryKeyFields() []string
}

// Substitutor turns a naming pattern and a record into a raw slug candidate.
type Substitutor interface {
	Generate(pattern string, entity Entity, replacement string) (string, error)
}

// SubstitutorFunc adapts a function to the Substitutor interface.
type SubstitutorFunc func(pattern string, entity Entity, replacement string) (string, error)

// Generate calls f.
func (f SubstitutorFunc) Generate(pattern string, entity Entity, replacement string) (string, error) {
	return f(pattern, entity, replacement)
}

package sluggable

import "context"

// variant captures what differs between plain and versioned records.
type variant interface {
	// keep reports whether the stored slug is returned without recomputing it.
	keep(entity Entity, stored string) bool
	// exclusionFields picks the identity columns that exclude the record from its own
	// collision count.
	exclusionFields(primaryKey []string) []string
	// currentFilter restricts lookups to the rows that take part in uniqueness.
	currentFilter() map[string]any
	// persist performs the follow-up write of a changed slug.
	persist(ctx context.Context, store Store, entity Entity) error
}

type plainVariant struct{}

// A saved plain record keeps its slug once it has one.
func (plainVariant) keep(entity Entity, stored string) bool {
	return !entity.IsNew() && stored != ""
}

func (plainVariant) exclusionFields(primaryKey []string) []string {
	return primaryKey
}

func (plainVariant) currentFilter() map[string]any {
	return nil
}

func (plainVariant) persist(ctx context.Context, store Store, entity Entity) error {
	return store.Save(ctx, entity)
}

type versionedVariant struct {
	info VersioningInfo
}

// Existing versions never change their slug, blank or not.
func (versionedVariant) keep(entity Entity, _ string) bool {
	return !entity.IsNew()
}

func (v versionedVariant) exclusionFields(primaryKey []string) []string {
	fields := make([]string, 0, len(primaryKey))
	for _, field := range primaryKey {
		if field == v.info.RevisionField {
			continue
		}
		fields = append(fields, field)
	}
	return fields
}

func (v versionedVariant) currentFilter() map[string]any {
	if v.info.ValidityField == "" {
		return nil
	}
	return map[string]any{v.info.ValidityField: v.info.Current}
}

// The follow-up write must not create another version or re-enter the hook.
func (versionedVariant) persist(ctx context.Context, store Store, entity Entity) error {
	return store.RawSave(ctx, entity)
}

func variantOf(record any) variant {
	if versioned, ok := record.(Versioned); ok {
		return versionedVariant{info: versioned.VersioningInfo()}
	}
	return plainVariant{}
}

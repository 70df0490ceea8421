package sluggable

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Behavior bundles the slug settings of one table with the substitutor that builds
// candidates. It is safe for concurrent use; every call receives the Store of the
// transaction it runs in.
type Behavior struct {
	config      Config
	substitutor Substitutor
	logger      *logrus.Logger
}

// NewBehavior validates cfg and returns a Behavior. The logger may be nil.
func NewBehavior(cfg Config, substitutor Substitutor, logger *logrus.Logger) (*Behavior, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if substitutor == nil {
		return nil, eris.New("slug substitutor is required")
	}

	return &Behavior{config: cfg, substitutor: substitutor, logger: logger}, nil
}

// Config returns a copy of the settings.
func (b *Behavior) Config() Config {
	return b.config
}

// Resolver binds the behavior to store.
func (b *Behavior) Resolver(store Store) (*Resolver, error) {
	return NewResolver(b.config, b.substitutor, store)
}

// AfterSave runs once a record has been written. It stores the resolved slug on the
// entity and, when the slug changed on a row that was actually written, issues one
// follow-up write. That write re-enters AfterSave for plain records and finds the slug
// unchanged; versioned records use the raw path, which skips the hook.
func (b *Behavior) AfterSave(ctx context.Context, store Store, entity Entity) error {
	resolver, err := b.Resolver(store)
	if err != nil {
		return err
	}
	if entity == nil {
		return eris.New("entity is required")
	}

	field := b.config.Field
	original, err := fieldString(entity, field)
	if err != nil {
		return err
	}

	slug, err := resolver.Resolve(ctx, entity)
	if err != nil {
		b.logError(logrus.Fields{"slug": original}, err, "resolving slug")
		return err
	}

	if err := entity.Set(field, slug); err != nil {
		return eris.Wrapf(err, "setting slug field %s", field)
	}

	if !entity.IsDirty() || slug == original {
		return nil
	}

	if err := variantOf(entity).persist(ctx, store, entity); err != nil {
		wrapped := storageError("saving resolved slug", err)
		b.logError(logrus.Fields{"slug": slug}, wrapped, "persisting resolved slug")
		return wrapped
	}

	if b.logger != nil {
		b.logger.WithFields(logrus.Fields{
			"component": "sluggable",
			"slug":      slug,
			"previous":  original,
		}).Debug("slug assigned")
	}

	return nil
}

func (b *Behavior) logError(fields logrus.Fields, err error, message string) {
	if b.logger == nil || err == nil {
		return
	}

	entry := b.logger.WithField("error", err.Error()).WithField("component", "sluggable")
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

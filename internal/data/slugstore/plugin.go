package slugstore

import (
	"context"
	"reflect"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"slugwiki/app/internal/sluggable"
)

const (
	pluginName         = "slugwiki:sluggable"
	createCallbackName = "slugwiki:sluggable_after_create"
	updateCallbackName = "slugwiki:sluggable_after_update"
)

// Plugin runs the slug hook of registered models after every create and update. The
// callbacks sit in front of the commit step so a failing hook rolls the save back.
type Plugin struct {
	mu        sync.RWMutex
	behaviors map[reflect.Type]*sluggable.Behavior
	logger    *logrus.Logger
}

var _ gorm.Plugin = (*Plugin)(nil)

// NewPlugin constructs an empty plugin. The logger may be nil.
func NewPlugin(logger *logrus.Logger) *Plugin {
	return &Plugin{behaviors: make(map[reflect.Type]*sluggable.Behavior), logger: logger}
}

// Register attaches behavior to the model type of model.
func (p *Plugin) Register(model any, behavior *sluggable.Behavior) error {
	if model == nil {
		return eris.New("model is required")
	}
	if behavior == nil {
		return eris.New("slug behavior is required")
	}

	modelType := indirectType(reflect.TypeOf(model))
	if modelType.Kind() != reflect.Struct {
		return eris.Errorf("model %T must be a struct", model)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.behaviors[modelType] = behavior

	return nil
}

// Behavior returns the behavior registered for the type of model.
func (p *Plugin) Behavior(model any) (*sluggable.Behavior, bool) {
	if model == nil {
		return nil, false
	}
	return p.behaviorFor(indirectType(reflect.TypeOf(model)))
}

func (p *Plugin) Name() string {
	return pluginName
}

func (p *Plugin) Initialize(db *gorm.DB) error {
	err := db.Callback().Create().
		After("gorm:after_create").
		Before("gorm:commit_or_rollback_transaction").
		Register(createCallbackName, func(tx *gorm.DB) { p.afterSave(tx, true) })
	if err != nil {
		return eris.Wrap(err, "registering create callback")
	}

	err = db.Callback().Update().
		After("gorm:after_update").
		Before("gorm:commit_or_rollback_transaction").
		Register(updateCallbackName, func(tx *gorm.DB) { p.afterSave(tx, false) })
	if err != nil {
		return eris.Wrap(err, "registering update callback")
	}

	return nil
}

// FindSlugged loads the record of dest's model carrying slug into dest.
func (p *Plugin) FindSlugged(ctx context.Context, db *gorm.DB, slug string, dest any) error {
	behavior, store, err := p.bind(db, dest)
	if err != nil {
		return err
	}
	return behavior.FindSlugged(ctx, store, slug, dest)
}

// FindSluggedList maps every slug of model's table to its displayField.
func (p *Plugin) FindSluggedList(ctx context.Context, db *gorm.DB, model any, displayField string) (map[string]string, error) {
	behavior, store, err := p.bind(db, model)
	if err != nil {
		return nil, err
	}
	return behavior.FindSluggedList(ctx, store, model, displayField)
}

func (p *Plugin) bind(db *gorm.DB, model any) (*sluggable.Behavior, *Store, error) {
	behavior, ok := p.Behavior(model)
	if !ok {
		return nil, nil, eris.Wrapf(sluggable.ErrConfiguration, "model %T is not sluggable", model)
	}

	store, err := New(db, model)
	if err != nil {
		return nil, nil, err
	}

	return behavior, store, nil
}

func (p *Plugin) afterSave(db *gorm.DB, isNew bool) {
	if db.Error != nil || db.Statement.Schema == nil || db.Statement.SkipHooks {
		return
	}

	sch := db.Statement.Schema
	behavior, ok := p.behaviorFor(sch.ModelType)
	if !ok {
		return
	}

	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}

	store := newStore(db.Session(&gorm.Session{NewDB: true}), sch)
	dirty := db.Statement.RowsAffected > 0

	rv := reflect.Indirect(db.Statement.ReflectValue)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := p.slug(ctx, behavior, store, rv.Index(i), isNew, dirty); err != nil {
				_ = db.AddError(err)
				return
			}
		}
	case reflect.Struct:
		if err := p.slug(ctx, behavior, store, rv, isNew, dirty); err != nil {
			_ = db.AddError(err)
		}
	}
}

func (p *Plugin) slug(ctx context.Context, behavior *sluggable.Behavior, store *Store, value reflect.Value, isNew, dirty bool) error {
	value = reflect.Indirect(value)
	if value.Kind() != reflect.Struct || !value.CanAddr() {
		return nil
	}

	entity, err := Wrap(ctx, store.schema, value, isNew, dirty)
	if err != nil {
		return err
	}

	// Batch updates without a loaded record carry no identity to slug.
	if base, _ := unwrap(entity); base == nil || !base.hasPrimaryKey() {
		return nil
	}

	if err := behavior.AfterSave(ctx, store, entity); err != nil {
		if p.logger != nil {
			p.logger.WithFields(logrus.Fields{
				"component": "slugstore",
				"table":     store.schema.Table,
				"error":     err.Error(),
			}).Error("slug hook failed")
		}
		return err
	}

	return nil
}

func (p *Plugin) behaviorFor(modelType reflect.Type) (*sluggable.Behavior, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	behavior, ok := p.behaviors[modelType]
	return behavior, ok
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	return t
}

package slugstore

import (
	"context"
	"reflect"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"slugwiki/app/internal/sluggable"
)

// Entity exposes a gorm model value to the slug logic through its parsed schema.
// Columns written through Set are remembered so Store.Save only writes those.
type Entity struct {
	ctx     context.Context
	schema  *schema.Schema
	value   reflect.Value
	isNew   bool
	dirty   bool
	changed []string
}

type versionedEntity struct {
	*Entity
	info sluggable.VersioningInfo
}

func (e *versionedEntity) VersioningInfo() sluggable.VersioningInfo {
	return e.info
}

// Wrap adapts the addressable struct value of a model described by sch. Models that
// implement sluggable.Versioned come back as versioned entities.
func Wrap(ctx context.Context, sch *schema.Schema, value reflect.Value, isNew, dirty bool) (sluggable.Entity, error) {
	if sch == nil {
		return nil, eris.New("schema is required")
	}

	value = reflect.Indirect(value)
	if value.Kind() != reflect.Struct || !value.CanAddr() {
		return nil, eris.Errorf("model %s must be an addressable struct", sch.Name)
	}

	entity := &Entity{ctx: ctx, schema: sch, value: value, isNew: isNew, dirty: dirty}

	if versioned, ok := entity.Model().(sluggable.Versioned); ok {
		return &versionedEntity{Entity: entity, info: versioned.VersioningInfo()}, nil
	}

	return entity, nil
}

// EntityOf parses the schema of model, a pointer to a struct, and wraps it.
func EntityOf(ctx context.Context, db *gorm.DB, model any, isNew, dirty bool) (sluggable.Entity, error) {
	sch, err := parseSchema(db, model)
	if err != nil {
		return nil, err
	}

	return Wrap(ctx, sch, reflect.ValueOf(model), isNew, dirty)
}

func (e *Entity) Get(field string) (any, error) {
	f := e.schema.LookUpField(field)
	if f == nil {
		return nil, eris.Errorf("model %s has no field %s", e.schema.Name, field)
	}

	value, _ := f.ValueOf(e.ctx, e.value)
	return value, nil
}

func (e *Entity) Set(field string, value any) error {
	f := e.schema.LookUpField(field)
	if f == nil {
		return eris.Errorf("model %s has no field %s", e.schema.Name, field)
	}

	if err := f.Set(e.ctx, e.value, value); err != nil {
		return eris.Wrapf(err, "setting %s.%s", e.schema.Name, field)
	}

	for _, name := range e.changed {
		if name == f.DBName {
			return nil
		}
	}
	e.changed = append(e.changed, f.DBName)

	return nil
}

func (e *Entity) IsNew() bool   { return e.isNew }
func (e *Entity) IsDirty() bool { return e.dirty }

// Model returns a pointer to the wrapped struct.
func (e *Entity) Model() any {
	return e.value.Addr().Interface()
}

// Changed lists the columns written through Set.
func (e *Entity) Changed() []string {
	return append([]string(nil), e.changed...)
}

func (e *Entity) hasPrimaryKey() bool {
	if len(e.schema.PrimaryFields) == 0 {
		return false
	}
	for _, field := range e.schema.PrimaryFields {
		if _, zero := field.ValueOf(e.ctx, e.value); zero {
			return false
		}
	}
	return true
}

func unwrap(entity sluggable.Entity) (*Entity, error) {
	switch e := entity.(type) {
	case *Entity:
		return e, nil
	case *versionedEntity:
		return e.Entity, nil
	default:
		return nil, eris.Errorf("unsupported entity %T", entity)
	}
}

func parseSchema(db *gorm.DB, model any) (*schema.Schema, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}
	if model == nil {
		return nil, eris.New("model is required")
	}

	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return nil, eris.Wrapf(err, "parsing schema of %T", model)
	}

	return stmt.Schema, nil
}

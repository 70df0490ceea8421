package slugstore

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"slugwiki/app/internal/sluggable"
)

// Store implements sluggable.Store over the table of one gorm model. Collision
// lookups read the raw table, soft-deleted rows included, because those rows still
// hold their slug in the unique index. Lookups that return records honour the model's
// default scopes.
type Store struct {
	db     *gorm.DB
	schema *schema.Schema
	model  any
}

var _ sluggable.Store = (*Store)(nil)

// New returns a Store for the table of model.
func New(db *gorm.DB, model any) (*Store, error) {
	sch, err := parseSchema(db, model)
	if err != nil {
		return nil, err
	}

	return newStore(db, sch), nil
}

func newStore(db *gorm.DB, sch *schema.Schema) *Store {
	return &Store{
		db:     db,
		schema: sch,
		model:  reflect.New(sch.ModelType).Interface(),
	}
}

func (s *Store) Count(ctx context.Context, filter sluggable.Filter) (int64, error) {
	var count int64
	if err := s.table(ctx, filter).Count(&count).Error; err != nil {
		return 0, eris.Wrapf(err, "counting rows of %s", s.schema.Table)
	}

	return count, nil
}

func (s *Store) Query(ctx context.Context, filter sluggable.Filter, column, orderBy string) ([]string, error) {
	tx := s.table(ctx, filter)
	if orderBy != "" {
		tx = tx.Order(orderBy)
	}

	var values []string
	if err := tx.Pluck(column, &values).Error; err != nil {
		return nil, eris.Wrapf(err, "querying %s of %s", column, s.schema.Table)
	}

	return values, nil
}

func (s *Store) First(ctx context.Context, filter sluggable.Filter, dest any) error {
	err := applyFilter(s.session(ctx), filter).First(dest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return eris.Wrapf(sluggable.ErrNotFound, "no row of %s matched", s.schema.Table)
		}
		return eris.Wrapf(err, "loading row of %s", s.schema.Table)
	}

	return nil
}

func (s *Store) Pluck(ctx context.Context, filter sluggable.Filter, key, value string) (map[string]string, error) {
	tx := applyFilter(s.session(ctx).Model(s.model), filter).
		Select([]string{key, value}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: key}})

	rows, err := tx.Rows()
	if err != nil {
		return nil, eris.Wrapf(err, "listing %s of %s", key, s.schema.Table)
	}
	defer rows.Close()

	list := make(map[string]string)
	for rows.Next() {
		var k, v sql.NullString
		if err := rows.Scan(&k, &v); err != nil {
			return nil, eris.Wrapf(err, "scanning %s of %s", key, s.schema.Table)
		}
		list[k.String] = v.String
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "iterating %s of %s", key, s.schema.Table)
	}

	return list, nil
}

// Save writes the columns changed on entity through the regular update path, hooks
// included.
func (s *Store) Save(ctx context.Context, entity sluggable.Entity) error {
	return s.update(s.session(ctx), entity)
}

// RawSave writes the changed columns with hooks skipped, so no callback and no new
// version is triggered.
func (s *Store) RawSave(ctx context.Context, entity sluggable.Entity) error {
	return s.update(s.db.Session(&gorm.Session{NewDB: true, Context: ctx, SkipHooks: true}), entity)
}

func (s *Store) PrimaryKeyFields() []string {
	fields := make([]string, 0, len(s.schema.PrimaryFields))
	for _, field := range s.schema.PrimaryFields {
		fields = append(fields, field.DBName)
	}
	return fields
}

func (s *Store) update(tx *gorm.DB, entity sluggable.Entity) error {
	e, err := unwrap(entity)
	if err != nil {
		return err
	}

	columns := e.Changed()
	if len(columns) == 0 {
		return nil
	}
	if !e.hasPrimaryKey() {
		return eris.Errorf("cannot update %s without a primary key", s.schema.Table)
	}

	model := e.Model()
	if err := tx.Model(model).Select(columns).Updates(model).Error; err != nil {
		return eris.Wrapf(err, "updating %s of %s", strings.Join(columns, ", "), s.schema.Table)
	}

	return nil
}

func (s *Store) table(ctx context.Context, filter sluggable.Filter) *gorm.DB {
	return applyFilter(s.session(ctx).Table(s.schema.Table), filter)
}

// session starts from an empty statement. The store is built inside callbacks, where
// the handle still carries the statement of the triggering save.
func (s *Store) session(ctx context.Context) *gorm.DB {
	return s.db.Session(&gorm.Session{NewDB: true, Context: ctx})
}

func applyFilter(tx *gorm.DB, filter sluggable.Filter) *gorm.DB {
	for _, column := range sortedKeys(filter.Equal) {
		tx = tx.Where(clause.Eq{Column: clause.Column{Name: column}, Value: filter.Equal[column]})
	}

	for _, column := range sortedKeys(filter.Regexp) {
		tx = tx.Where(clause.Expr{
			SQL:  "? REGEXP ?",
			Vars: []any{clause.Column{Name: column}, filter.Regexp[column]},
		})
	}

	if len(filter.Exclude) > 0 {
		columns := sortedKeys(filter.Exclude)
		parts := make([]string, 0, len(columns))
		vars := make([]any, 0, len(columns)*2)
		for _, column := range columns {
			parts = append(parts, "? = ?")
			vars = append(vars, clause.Column{Name: column}, filter.Exclude[column])
		}
		tx = tx.Where(clause.Expr{SQL: "NOT (" + strings.Join(parts, " AND ") + ")", Vars: vars})
	}

	return tx
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Slugged is a gorm scope matching rows whose field column equals slug.
func Slugged(field, slug string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Eq{Column: clause.Column{Name: field}, Value: strings.TrimSpace(slug)})
	}
}

// IsUniqueViolation reports whether err was caused by a unique index.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// Raw driver errors surface when a connection is opened without TranslateError.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

package sluggable

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// memoryStore keeps rows as column maps and evaluates filters the way the SQL store does.
type memoryStore struct {
	primaryKey []string
	rows       []map[string]any

	counts   int
	queries  int
	saves    int
	rawSaves int

	countErr error
	queryErr error
	saveErr  error
}

var _ Store = (*memoryStore)(nil)

func newMemoryStore(primaryKey ...string) *memoryStore {
	if len(primaryKey) == 0 {
		primaryKey = []string{"id"}
	}
	return &memoryStore{primaryKey: primaryKey}
}

// insert stores the entity row, mimicking the write that precedes the hook.
func (s *memoryStore) insert(entity *fakeEntity) {
	s.rows = append(s.rows, copyRow(entity.fields))
}

func (s *memoryStore) Count(_ context.Context, filter Filter) (int64, error) {
	s.counts++
	if s.countErr != nil {
		return 0, s.countErr
	}
	var n int64
	for _, row := range s.rows {
		if matches(row, filter) {
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) Query(_ context.Context, filter Filter, column, _ string) ([]string, error) {
	s.queries++
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	var values []string
	for _, row := range s.rows {
		if matches(row, filter) {
			values = append(values, FormatValue(row[column]))
		}
	}
	return values, nil
}

func (s *memoryStore) First(_ context.Context, filter Filter, dest any) error {
	for _, row := range s.rows {
		if matches(row, filter) {
			switch target := dest.(type) {
			case *testRow:
				target.fields = copyRow(row)
			case *versionedTestRow:
				target.fields = copyRow(row)
			default:
				return eris.Errorf("unsupported destination %T", dest)
			}
			return nil
		}
	}
	return eris.Wrap(ErrNotFound, "no row matched")
}

func (s *memoryStore) Pluck(_ context.Context, filter Filter, key, value string) (map[string]string, error) {
	list := make(map[string]string)
	for _, row := range s.rows {
		if matches(row, filter) {
			list[FormatValue(row[key])] = FormatValue(row[value])
		}
	}
	return list, nil
}

func (s *memoryStore) Save(_ context.Context, entity Entity) error {
	s.saves++
	return s.write(entity)
}

func (s *memoryStore) RawSave(_ context.Context, entity Entity) error {
	s.rawSaves++
	return s.write(entity)
}

func (s *memoryStore) PrimaryKeyFields() []string {
	return s.primaryKey
}

func (s *memoryStore) write(entity Entity) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	fields := entityFields(entity)
	for i, row := range s.rows {
		same := true
		for _, pk := range s.primaryKey {
			if fmt.Sprint(row[pk]) != fmt.Sprint(fields[pk]) {
				same = false
				break
			}
		}
		if same {
			s.rows[i] = copyRow(fields)
			return nil
		}
	}
	s.rows = append(s.rows, copyRow(fields))
	return nil
}

func (s *memoryStore) slugs(column string) []string {
	values := make([]string, 0, len(s.rows))
	for _, row := range s.rows {
		values = append(values, FormatValue(row[column]))
	}
	return values
}

func matches(row map[string]any, filter Filter) bool {
	for column, value := range filter.Equal {
		if fmt.Sprint(row[column]) != fmt.Sprint(value) {
			return false
		}
	}
	for column, pattern := range filter.Regexp {
		if !regexp.MustCompile(pattern).MatchString(FormatValue(row[column])) {
			return false
		}
	}
	if len(filter.Exclude) > 0 {
		excluded := true
		for column, value := range filter.Exclude {
			if fmt.Sprint(row[column]) != fmt.Sprint(value) {
				excluded = false
				break
			}
		}
		if excluded {
			return false
		}
	}
	return true
}

func copyRow(row map[string]any) map[string]any {
	copied := make(map[string]any, len(row))
	for k, v := range row {
		copied[k] = v
	}
	return copied
}

type fakeEntity struct {
	fields map[string]any
	isNew  bool
	dirty  bool
}

var _ Entity = (*fakeEntity)(nil)

func newEntity(id any, name string) *fakeEntity {
	return &fakeEntity{
		fields: map[string]any{"id": id, "name": name, "slug": ""},
		isNew:  true,
		dirty:  true,
	}
}

func (e *fakeEntity) Get(field string) (any, error) {
	value, ok := e.fields[field]
	if !ok {
		return nil, eris.Errorf("unknown field %s", field)
	}
	return value, nil
}

func (e *fakeEntity) Set(field string, value any) error {
	e.fields[field] = value
	return nil
}

func (e *fakeEntity) IsNew() bool   { return e.isNew }
func (e *fakeEntity) IsDirty() bool { return e.dirty }

type fakeVersionedEntity struct {
	*fakeEntity
}

var _ Versioned = (*fakeVersionedEntity)(nil)

const currentMarker = "0000-00-00 00:00:00"

func (fakeVersionedEntity) VersioningInfo() VersioningInfo {
	return revisionInfo
}

var revisionInfo = VersioningInfo{
	ValidityField: "valid_until",
	Current:       currentMarker,
	RevisionField: "revision",
}

func newRevision(documentID string, revision int, name, validUntil string) *fakeVersionedEntity {
	return &fakeVersionedEntity{fakeEntity: &fakeEntity{
		fields: map[string]any{
			"document_id": documentID,
			"revision":    revision,
			"name":        name,
			"slug":        "",
			"valid_until": validUntil,
		},
		isNew: true,
		dirty: true,
	}}
}

func entityFields(entity Entity) map[string]any {
	switch e := entity.(type) {
	case *fakeEntity:
		return e.fields
	case *fakeVersionedEntity:
		return e.fields
	default:
		return nil
	}
}

// testRow is a finder destination for the memory store.
type testRow struct {
	fields map[string]any
}

type versionedTestRow struct {
	testRow
}

func (versionedTestRow) VersioningInfo() VersioningInfo {
	return revisionInfo
}

// lowerSubstitutor replaces ":field" tokens and lowercases, enough for resolver tests.
var lowerSubstitutor = SubstitutorFunc(func(pattern string, entity Entity, replacement string) (string, error) {
	field := strings.TrimPrefix(pattern, ":")
	value, err := entity.Get(field)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(strings.ToLower(FormatValue(value)), " ", replacement), nil
})

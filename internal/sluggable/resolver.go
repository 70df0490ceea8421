package sluggable

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Resolver computes the final slug of one record against one table.
type Resolver struct {
	config      Config
	substitutor Substitutor
	store       Store
}

// NewResolver validates its inputs and returns a Resolver bound to store.
func NewResolver(cfg Config, substitutor Substitutor, store Store) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if substitutor == nil {
		return nil, eris.New("slug substitutor is required")
	}
	if store == nil {
		return nil, eris.New("slug store is required")
	}

	return &Resolver{config: cfg, substitutor: substitutor, store: store}, nil
}

// Resolve returns the slug the record should carry. It never writes.
func (r *Resolver) Resolve(ctx context.Context, entity Entity) (string, error) {
	if err := r.config.Validate(); err != nil {
		return "", err
	}
	if entity == nil {
		return "", eris.New("entity is required")
	}

	stored, err := fieldString(entity, r.config.Field)
	if err != nil {
		return "", err
	}

	if stored != "" && !r.config.Overwrite {
		return stored, nil
	}

	v := variantOf(entity)
	if v.keep(entity, stored) {
		return stored, nil
	}

	candidate, err := r.substitutor.Generate(r.config.Pattern, entity, r.config.Replacement)
	if err != nil {
		return "", &SubstitutionError{Pattern: r.config.Pattern, Err: err}
	}

	if hasNumericSuffix(stored, candidate) {
		return stored, nil
	}

	identity, err := r.identity(entity, v)
	if err != nil {
		return "", err
	}

	collisions := Filter{
		Equal:   mergeEqual(map[string]any{r.config.Field: candidate}, v.currentFilter()),
		Exclude: identity,
	}

	count, err := r.store.Count(ctx, collisions)
	if err != nil {
		return "", storageError("counting slug collisions", err)
	}
	if count == 0 {
		return candidate, nil
	}

	suffix, err := r.nextSuffix(ctx, candidate, v)
	if err != nil {
		return "", err
	}

	return candidate + "-" + strconv.Itoa(suffix), nil
}

func (r *Resolver) identity(entity Entity, v variant) (map[string]any, error) {
	fields := v.exclusionFields(r.store.PrimaryKeyFields())
	if len(fields) == 0 {
		return nil, nil
	}

	identity := make(map[string]any, len(fields))
	for _, field := range fields {
		value, err := entity.Get(field)
		if err != nil {
			return nil, eris.Wrapf(err, "reading primary key field %s", field)
		}
		identity[field] = value
	}

	return identity, nil
}

func (r *Resolver) nextSuffix(ctx context.Context, candidate string, v variant) (int, error) {
	filter := Filter{
		Equal:  v.currentFilter(),
		Regexp: map[string]string{r.config.Field: SuffixPattern(candidate)},
	}

	slugs, err := r.store.Query(ctx, filter, r.config.Field, r.config.Field+" ASC")
	if err != nil {
		return 0, storageError("querying suffixed slugs", err)
	}

	suffixes := make([]int, 0, len(slugs))
	for _, slug := range slugs {
		if n, ok := numericSuffix(slug, candidate); ok {
			suffixes = append(suffixes, n)
		}
	}
	slices.Sort(suffixes)

	return NextSuffix(r.config.Suffix, suffixes), nil
}

// NextSuffix picks the suffix for a colliding candidate from the ascending suffixes
// already in use.
func NextSuffix(strategy SuffixStrategy, suffixes []int) int {
	if strategy == SuffixRowCount {
		if len(suffixes) == 0 {
			return 2
		}
		return len(suffixes) + 2
	}

	next := 2
	if n := len(suffixes); n > 0 && suffixes[n-1]+1 > next {
		next = suffixes[n-1] + 1
	}
	return next
}

// SuffixPattern matches every suffixed form of candidate and nothing else.
func SuffixPattern(candidate string) string {
	return "^" + regexp.QuoteMeta(candidate) + "-[0-9]+$"
}

// hasNumericSuffix reports whether slug is candidate followed by "-" and digits only.
func hasNumericSuffix(slug, candidate string) bool {
	rest, ok := strings.CutPrefix(slug, candidate+"-")
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// numericSuffix parses the suffix of a slug accepted by hasNumericSuffix.
// Suffixes too large for an int are reported as absent.
func numericSuffix(slug, candidate string) (int, bool) {
	if !hasNumericSuffix(slug, candidate) {
		return 0, false
	}
	n, err := strconv.Atoi(slug[len(candidate)+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

func fieldString(entity Entity, field string) (string, error) {
	value, err := entity.Get(field)
	if err != nil {
		return "", eris.Wrapf(err, "reading slug field %s", field)
	}
	return FormatValue(value), nil
}

// FormatValue renders a column value as text. Nil pointers render empty.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func mergeEqual(base, extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return base
	}
	merged := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

package sluggable

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// FindSlugged loads the row carrying slug into dest. Versioned models only match their
// current row. A missing row yields ErrNotFound.
func (b *Behavior) FindSlugged(ctx context.Context, store Store, slug string, dest any) error {
	if store == nil {
		return eris.New("slug store is required")
	}

	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return eris.New("slug is required")
	}

	filter := Filter{
		Equal: mergeEqual(map[string]any{b.config.Field: trimmed}, variantOf(dest).currentFilter()),
	}

	if err := store.First(ctx, filter, dest); err != nil {
		if eris.Is(err, ErrNotFound) {
			return err
		}
		return storageError("finding slugged record", err)
	}

	return nil
}

// FindSluggedList maps every slug of the table to its displayField, for option lists
// keyed by slug instead of primary key. model selects the current-row restriction.
func (b *Behavior) FindSluggedList(ctx context.Context, store Store, model any, displayField string) (map[string]string, error) {
	if store == nil {
		return nil, eris.New("slug store is required")
	}
	if strings.TrimSpace(displayField) == "" {
		return nil, eris.New("display field is required")
	}

	filter := Filter{Equal: variantOf(model).currentFilter()}

	list, err := store.Pluck(ctx, filter, b.config.Field, displayField)
	if err != nil {
		return nil, storageError("listing slugged records", err)
	}

	return list, nil
}

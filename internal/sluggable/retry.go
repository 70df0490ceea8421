package sluggable

import (
	"context"

	"github.com/rotisserie/eris"
)

// RetryOnConflict runs save until it succeeds, fails with an error isConflict does not
// recognise, or attempts run out. The resolver reads before the follow-up write
// happens, so two concurrent saves can pick the same suffix; a unique index on the slug
// column rejects the loser and this loop lets it resolve again. save must rebuild its
// record on every call because a failed attempt leaves the stale slug on it.
func RetryOnConflict(ctx context.Context, attempts int, isConflict func(error) bool, save func(ctx context.Context) error) error {
	if save == nil {
		return eris.New("save function is required")
	}
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return eris.Wrap(ctxErr, "retrying slugged save")
		}

		err = save(ctx)
		if err == nil || isConflict == nil || !isConflict(err) {
			return err
		}
	}

	return eris.Wrapf(err, "slug still conflicting after %d attempts", attempts)
}

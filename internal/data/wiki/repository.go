package wiki

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"slugwiki/app/internal/data/slugstore"
	domainwiki "slugwiki/app/internal/domain/wiki"
	"slugwiki/app/internal/sluggable"
)

// saveAttempts bounds how often a save is retried after losing a slug race.
const saveAttempts = 3

// Repository persists wiki pages and document revisions using a Gorm database
// connection. Slugs are assigned by the sluggable plugin during each save.
type Repository struct {
	db      *gorm.DB
	plugin  *slugstore.Plugin
	logger  *logrus.Logger
	now     func() time.Time
	newUUID func() string
}

// NewRepository constructs a Gorm-backed repository implementation. The plugin must
// already be installed on db with behaviors for PageRecord and RevisionRecord.
func NewRepository(db *gorm.DB, plugin *slugstore.Plugin, logger *logrus.Logger) (*Repository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}
	if plugin == nil {
		return nil, eris.New("sluggable plugin is required")
	}
	if _, ok := plugin.Behavior(&PageRecord{}); !ok {
		return nil, eris.Wrap(sluggable.ErrConfiguration, "pages are not registered with the sluggable plugin")
	}
	if _, ok := plugin.Behavior(&RevisionRecord{}); !ok {
		return nil, eris.Wrap(sluggable.ErrConfiguration, "revisions are not registered with the sluggable plugin")
	}

	return &Repository{
		db:      db,
		plugin:  plugin,
		logger:  logger,
		now:     time.Now,
		newUUID: func() string { return uuid.NewString() },
	}, nil
}

var _ domainwiki.Repository = (*Repository)(nil)

// RegisterBehaviors attaches the page and revision behaviors to plugin.
func RegisterBehaviors(plugin *slugstore.Plugin, pages, revisions *sluggable.Behavior) error {
	if plugin == nil {
		return eris.New("sluggable plugin is required")
	}
	if err := plugin.Register(&PageRecord{}, pages); err != nil {
		return eris.Wrap(err, "registering page behavior")
	}
	if err := plugin.Register(&RevisionRecord{}, revisions); err != nil {
		return eris.Wrap(err, "registering revision behavior")
	}
	return nil
}

// CreatePage stores a new page; the slug is derived from its title.
func (r *Repository) CreatePage(ctx context.Context, page *domainwiki.Page) error {
	if page == nil {
		return eris.New("page is nil")
	}

	var record *PageRecord
	err := sluggable.RetryOnConflict(ctx, saveAttempts, slugstore.IsUniqueViolation, func(ctx context.Context) error {
		record = &PageRecord{
			Title: strings.TrimSpace(page.Title),
			Body:  strings.TrimSpace(page.Body),
		}
		return r.db.WithContext(ctx).Create(record).Error
	})
	if err != nil {
		if invalid := unsluggableTitle(err, page.Title); invalid != nil {
			return invalid
		}
		r.logError(logrus.Fields{"title": page.Title}, err, "inserting page")
		return eris.Wrapf(err, "inserting page %q", page.Title)
	}

	*page = *toDomainPage(record)
	return nil
}

// GetPageBySlug returns the page for the provided slug or nil when not found.
func (r *Repository) GetPageBySlug(ctx context.Context, slug string) (*domainwiki.Page, error) {
	var record PageRecord
	if err := r.plugin.FindSlugged(ctx, r.db, slug, &record); err != nil {
		if eris.Is(err, sluggable.ErrNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"slug": slug}, err, "selecting page by slug")
		return nil, eris.Wrapf(err, "selecting page by slug %q", slug)
	}

	return toDomainPage(&record), nil
}

// UpdatePageTitle renames the page carrying slug. A saved page keeps its slug even
// when the page behavior overwrites slugs; overwrite only regenerates the preset
// slug of a record that has not been inserted yet.
func (r *Repository) UpdatePageTitle(ctx context.Context, slug, title string) (*domainwiki.Page, error) {
	var updated *PageRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record PageRecord
		if err := r.plugin.FindSlugged(ctx, tx, slug, &record); err != nil {
			return err
		}

		record.Title = strings.TrimSpace(title)
		if err := tx.Save(&record).Error; err != nil {
			return err
		}

		updated = &record
		return nil
	})
	if err != nil {
		if eris.Is(err, sluggable.ErrNotFound) {
			return nil, nil
		}
		if invalid := unsluggableTitle(err, title); invalid != nil {
			return nil, invalid
		}
		r.logError(logrus.Fields{"slug": slug}, err, "updating page title")
		return nil, eris.Wrapf(err, "updating title of page %q", slug)
	}

	return toDomainPage(updated), nil
}

// ListPages returns every page ordered by slug.
func (r *Repository) ListPages(ctx context.Context) ([]domainwiki.Page, error) {
	var records []PageRecord

	if err := r.db.WithContext(ctx).Order("slug ASC").Find(&records).Error; err != nil {
		r.logError(nil, err, "selecting pages")
		return nil, eris.Wrap(err, "selecting pages")
	}

	pages := make([]domainwiki.Page, 0, len(records))
	for i := range records {
		pages = append(pages, *toDomainPage(&records[i]))
	}

	return pages, nil
}

// PageOptions maps every page slug to its title.
func (r *Repository) PageOptions(ctx context.Context) (map[string]string, error) {
	list, err := r.plugin.FindSluggedList(ctx, r.db, &PageRecord{}, "title")
	if err != nil {
		r.logError(nil, err, "selecting page options")
		return nil, eris.Wrap(err, "selecting page options")
	}

	return list, nil
}

// CreateDocument starts a new document with its first revision.
func (r *Repository) CreateDocument(ctx context.Context, revision *domainwiki.Revision) error {
	if revision == nil {
		return eris.New("revision is nil")
	}

	var record *RevisionRecord
	err := sluggable.RetryOnConflict(ctx, saveAttempts, slugstore.IsUniqueViolation, func(ctx context.Context) error {
		record = &RevisionRecord{
			DocumentID: r.newUUID(),
			Revision:   1,
			Title:      strings.TrimSpace(revision.Title),
			Body:       strings.TrimSpace(revision.Body),
			ValidUntil: CurrentValidity,
		}
		return r.db.WithContext(ctx).Create(record).Error
	})
	if err != nil {
		if invalid := unsluggableTitle(err, revision.Title); invalid != nil {
			return invalid
		}
		r.logError(logrus.Fields{"title": revision.Title}, err, "inserting document")
		return eris.Wrapf(err, "inserting document %q", revision.Title)
	}

	*revision = *toDomainRevision(record)
	return nil
}

// PublishRevision supersedes the current revision of documentID and stores the next
// one. The slug is carried over while the title is unchanged and regenerated
// otherwise. It returns nil when the document has no current revision.
func (r *Repository) PublishRevision(ctx context.Context, documentID, title, body string) (*domainwiki.Revision, error) {
	var published *RevisionRecord

	err := sluggable.RetryOnConflict(ctx, saveAttempts, slugstore.IsUniqueViolation, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var current RevisionRecord
			err := tx.Where("document_id = ? AND valid_until = ?", documentID, CurrentValidity).
				First(&current).Error
			if err != nil {
				return err
			}

			if err := tx.Model(&current).Update("valid_until", r.now().UTC().Format(ValidityLayout)).Error; err != nil {
				return eris.Wrap(err, "superseding current revision")
			}

			next := &RevisionRecord{
				DocumentID: documentID,
				Revision:   current.Revision + 1,
				Title:      strings.TrimSpace(title),
				Body:       strings.TrimSpace(body),
				ValidUntil: CurrentValidity,
			}
			if next.Title == current.Title {
				next.Slug = current.Slug
			}

			if err := tx.Create(next).Error; err != nil {
				return err
			}

			published = next
			return nil
		})
	})
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if invalid := unsluggableTitle(err, title); invalid != nil {
			return nil, invalid
		}
		r.logError(logrus.Fields{"document_id": documentID}, err, "storing revision")
		return nil, eris.Wrapf(err, "storing revision of document %s", documentID)
	}

	return toDomainRevision(published), nil
}

// GetRevisionBySlug returns the current revision carrying slug or nil when not found.
func (r *Repository) GetRevisionBySlug(ctx context.Context, slug string) (*domainwiki.Revision, error) {
	var record RevisionRecord
	if err := r.plugin.FindSlugged(ctx, r.db, slug, &record); err != nil {
		if eris.Is(err, sluggable.ErrNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"slug": slug}, err, "selecting revision by slug")
		return nil, eris.Wrapf(err, "selecting revision by slug %q", slug)
	}

	return toDomainRevision(&record), nil
}

// ListRevisions returns every revision of documentID, oldest first.
func (r *Repository) ListRevisions(ctx context.Context, documentID string) ([]domainwiki.Revision, error) {
	var records []RevisionRecord

	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("revision ASC").
		Find(&records).Error
	if err != nil {
		r.logError(logrus.Fields{"document_id": documentID}, err, "selecting revisions")
		return nil, eris.Wrapf(err, "selecting revisions of document %s", documentID)
	}

	revisions := make([]domainwiki.Revision, 0, len(records))
	for i := range records {
		revisions = append(revisions, *toDomainRevision(&records[i]))
	}

	return revisions, nil
}

// unsluggableTitle reports a title the slug pattern cannot turn into a slug as invalid
// input. It returns nil for every other error.
func unsluggableTitle(err error, title string) error {
	var subErr *sluggable.SubstitutionError
	if !eris.As(err, &subErr) {
		return nil
	}
	return eris.Wrapf(domainwiki.ErrInvalidInput, "title %q has no characters usable in a slug", strings.TrimSpace(title))
}

func (r *Repository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil || err == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

func toDomainPage(record *PageRecord) *domainwiki.Page {
	if record == nil {
		return nil
	}

	return &domainwiki.Page{
		ID:        record.ID,
		Slug:      strings.TrimSpace(record.Slug),
		Title:     record.Title,
		Body:      record.Body,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func toDomainRevision(record *RevisionRecord) *domainwiki.Revision {
	if record == nil {
		return nil
	}

	return &domainwiki.Revision{
		DocumentID: record.DocumentID,
		Number:     record.Revision,
		Slug:       strings.TrimSpace(record.Slug),
		Title:      record.Title,
		Body:       record.Body,
		Current:    record.IsCurrent(),
		CreatedAt:  record.CreatedAt,
	}
}

package wiki

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Service defines the wiki operations exposed to the transport layer.
type Service interface {
	CreatePage(ctx context.Context, title, body string) (*Page, error)
	RenamePage(ctx context.Context, slug, title string) (*Page, error)
	GetPage(ctx context.Context, slug string) (*Page, error)
	ListPages(ctx context.Context) ([]Page, error)
	PageOptions(ctx context.Context) ([]PageOption, error)

	StartDocument(ctx context.Context, title, body string) (*Revision, error)
	PublishRevision(ctx context.Context, documentID, title, body string) (*Revision, error)
	GetDocument(ctx context.Context, slug string) (*Revision, error)
	DocumentHistory(ctx context.Context, documentID string) ([]Revision, error)
}

type service struct {
	repo      Repository
	logger    *logrus.Logger
	sentryHub *sentry.Hub
}

var _ Service = (*service)(nil)

var (
	// ErrNotFound indicates that no page or document matched the request.
	ErrNotFound = eris.New("wiki entry not found")
	// ErrInvalidInput indicates a request the service refuses to persist.
	ErrInvalidInput = eris.New("invalid wiki input")
)

const maxTitleLength = 255

// NewService wires the wiki service with its dependencies.
func NewService(repo Repository, logger *logrus.Logger, hub *sentry.Hub) (Service, error) {
	if repo == nil {
		return nil, eris.New("wiki repository is required")
	}

	return &service{
		repo:      repo,
		logger:    logger,
		sentryHub: hub,
	}, nil
}

func (s *service) CreatePage(ctx context.Context, title, body string) (*Page, error) {
	trimmedTitle, err := validateTitle(title)
	if err != nil {
		return nil, err
	}

	page := &Page{Title: trimmedTitle, Body: strings.TrimSpace(body)}
	if err := s.repo.CreatePage(ctx, page); err != nil {
		return nil, s.failure(logrus.Fields{"title": trimmedTitle}, err, "creating page")
	}

	return page, nil
}

func (s *service) RenamePage(ctx context.Context, slug, title string) (*Page, error) {
	trimmedSlug, err := validateSlug(slug)
	if err != nil {
		return nil, err
	}
	trimmedTitle, err := validateTitle(title)
	if err != nil {
		return nil, err
	}

	page, err := s.repo.UpdatePageTitle(ctx, trimmedSlug, trimmedTitle)
	if err != nil {
		return nil, s.failure(logrus.Fields{"slug": trimmedSlug}, err, "renaming page")
	}
	if page == nil {
		return nil, eris.Wrapf(ErrNotFound, "renaming page: %s", trimmedSlug)
	}

	return page, nil
}

func (s *service) GetPage(ctx context.Context, slug string) (*Page, error) {
	trimmedSlug, err := validateSlug(slug)
	if err != nil {
		return nil, err
	}

	page, err := s.repo.GetPageBySlug(ctx, trimmedSlug)
	if err != nil {
		return nil, s.failure(logrus.Fields{"slug": trimmedSlug}, err, "retrieving page")
	}
	if page == nil {
		return nil, eris.Wrapf(ErrNotFound, "retrieving page: %s", trimmedSlug)
	}

	return page, nil
}

func (s *service) ListPages(ctx context.Context) ([]Page, error) {
	pages, err := s.repo.ListPages(ctx)
	if err != nil {
		return nil, s.failure(nil, err, "listing pages")
	}

	return pages, nil
}

func (s *service) PageOptions(ctx context.Context) ([]PageOption, error) {
	list, err := s.repo.PageOptions(ctx)
	if err != nil {
		return nil, s.failure(nil, err, "listing page options")
	}

	options := make([]PageOption, 0, len(list))
	for slug, title := range list {
		if strings.TrimSpace(slug) == "" {
			continue
		}
		options = append(options, PageOption{Slug: slug, Title: title})
	}

	sort.Slice(options, func(i, j int) bool {
		if options[i].Title != options[j].Title {
			return options[i].Title < options[j].Title
		}
		return options[i].Slug < options[j].Slug
	})

	return options, nil
}

func (s *service) StartDocument(ctx context.Context, title, body string) (*Revision, error) {
	trimmedTitle, err := validateTitle(title)
	if err != nil {
		return nil, err
	}

	revision := &Revision{Title: trimmedTitle, Body: strings.TrimSpace(body)}
	if err := s.repo.CreateDocument(ctx, revision); err != nil {
		return nil, s.failure(logrus.Fields{"title": trimmedTitle}, err, "creating document")
	}

	return revision, nil
}

func (s *service) PublishRevision(ctx context.Context, documentID, title, body string) (*Revision, error) {
	trimmedID := strings.TrimSpace(documentID)
	if trimmedID == "" {
		return nil, eris.Wrap(ErrInvalidInput, "document id is required")
	}
	trimmedTitle, err := validateTitle(title)
	if err != nil {
		return nil, err
	}

	revision, err := s.repo.PublishRevision(ctx, trimmedID, trimmedTitle, strings.TrimSpace(body))
	if err != nil {
		return nil, s.failure(logrus.Fields{"document_id": trimmedID}, err, "publishing revision")
	}
	if revision == nil {
		return nil, eris.Wrapf(ErrNotFound, "publishing revision of document %s", trimmedID)
	}

	return revision, nil
}

func (s *service) GetDocument(ctx context.Context, slug string) (*Revision, error) {
	trimmedSlug, err := validateSlug(slug)
	if err != nil {
		return nil, err
	}

	revision, err := s.repo.GetRevisionBySlug(ctx, trimmedSlug)
	if err != nil {
		return nil, s.failure(logrus.Fields{"slug": trimmedSlug}, err, "retrieving document")
	}
	if revision == nil {
		return nil, eris.Wrapf(ErrNotFound, "retrieving document: %s", trimmedSlug)
	}

	return revision, nil
}

func (s *service) DocumentHistory(ctx context.Context, documentID string) ([]Revision, error) {
	trimmedID := strings.TrimSpace(documentID)
	if trimmedID == "" {
		return nil, eris.Wrap(ErrInvalidInput, "document id is required")
	}

	revisions, err := s.repo.ListRevisions(ctx, trimmedID)
	if err != nil {
		return nil, s.failure(logrus.Fields{"document_id": trimmedID}, err, "listing revisions")
	}
	if len(revisions) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "listing revisions of document %s", trimmedID)
	}

	return revisions, nil
}

// failure wraps a repository error with the operation name. The repository message
// already names the record involved. Invalid input is returned without being reported.
func (s *service) failure(fields logrus.Fields, err error, operation string) error {
	if !eris.Is(err, ErrInvalidInput) {
		s.recordError(fields, err, operation)
	}
	return eris.Wrap(err, operation)
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}

func validateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", eris.Wrap(ErrInvalidInput, "title is required")
	}
	if utf8.RuneCountInString(trimmed) > maxTitleLength {
		return "", eris.Wrapf(ErrInvalidInput, "title exceeds %d characters", maxTitleLength)
	}
	return trimmed, nil
}

func validateSlug(slug string) (string, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return "", eris.Wrap(ErrInvalidInput, "slug is required")
	}
	return trimmed, nil
}

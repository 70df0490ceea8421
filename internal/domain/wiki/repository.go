package wiki

import "context"

// Repository defines persistence operations supported by the wiki domain. Lookups
// return nil without an error when nothing matches.
type Repository interface {
	CreatePage(ctx context.Context, page *Page) error
	GetPageBySlug(ctx context.Context, slug string) (*Page, error)
	UpdatePageTitle(ctx context.Context, slug, title string) (*Page, error)
	ListPages(ctx context.Context) ([]Page, error)
	PageOptions(ctx context.Context) (map[string]string, error)

	CreateDocument(ctx context.Context, revision *Revision) error
	PublishRevision(ctx context.Context, documentID, title, body string) (*Revision, error)
	GetRevisionBySlug(ctx context.Context, slug string) (*Revision, error)
	ListRevisions(ctx context.Context, documentID string) ([]Revision, error)
}

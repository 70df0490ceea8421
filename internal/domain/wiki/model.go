package wiki

import "time"

// Page is a wiki page addressed by its slug.
type Page struct {
	ID        uint
	Slug      string
	Title     string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Revision is one published version of a document. Only the current revision of a
// document is reachable by slug.
type Revision struct {
	DocumentID string
	Number     int
	Slug       string
	Title      string
	Body       string
	Current    bool
	CreatedAt  time.Time
}

// PageOption pairs a slug with the title shown for it in option lists.
type PageOption struct {
	Slug  string
	Title string
}

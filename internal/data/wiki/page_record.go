package wiki

import (
	"time"

	"gorm.io/gorm"

	"slugwiki/app/internal/sluggable"
)

// CurrentValidity marks the revision of a document that is still in effect.
const CurrentValidity = "0000-00-00 00:00:00"

// ValidityLayout formats the moment a revision was superseded.
const ValidityLayout = "2006-01-02 15:04:05"

// PageRecord is a plain sluggable wiki page. Its slug is derived from the title.
type PageRecord struct {
	gorm.Model
	Slug  string `gorm:"size:255;not null"`
	Title string `gorm:"size:255;not null"`
	Body  string `gorm:"type:text;not null"`
}

// TableName defines the table name for the Page model.
func (PageRecord) TableName() string {
	return "pages"
}

// RevisionRecord is one version of a document. Publishing a revision supersedes the
// current row by stamping valid_until and inserts the next revision number.
type RevisionRecord struct {
	DocumentID string `gorm:"primaryKey;size:36"`
	Revision   int    `gorm:"primaryKey;autoIncrement:false"`
	Slug       string `gorm:"size:255;not null;index:idx_revisions_slug"`
	Title      string `gorm:"size:255;not null"`
	Body       string `gorm:"type:text;not null"`
	ValidUntil string `gorm:"size:19;not null;index:idx_revisions_valid_until"`
	CreatedAt  time.Time
}

func (RevisionRecord) TableName() string {
	return "revisions"
}

func (RevisionRecord) VersioningInfo() sluggable.VersioningInfo {
	return sluggable.VersioningInfo{
		ValidityField: "valid_until",
		Current:       CurrentValidity,
		RevisionField: "revision",
	}
}

// IsCurrent reports whether the revision has not been superseded.
func (r RevisionRecord) IsCurrent() bool {
	return r.ValidUntil == CurrentValidity
}

package migrations

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	wikidata "slugwiki/app/internal/data/wiki"
)

// Blank slugs are excluded so rows can be inserted before the slug hook fills them in.
var slugIndexes = []struct {
	name string
	sql  string
}{
	{
		name: "ux_pages_slug",
		sql:  "CREATE UNIQUE INDEX IF NOT EXISTS ux_pages_slug ON pages (slug) WHERE slug <> ''",
	},
	{
		name: "ux_revisions_current_slug",
		sql:  "CREATE UNIQUE INDEX IF NOT EXISTS ux_revisions_current_slug ON revisions (slug) WHERE valid_until = '" + wikidata.CurrentValidity + "' AND slug <> ''",
	},
}

// MigrateWiki applies the wiki schema using Gorm's AutoMigrate and logs progress.
func MigrateWiki(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "wiki.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("applying wiki schema")
	}

	tx := db.WithContext(ctx)
	if err := tx.AutoMigrate(&wikidata.PageRecord{}, &wikidata.RevisionRecord{}); err != nil {
		logMigrationError(logger, logFields, err, "wiki schema migration failed")
		return eris.Wrap(err, "auto migrating wiki schema")
	}

	for _, index := range slugIndexes {
		if err := tx.Exec(index.sql).Error; err != nil {
			logMigrationError(logger, logrus.Fields{"component": "wiki.migrate", "index": index.name}, err, "creating slug index failed")
			return eris.Wrapf(err, "creating index %s", index.name)
		}
	}

	if logger != nil {
		logger.WithFields(logFields).Info("wiki schema migration complete")
	}

	return nil
}

func logMigrationError(logger *logrus.Logger, fields logrus.Fields, err error, message string) {
	if logger == nil {
		return
	}
	logger.WithFields(fields).WithField("error", err.Error()).Error(message)
}

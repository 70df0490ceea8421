package wiki_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"slugwiki/app/internal/data/database"
	"slugwiki/app/internal/data/migrations"
	"slugwiki/app/internal/data/slugstore"
	wikidata "slugwiki/app/internal/data/wiki"
	domainwiki "slugwiki/app/internal/domain/wiki"
	"slugwiki/app/internal/sluggable"
	"slugwiki/app/internal/sluggable/pattern"
)

func TestNewRepositoryRequiresDatabase(t *testing.T) {
	t.Parallel()

	if _, err := wikidata.NewRepository(nil, slugstore.NewPlugin(nil), nil); err == nil {
		t.Fatalf("expected error when database is nil")
	}
}

func TestNewRepositoryRequiresRegisteredBehaviors(t *testing.T) {
	t.Parallel()

	_, db := setupRepository(t)

	_, err := wikidata.NewRepository(db, slugstore.NewPlugin(nil), nil)
	if err == nil {
		t.Fatalf("expected error when behaviors are missing")
	}
}

func TestCreatePageAssignsUniqueSlugs(t *testing.T) {
	t.Parallel()

	repo, db := setupRepository(t)
	ctx := context.Background()

	for _, want := range []string{"apple", "apple-2", "apple-3"} {
		page := &domainwiki.Page{Title: "Apple", Body: "fruit"}
		if err := repo.CreatePage(ctx, page); err != nil {
			t.Fatalf("CreatePage returned error: %v", err)
		}
		if page.Slug != want {
			t.Fatalf("expected slug %q, got %q", want, page.Slug)
		}
	}

	assertStoredSlugs(t, db, "apple", "apple-2", "apple-3")
}

func TestCreatePageFoldsDiacritics(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)

	page := &domainwiki.Page{Title: "Crème Brûlée!"}
	if err := repo.CreatePage(context.Background(), page); err != nil {
		t.Fatalf("CreatePage returned error: %v", err)
	}
	if page.Slug != "creme-brulee" {
		t.Fatalf("expected slug creme-brulee, got %q", page.Slug)
	}
}

func TestSoftDeletedPageStillHoldsItsSlug(t *testing.T) {
	t.Parallel()

	repo, db := setupRepository(t)
	ctx := context.Background()

	first := &domainwiki.Page{Title: "Apple"}
	if err := repo.CreatePage(ctx, first); err != nil {
		t.Fatalf("CreatePage returned error: %v", err)
	}
	if err := db.Delete(&wikidata.PageRecord{}, first.ID).Error; err != nil {
		t.Fatalf("deleting page failed: %v", err)
	}

	second := &domainwiki.Page{Title: "Apple"}
	if err := repo.CreatePage(ctx, second); err != nil {
		t.Fatalf("CreatePage returned error: %v", err)
	}
	if second.Slug != "apple-2" {
		t.Fatalf("expected soft deleted slug to stay reserved, got %q", second.Slug)
	}

	found, err := repo.GetPageBySlug(ctx, "apple")
	if err != nil {
		t.Fatalf("GetPageBySlug returned error: %v", err)
	}
	if found != nil {
		t.Fatalf("expected soft deleted page to be hidden, got %+v", found)
	}
}

func TestCreatePageSkipsFreedSuffixes(t *testing.T) {
	t.Parallel()

	repo, db := setupRepository(t)
	ctx := context.Background()

	createPages(t, repo, "Apple", "Apple", "Apple")
	if err := db.Unscoped().Where("slug = ?", "apple-2").Delete(&wikidata.PageRecord{}).Error; err != nil {
		t.Fatalf("deleting page failed: %v", err)
	}

	page := &domainwiki.Page{Title: "Apple"}
	if err := repo.CreatePage(ctx, page); err != nil {
		t.Fatalf("CreatePage returned error: %v", err)
	}
	if page.Slug != "apple-4" {
		t.Fatalf("expected apple-4, got %q", page.Slug)
	}
}

func TestRowCountSuffixCollidesAfterGapAndRollsBack(t *testing.T) {
	t.Parallel()

	repo, db := setupRepository(t, sluggable.WithSuffixStrategy(sluggable.SuffixRowCount))
	ctx := context.Background()

	createPages(t, repo, "Apple", "Apple", "Apple")
	if err := db.Unscoped().Where("slug = ?", "apple-2").Delete(&wikidata.PageRecord{}).Error; err != nil {
		t.Fatalf("deleting page failed: %v", err)
	}

	err := repo.CreatePage(ctx, &domainwiki.Page{Title: "Apple"})
	if err == nil {
		t.Fatalf("expected row count strategy to collide with apple-3")
	}
	if !slugstore.IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}

	assertStoredSlugs(t, db, "apple", "apple-3")
}

func TestUpdatePageTitleKeepsSlug(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	createPages(t, repo, "Apple")

	page, err := repo.UpdatePageTitle(ctx, "apple", "Banana")
	if err != nil {
		t.Fatalf("UpdatePageTitle returned error: %v", err)
	}
	if page == nil || page.Slug != "apple" || page.Title != "Banana" {
		t.Fatalf("expected renamed page to keep slug apple, got %+v", page)
	}

	missing, err := repo.UpdatePageTitle(ctx, "cherry", "Cherry")
	if err != nil {
		t.Fatalf("UpdatePageTitle returned error: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing page, got %+v", missing)
	}
}

func TestUpdatePageTitleKeepsSlugWithOverwrite(t *testing.T) {
	t.Parallel()

	repo, db := setupRepository(t, sluggable.WithOverwrite(true))
	ctx := context.Background()

	createPages(t, repo, "Apple")

	page, err := repo.UpdatePageTitle(ctx, "apple", "Banana")
	if err != nil {
		t.Fatalf("UpdatePageTitle returned error: %v", err)
	}
	if page == nil || page.Slug != "apple" || page.Title != "Banana" {
		t.Fatalf("expected saved page to keep slug apple with overwrite on, got %+v", page)
	}

	assertStoredSlugs(t, db, "apple")
}

func TestCreatePageTransliteratesCyrillic(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)

	page := &domainwiki.Page{Title: "Привет"}
	if err := repo.CreatePage(context.Background(), page); err != nil {
		t.Fatalf("CreatePage returned error: %v", err)
	}
	if page.Slug != "privet" {
		t.Fatalf("expected slug privet, got %q", page.Slug)
	}
}

func TestCreatePageRejectsTitleWithoutSluggableCharacters(t *testing.T) {
	t.Parallel()

	repo, db := setupRepository(t)
	ctx := context.Background()

	err := repo.CreatePage(ctx, &domainwiki.Page{Title: "!!!"})
	if !eris.Is(err, domainwiki.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	err = repo.CreateDocument(ctx, &domainwiki.Revision{Title: "?!"})
	if !eris.Is(err, domainwiki.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for document, got %v", err)
	}

	assertStoredSlugs(t, db)
}

func TestUpdateSlugsPageThatHasNone(t *testing.T) {
	t.Parallel()

	repo, db := setupRepository(t)
	ctx := context.Background()

	record := &wikidata.PageRecord{Title: "Legacy Page"}
	if err := db.Session(&gorm.Session{SkipHooks: true}).Create(record).Error; err != nil {
		t.Fatalf("inserting page without hooks failed: %v", err)
	}
	if record.Slug != "" {
		t.Fatalf("expected page inserted without hooks to have no slug, got %q", record.Slug)
	}

	record.Body = "migrated"
	if err := db.Save(record).Error; err != nil {
		t.Fatalf("saving page failed: %v", err)
	}

	page, err := repo.GetPageBySlug(ctx, "legacy-page")
	if err != nil {
		t.Fatalf("GetPageBySlug returned error: %v", err)
	}
	if page == nil || page.Body != "migrated" {
		t.Fatalf("expected legacy page to be slugged on update, got %+v", page)
	}
}

func TestPageOptionsMapSlugsToTitles(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)

	createPages(t, repo, "Apple", "Banana", "Apple")

	options, err := repo.PageOptions(context.Background())
	if err != nil {
		t.Fatalf("PageOptions returned error: %v", err)
	}

	want := map[string]string{"apple": "Apple", "apple-2": "Apple", "banana": "Banana"}
	if len(options) != len(want) {
		t.Fatalf("expected %d options, got %v", len(want), options)
	}
	for slug, title := range want {
		if options[slug] != title {
			t.Fatalf("expected option %s=%s, got %v", slug, title, options)
		}
	}
}

func TestListPagesReturnsAlphabeticalOrder(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)

	createPages(t, repo, "Zulu", "Alpha", "Beta")

	pages, err := repo.ListPages(context.Background())
	if err != nil {
		t.Fatalf("ListPages returned error: %v", err)
	}

	expected := []string{"alpha", "beta", "zulu"}
	if len(pages) != len(expected) {
		t.Fatalf("expected %d pages, got %d", len(expected), len(pages))
	}
	for i, slug := range expected {
		if pages[i].Slug != slug {
			t.Fatalf("expected page %d to have slug %q, got %q", i, slug, pages[i].Slug)
		}
	}
}

func TestDocumentsShareSlugFamilyOnlyAmongCurrentRevisions(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	first := &domainwiki.Revision{Title: "Guide"}
	if err := repo.CreateDocument(ctx, first); err != nil {
		t.Fatalf("CreateDocument returned error: %v", err)
	}
	second := &domainwiki.Revision{Title: "Guide"}
	if err := repo.CreateDocument(ctx, second); err != nil {
		t.Fatalf("CreateDocument returned error: %v", err)
	}

	if first.Slug != "guide" || second.Slug != "guide-2" {
		t.Fatalf("expected guide and guide-2, got %q and %q", first.Slug, second.Slug)
	}
	if first.DocumentID == second.DocumentID || first.Number != 1 || !first.Current {
		t.Fatalf("unexpected first revision %+v", first)
	}

	// Same title: the slug is carried over to the next revision.
	republished, err := repo.PublishRevision(ctx, first.DocumentID, "Guide", "second draft")
	if err != nil {
		t.Fatalf("PublishRevision returned error: %v", err)
	}
	if republished.Number != 2 || republished.Slug != "guide" {
		t.Fatalf("expected revision 2 to keep slug guide, got %+v", republished)
	}

	// New title: the document moves to a fresh slug and frees its old one.
	renamed, err := repo.PublishRevision(ctx, first.DocumentID, "Manual", "third draft")
	if err != nil {
		t.Fatalf("PublishRevision returned error: %v", err)
	}
	if renamed.Number != 3 || renamed.Slug != "manual" {
		t.Fatalf("expected revision 3 with slug manual, got %+v", renamed)
	}

	old, err := repo.GetRevisionBySlug(ctx, "guide")
	if err != nil {
		t.Fatalf("GetRevisionBySlug returned error: %v", err)
	}
	if old != nil {
		t.Fatalf("expected superseded slug to resolve to nothing, got %+v", old)
	}

	third := &domainwiki.Revision{Title: "Guide"}
	if err := repo.CreateDocument(ctx, third); err != nil {
		t.Fatalf("CreateDocument returned error: %v", err)
	}
	if third.Slug != "guide" {
		t.Fatalf("expected slug of superseded revisions to be reusable, got %q", third.Slug)
	}

	history, err := repo.ListRevisions(ctx, first.DocumentID)
	if err != nil {
		t.Fatalf("ListRevisions returned error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 revisions, got %d", len(history))
	}
	for i, revision := range history {
		if revision.Number != i+1 {
			t.Fatalf("expected revision %d at position %d, got %d", i+1, i, revision.Number)
		}
		if revision.Current != (i == 2) {
			t.Fatalf("expected only the last revision to be current, got %+v", history)
		}
	}

	current, err := repo.GetRevisionBySlug(ctx, "manual")
	if err != nil {
		t.Fatalf("GetRevisionBySlug returned error: %v", err)
	}
	if current == nil || current.Number != 3 || current.Body != "third draft" {
		t.Fatalf("expected current revision 3, got %+v", current)
	}
}

func TestPublishRevisionOfUnknownDocumentReturnsNil(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)

	revision, err := repo.PublishRevision(context.Background(), "missing", "Guide", "")
	if err != nil {
		t.Fatalf("PublishRevision returned error: %v", err)
	}
	if revision != nil {
		t.Fatalf("expected nil revision for unknown document, got %+v", revision)
	}
}

func setupRepository(t *testing.T, opts ...sluggable.Option) (*wikidata.Repository, *gorm.DB) {
	t.Helper()

	log := silentLogger()
	db, err := database.Open(database.Options{
		Path:   filepath.Join(t.TempDir(), "wiki.db"),
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening database failed: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := database.Close(db); closeErr != nil {
			t.Errorf("closing database failed: %v", closeErr)
		}
	})

	cfg, err := sluggable.NewConfig(append([]sluggable.Option{sluggable.WithPattern(":title")}, opts...)...)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	behavior, err := sluggable.NewBehavior(cfg, pattern.New(), log)
	if err != nil {
		t.Fatalf("NewBehavior returned error: %v", err)
	}

	plugin := slugstore.NewPlugin(log)
	if err := wikidata.RegisterBehaviors(plugin, behavior, behavior); err != nil {
		t.Fatalf("RegisterBehaviors returned error: %v", err)
	}
	if err := db.Use(plugin); err != nil {
		t.Fatalf("installing plugin failed: %v", err)
	}

	if err := migrations.MigrateWiki(context.Background(), db, log); err != nil {
		t.Fatalf("MigrateWiki returned error: %v", err)
	}

	repo, err := wikidata.NewRepository(db, plugin, log)
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}

	return repo, db
}

func createPages(t *testing.T, repo *wikidata.Repository, titles ...string) {
	t.Helper()

	for _, title := range titles {
		if err := repo.CreatePage(context.Background(), &domainwiki.Page{Title: title}); err != nil {
			t.Fatalf("CreatePage(%q) returned error: %v", title, err)
		}
	}
}

func assertStoredSlugs(t *testing.T, db *gorm.DB, expected ...string) {
	t.Helper()

	var slugs []string
	if err := db.Unscoped().Model(&wikidata.PageRecord{}).Order("id ASC").Pluck("slug", &slugs).Error; err != nil {
		t.Fatalf("loading slugs failed: %v", err)
	}

	if len(slugs) != len(expected) {
		t.Fatalf("expected slugs %v, got %v", expected, slugs)
	}
	for i := range expected {
		if slugs[i] != expected[i] {
			t.Fatalf("expected slugs %v, got %v", expected, slugs)
		}
	}
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

package bootstrap

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"slugwiki/app/internal/data/database"
	"slugwiki/app/internal/data/migrations"
	"slugwiki/app/internal/data/slugstore"
	datawiki "slugwiki/app/internal/data/wiki"
	domainwiki "slugwiki/app/internal/domain/wiki"
	"slugwiki/app/internal/platform/config"
	presentationhttp "slugwiki/app/internal/presentation/http"
	"slugwiki/app/internal/sluggable"
	"slugwiki/app/internal/sluggable/pattern"
)

type Dependencies struct {
	Config    config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

type Result struct {
	WikiService domainwiki.Service
	HTTPServer  *presentationhttp.Server
	Database    *gorm.DB
	Cleanup     func() error
}

// Build composes the slugwiki application layers and returns the constructed components.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	behavior, err := newBehavior(deps.Config.Slug, deps.Logger)
	if err != nil {
		return Result{}, eris.Wrap(err, "configuring slug behaviour")
	}

	db, err := database.Open(database.Options{Path: deps.Config.DBPath})
	if err != nil {
		return Result{}, eris.Wrap(err, "opening database")
	}

	closeOnError := func(wrapper error) (Result, error) {
		if closeErr := database.Close(db); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing database after bootstrap failure")
		}
		return Result{}, wrapper
	}

	plugin := slugstore.NewPlugin(deps.Logger)
	if err := datawiki.RegisterBehaviors(plugin, behavior, behavior); err != nil {
		return closeOnError(eris.Wrap(err, "registering slug behaviours"))
	}
	if err := db.Use(plugin); err != nil {
		return closeOnError(eris.Wrap(err, "installing slug plugin"))
	}

	if err := migrations.MigrateWiki(ctx, db, deps.Logger); err != nil {
		return closeOnError(eris.Wrap(err, "running wiki migrations"))
	}

	repo, err := datawiki.NewRepository(db, plugin, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating wiki repository"))
	}

	wikiService, err := domainwiki.NewService(repo, deps.Logger, deps.SentryHub)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating wiki service"))
	}

	httpServer, err := presentationhttp.NewServer(presentationhttp.Options{
		WikiService: wikiService,
		Logger:      deps.Logger,
		SentryHub:   deps.SentryHub,
		DB:          db,
		RateLimiter: presentationhttp.RateLimiterSettings{
			Burst:             deps.Config.RateLimit.Burst,
			RequestsPerSecond: deps.Config.RateLimit.RequestsPerSecond,
			ClientTTL:         deps.Config.RateLimit.ClientTTL,
		},
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}

	cleanup := func() error {
		httpServer.Close()
		return database.Close(db)
	}

	return Result{
		WikiService: wikiService,
		HTTPServer:  httpServer,
		Database:    db,
		Cleanup:     cleanup,
	}, nil
}

func newBehavior(settings config.Slug, logger *logrus.Logger) (*sluggable.Behavior, error) {
	cfg, err := sluggable.NewConfig(settings.Options()...)
	if err != nil {
		return nil, err
	}
	return sluggable.NewBehavior(cfg, pattern.New(), logger)
}

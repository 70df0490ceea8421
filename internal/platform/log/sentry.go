package log

import (
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentrylogrus "github.com/getsentry/sentry-go/logrus"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"slugwiki/app/internal/platform/config"
)

const (
	appName      = "slugwiki"
	flushTimeout = 2 * time.Second
)

// SentrySettings represents the configuration required to bootstrap Sentry.
type SentrySettings struct {
	DSN         string
	Environment string
	Release     string
	// Tags are attached to every event sent through the returned hub.
	Tags        map[string]string
}

// SentrySettingsFromConfig builds settings from cfg and tags events with the slug
// settings in effect.
func SentrySettingsFromConfig(cfg config.Config) SentrySettings {
	return SentrySettings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     cfg.SentryRelease,
		Tags: map[string]string{
			"slug.pattern":   cfg.Slug.Pattern,
			"slug.suffix":    cfg.Slug.Suffix.String(),
			"slug.overwrite": boolTag(cfg.Slug.Overwrite),
		},
	}
}

// InitSentry wires up Sentry exception logging and connects it to the provided logrus logger.
// Without a DSN it returns a nil hub and a no-op flush.
func InitSentry(logger *logrus.Logger, settings SentrySettings) (*sentry.Hub, func(), error) {
	dsn := strings.TrimSpace(settings.DSN)
	if dsn == "" {
		return nil, func() {}, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      settings.Environment,
		Release:          settings.Release,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "error initializing sentry client")
	}

	scope := sentry.NewScope()
	scope.SetTag("app", appName)
	for key, value := range settings.Tags {
		if value != "" {
			scope.SetTag(key, value)
		}
	}
	hub := sentry.NewHub(client, scope)

	hook := sentrylogrus.NewLogHookFromClient([]logrus.Level{
		logrus.ErrorLevel,
		logrus.FatalLevel,
		logrus.PanicLevel,
	}, client)
	logger.AddHook(hook)

	flush := func() {
		hub.Flush(flushTimeout)
	}

	return hub, flush, nil
}

func boolTag(value bool) string {
	if value {
		return "true"
	}
	return "false"
}

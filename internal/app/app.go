// Package app wires a niforms registry from configuration.
package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pthm/niforms"
	"github.com/pthm/niforms/honeypot"
	"github.com/pthm/niforms/lib/config"
	"github.com/pthm/niforms/lib/processors"
)

// App is a configured form system.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Cache    *niforms.FormCache
	Registry *niforms.Registry
	Honeypot *honeypot.Honeypot
	Evictor  *honeypot.Evictor

	closers []io.Closer
}

// NewLogger builds the process logger from the logging settings. verbose
// forces debug level.
func NewLogger(cfg config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging.level: %w", err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// New builds the registry, registers the stock processors and, when
// enabled, the honeypot.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	key := cfg.CacheKey()
	if len(key) == 0 {
		logger.Warn("cache.key not set, using a random key; cached forms will not survive a restart")
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate random key: %w", err)
		}
	}

	cache, err := niforms.NewFormCache(cfg.Cache.Dir, key, cfg.Cache.Sensitive)
	if err != nil {
		return nil, err
	}

	opts := []niforms.Option{
		niforms.WithLogger(logger),
		niforms.WithStripSlashes(cfg.Submit.StripSlashes),
	}
	if cfg.SanitizeResponses {
		opts = append(opts, niforms.WithSanitizer(bluemonday.UGCPolicy()))
	}
	reg := niforms.NewRegistry(cache, opts...)
	reg.SetDefaultSuccessMessage(cfg.Messages.Success)
	reg.SetDefaultFailureMessage(cfg.Messages.Failure)

	processors.RegisterDefaults(reg, cfg.Server.BaseURL, &processors.Email{
		To:      cfg.Email.To,
		Subject: cfg.Email.Subject,
		Mailer:  processors.LogMailer{Logger: logger.Named("mail")},
	})

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Cache:    cache,
		Registry: reg,
	}

	if cfg.Honeypot.Enabled {
		store, err := a.openHoneypotStore(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Honeypot = honeypot.Register(reg, store)
		a.Evictor = &honeypot.Evictor{
			Store:    store,
			Interval: cfg.HoneypotEvictInterval(),
			MaxAge:   cfg.HoneypotMaxAge(),
			Logger:   logger.Named("honeypot"),
		}
	}

	return a, nil
}

func (a *App) openHoneypotStore(ctx context.Context) (honeypot.Store, error) {
	switch a.Config.Honeypot.Store {
	case "sql":
		store, err := honeypot.OpenSQLStore(ctx, a.Config.Honeypot.Driver, a.Config.Honeypot.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil
	default:
		return honeypot.NewSessionStore(), nil
	}
}

// Close releases the honeypot database, if any.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// Package app assembles the search engine from its collaborators and keeps it
// in step with the settings table.
package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/vdavid/vcode/internal/extract"
	"github.com/vdavid/vcode/internal/imap"
	"github.com/vdavid/vcode/internal/models"
	"github.com/vdavid/vcode/internal/permission"
	"github.com/vdavid/vcode/internal/search"
	"go.uber.org/zap"
)

// DefaultReloadInterval is how often the settings table is re-read.
const DefaultReloadInterval = time.Minute

// Storage is everything the engine reads from the database.
type Storage interface {
	search.ServerSource
	search.SubjectCatalog
	permission.Store
	Settings(ctx context.Context) (models.Settings, []string, error)
}

// Services are the settings-independent collaborators.
type Services struct {
	Storage   Storage
	Secrets   imap.Decrypter
	Cache     search.ResultStore
	Metrics   search.Recorder
	Log       *zap.Logger
	Now       func() time.Time
	Plaintext bool
}

// Engine is one immutable settings snapshot with everything built from it.
type Engine struct {
	Settings     models.Settings
	Orchestrator *search.Orchestrator
	Filter       *permission.Filter
}

// Runtime serves searches from the current Engine and swaps it on reload.
type Runtime struct {
	services  Services
	extractor *extract.Extractor
	current   atomic.Pointer[Engine]
	log       *zap.Logger
}

// NewRuntime loads the settings once and builds the first Engine.
func NewRuntime(ctx context.Context, services Services) (*Runtime, error) {
	if services.Log == nil {
		services.Log = zap.NewNop()
	}
	if services.Now == nil {
		services.Now = time.Now
	}

	r := &Runtime{
		services:  services,
		extractor: extract.New(services.Log),
		log:       services.Log.Named("app"),
	}

	settings, err := r.loadSettings(ctx)
	if err != nil {
		return nil, err
	}
	r.current.Store(r.build(settings))
	return r, nil
}

func (r *Runtime) loadSettings(ctx context.Context) (models.Settings, error) {
	settings, rejected, err := r.services.Storage.Settings(ctx)
	if err != nil {
		return settings, fmt.Errorf("failed to load settings: %w", err)
	}
	if len(rejected) > 0 {
		r.log.Warn("ignoring invalid settings values", zap.Strings("keys", rejected))
	}
	return settings, nil
}

func (r *Runtime) build(settings models.Settings) *Engine {
	s := r.services
	filter := permission.NewFilter(settings, s.Storage, s.Log)
	return &Engine{
		Settings: settings,
		Filter:   filter,
		Orchestrator: search.NewOrchestrator(settings, search.Deps{
			Servers:   s.Storage,
			Catalog:   s.Storage,
			Access:    filter,
			Opener:    imap.NewDialer(s.Secrets, settings.ConnectionTimeout, s.Plaintext, s.Log),
			Extractor: r.extractor,
			Cache:     s.Cache,
			Metrics:   s.Metrics,
			Log:       s.Log,
			Now:       s.Now,
		}),
	}
}

// Current returns the Engine in use.
func (r *Runtime) Current() *Engine {
	return r.current.Load()
}

// Search runs on the Engine current at call time; a concurrent reload does not affect it.
func (r *Runtime) Search(ctx context.Context, req models.SearchRequest) *models.SearchResult {
	return r.Current().Orchestrator.Search(ctx, req)
}

// Grant answers with the current Engine's permission filter.
func (r *Runtime) Grant(ctx context.Context, userID int64, platforms []models.Platform) (models.PermissionGrant, error) {
	return r.Current().Filter.Grant(ctx, userID, platforms)
}

// Reload re-reads the settings and swaps the Engine when they changed.
// On a load error the current Engine stays in place.
func (r *Runtime) Reload(ctx context.Context) (bool, error) {
	settings, err := r.loadSettings(ctx)
	if err != nil {
		return false, err
	}
	if settings == r.Current().Settings {
		return false, nil
	}

	r.current.Store(r.build(settings))
	r.log.Info("settings reloaded",
		zap.Bool("email_auth_enabled", settings.EmailAuthEnabled),
		zap.Bool("early_stop", settings.EarlyStop),
		zap.Int("lookback_hours", settings.LookbackHours),
		zap.Int("received_window_minutes", settings.ReceivedWindowMinutes))
	return true, nil
}

// RunReloader calls Reload every interval until ctx is canceled.
func (r *Runtime) RunReloader(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultReloadInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.Reload(ctx); err != nil && ctx.Err() == nil {
				r.log.Warn("settings reload failed, keeping previous snapshot", zap.Error(err))
			}
		}
	}
}

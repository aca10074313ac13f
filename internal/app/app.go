package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/accessmap/gateway/internal/config"
	"github.com/accessmap/gateway/internal/modules/places"
	"github.com/accessmap/gateway/internal/modules/summary"
	"github.com/accessmap/gateway/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// Deps are the external collaborators the HTTP surface is built on.
type Deps struct {
	Store     store.Store
	Generator summary.Generator
	Maps      places.MapsClient
	// Locker is optional; nil lets concurrent misses of one place race.
	Locker summary.Locker
	// Checks are run by GET /health, keyed by component name.
	Checks map[string]func(context.Context) error
}

// App holds all application dependencies.
type App struct {
	cfg      *config.AppConfig
	router   *gin.Engine
	logger   *zap.Logger
	deps     Deps
	registry *prometheus.Registry
	closers  []func(context.Context) error
}

// New initializes the application: runtime settings, store, locker, clients, routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := applyRuntimeSettings(cfg); err != nil {
		return nil, err
	}

	b := &backends{cfg: cfg, logger: logger, checks: map[string]func(context.Context) error{}}
	deps, err := b.open(context.Background())
	if err != nil {
		b.close(context.Background())
		return nil, err
	}

	a := NewWithDeps(logger, cfg, deps)
	a.closers = b.closers
	return a, nil
}

// NewWithDeps builds the router over already constructed dependencies.
func NewWithDeps(logger *zap.Logger, cfg *config.AppConfig, deps Deps) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &App{
		cfg:      cfg,
		router:   gin.New(),
		logger:   logger,
		deps:     deps,
		registry: registry,
	}
	a.registerRoutes()
	return a
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown releases store and lock connections.
func (a *App) Shutdown(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("close dependency failed", zap.Error(err))
		}
	}
	a.closers = nil
}

var processStart = time.Now()

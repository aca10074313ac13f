package app

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/accessmap/gateway/internal/middleware"
	"github.com/accessmap/gateway/internal/modules/places"
	"github.com/accessmap/gateway/internal/modules/review"
	"github.com/accessmap/gateway/internal/modules/summary"
	"github.com/accessmap/gateway/internal/pkg/response"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	apiPrefix          = "/api"
	healthCheckTimeout = 2 * time.Second
)

func (a *App) registerRoutes() {
	r := a.router
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(a.logger, "/health", "/metrics"))
	r.Use(cors.New(corsConfig(a.cfg.AllowedOrigins, a.cfg.IsDev())))

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": "accessmap-gateway", "version": "1.0.0"})
	})
	r.GET("/health", a.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	api := r.Group(apiPrefix)

	mgr := summary.NewManager(a.deps.Store, a.deps.Store, a.deps.Generator, summary.Config{
		Model:       a.cfg.AI.SummaryModel,
		FetchLimit:  a.cfg.Summary.FetchLimit,
		PromptLimit: a.cfg.Summary.PromptLimit,
		Locker:      a.deps.Locker,
		Metrics:     summary.NewMetrics(a.registry),
		Logger:      a.logger.Named("summary"),
	})
	summary.NewHandler(mgr, a.logger).RegisterRoutes(api)
	places.NewHandler(places.NewService(a.deps.Maps), a.logger).RegisterRoutes(api)
	review.NewHandler(review.NewService(a.deps.Store), a.logger).RegisterRoutes(api)
}

// GET /health reports 503 when any dependency check fails.
func (a *App) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(a.deps.Checks))
	for name := range a.deps.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "ok", http.StatusOK
	checks := make(gin.H, len(names))
	for _, name := range names {
		if err := a.deps.Checks[name](ctx); err != nil {
			checks[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status": status,
		"store":  a.cfg.Store.Driver,
		"uptime": int64(time.Since(processStart).Seconds()),
		"checks": checks,
	})
}

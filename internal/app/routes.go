package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/campus-assist-go/internal/directory"
	"github.com/garyellow/campus-assist-go/internal/sentry"
)

// newRouter configures middleware and all HTTP routes.
func (a *Application) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sentry.Middleware())
	router.Use(securityHeadersMiddleware())
	router.Use(requestContextMiddleware())
	router.Use(loggingMiddleware(a.logger, a.metrics))

	// Pages
	router.GET("/", a.dashboard)
	for _, kind := range directory.Kinds {
		router.GET("/"+string(kind), a.directoryPage(kind))
	}
	router.GET("/ask", a.askForm)
	router.POST("/ask", a.askSubmit)

	// JSON API, gated on warmup
	api := router.Group("/api/v1", a.readinessMiddleware())
	for _, kind := range directory.Kinds {
		api.GET("/"+string(kind), a.apiTable(kind))
	}
	api.GET("/availability", a.apiAvailability)
	api.POST("/ask", a.apiAsk)

	// Health
	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)

	router.GET("/metrics",
		basicAuth("metrics", a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	// Manual reload, only exposed when operator credentials are set.
	if a.cfg.MetricsPassword != "" {
		router.POST("/admin/refresh",
			basicAuth("admin", a.cfg.MetricsUsername, a.cfg.MetricsPassword),
			a.adminRefresh)
	}

	router.NoRoute(func(c *gin.Context) {
		a.views.render(c, http.StatusNotFound, "error.html", errorPage{
			layoutData: a.layout("Not found", ""),
			Message:    "The page you requested does not exist.",
		})
	})
	return router
}

package ginsrv

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

func SetupRouter(routes []Route, middlewares ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()

	// Apply middlewares in reverse order
	for i := len(middlewares) - 1; i >= 0; i-- {
		router.Use(middlewares[i])
	}

	// Generate all the routes
	for _, route := range routes {
		router.Handle(route.Method, route.Path, route.Handler)
	}

	return router
}

// HealthCheck reports whether the process is healthy. A nil error is healthy.
type HealthCheck func(ctx context.Context) error

// MetricsRoute serves the metrics gathered by g on GET /metrics.
func MetricsRoute(g prometheus.Gatherer) Route {
	return Route{
		Method:  http.MethodGet,
		Path:    "/metrics",
		Handler: gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{})),
	}
}

// HealthRoute serves GET /healthz: 200 with {"status":"ok"} when every check
// passes, 503 with the first failure otherwise.
func HealthRoute(checks ...HealthCheck) Route {
	return Route{
		Method: http.MethodGet,
		Path:   "/healthz",
		Handler: func(c *gin.Context) {
			for _, check := range checks {
				if err := check(c.Request.Context()); err != nil {
					c.JSON(http.StatusServiceUnavailable, gin.H{
						"status": "unhealthy",
						"error":  err.Error(),
					})
					return
				}
			}
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		},
	}
}

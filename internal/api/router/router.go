package router

import (
	"context"
	"net/http"
	"time"

	"github.com/cuongbtq/signup-harvester/internal/api/handler"
	"github.com/cuongbtq/signup-harvester/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", healthHandler(deps))

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(gatherer)))
	}

	resultHandler := handler.NewResultHandler(deps)

	v1 := r.Group("/api/v1")
	{
		results := v1.Group("/results")
		{
			// GET /api/v1/results - List results with filtering and pagination
			results.GET("", resultHandler.ListResults)

			// GET /api/v1/results/summary - Counts per status
			results.GET("/summary", resultHandler.Summary)

			// GET /api/v1/results/:id - Get one result
			results.GET("/:id", resultHandler.GetResult)
		}
	}

	return r
}

func healthHandler(deps *handler.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
			defer cancel()

			if err := deps.Health.HealthCheck(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": deps.ServiceName,
					"error":   err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": deps.ServiceName,
		})
	}
}

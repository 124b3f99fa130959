package httpapi

import (
	"time"

	"goreal-engine/pkg/config"
	"goreal-engine/pkg/health"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("httpapi",
	fx.Provide(NewHandler, ProvideRouter),
)

func ProvideRouter(cfg *config.Config, h *Handler, hc health.HealthService) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", hc.Liveness)
	r.GET("/readyz", hc.Readiness)

	v1 := r.Group("/v1")
	{
		v1.POST("/users/:user_id/sync", h.Sync)
		v1.GET("/users/:user_id", h.GetAccount)
		v1.GET("/users/:user_id/activities", h.ActivityHistory)
		v1.GET("/users/:user_id/notifications", h.ListNotifications)
		v1.POST("/notifications/:id/read", h.MarkNotificationRead)
		v1.POST("/users/:user_id/strava/connect", h.ConnectStrava)
		v1.DELETE("/users/:user_id/strava", h.DisconnectStrava)
		v1.GET("/rankings/:window", h.Rankings)
	}

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		zap.L().Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

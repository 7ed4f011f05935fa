// Package api assembles the gin engines both services serve.
package api

import (
	"net/http"
	"time"

	"task-ledger/internal/api/handler"
	"task-ledger/internal/api/middleware"
	"task-ledger/internal/core/ports"
	"task-ledger/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewRouter returns an engine with recovery, request logging, /healthz and
// /metrics. The accounting service serves only this.
func NewRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

// NewTrackerRouter adds the task API behind the caller middleware.
func NewTrackerRouter(users ports.UserRepository, tasks *handler.TaskHandler) *gin.Engine {
	router := NewRouter()
	api := router.Group("/api", middleware.Caller(users))
	tasks.Register(api)
	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.FullPath() == "/healthz" || c.FullPath() == "/metrics" {
			return
		}
		logging.Logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("request handled")
	}
}

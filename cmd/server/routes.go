// Package main provides the chatgate server entry point.
package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yuchenlin/chatgate-go/internal/buildinfo"
	"github.com/yuchenlin/chatgate-go/internal/config"
	"github.com/yuchenlin/chatgate-go/internal/storage"
	"github.com/yuchenlin/chatgate-go/internal/webhook"
)

// setupRoutes configures all HTTP routes
func setupRoutes(router *gin.Engine, cfg *config.Config, webhookHandler *webhook.Handler, db *storage.DB, registry *prometheus.Registry) {
	// Root endpoint - build identification
	rootHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "chatgate",
			"version": buildinfo.Short(),
		})
	}
	router.GET("/", rootHandler)
	router.HEAD("/", rootHandler)

	// Liveness probe - only that the process is running, no dependencies
	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/healthz", healthHandler)
	router.HEAD("/healthz", healthHandler)

	// Readiness probe - full dependency check
	readyHandler := func(c *gin.Context) {
		if err := db.Ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": err.Error(),
			})
			return
		}

		deliveries, _ := db.CountByResult(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"database":   "connected",
			"deliveries": deliveries,
		})
	}
	router.GET("/readyz", readyHandler)
	router.HEAD("/readyz", readyHandler)

	// Provider webhook endpoint
	router.POST("/webhook", webhookHandler.Handle)

	// Operator endpoints share the metrics Basic Auth guard
	auth := metricsAuthMiddleware(cfg)

	router.GET("/metrics", auth, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	router.GET("/admin/deliveries.ndjson.gz", auth, func(c *gin.Context) {
		c.Header("Content-Type", "application/x-ndjson")
		c.Header("Content-Encoding", "gzip")
		c.Header("Content-Disposition", `attachment; filename="deliveries.ndjson.gz"`)

		gz := gzip.NewWriter(c.Writer)
		if err := db.ExportNDJSON(c.Request.Context(), gz); err != nil {
			_ = gz.Close()
			c.Status(http.StatusInternalServerError)
			return
		}
		if err := gz.Close(); err != nil {
			c.Status(http.StatusInternalServerError)
		}
	})
}

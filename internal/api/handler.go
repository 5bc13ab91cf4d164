package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"receiving-service/internal/models"
	"receiving-service/internal/scanner"
	"receiving-service/internal/service"
	"receiving-service/internal/util"
	"receiving-service/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ReadinessCheck reports whether a dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// Handler contains HTTP handlers
type Handler struct {
	catalog  *service.CatalogService
	ledger   *service.LedgerService
	sessions *workflow.Manager
	scans    *scanner.Coordinator
	checks   map[string]ReadinessCheck
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler. scans may be nil when no capture device is configured.
func NewHandler(
	catalog *service.CatalogService,
	ledger *service.LedgerService,
	sessions *workflow.Manager,
	scans *scanner.Coordinator,
) *Handler {
	return &Handler{
		catalog:  catalog,
		ledger:   ledger,
		sessions: sessions,
		scans:    scans,
		checks:   make(map[string]ReadinessCheck),
		logger:   util.GetLogger(),
	}
}

// AddReadinessCheck registers a dependency probed by /ready
func (h *Handler) AddReadinessCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products/:barcode", h.getProduct)
		v1.POST("/products", h.createProduct)
		v1.PUT("/products/:barcode", h.updateProduct)
		v1.POST("/products/import", h.importProducts)

		v1.GET("/imports", h.listImports)
		v1.GET("/imports/export", h.exportImports)
		v1.GET("/imports/:id", h.getImport)
		v1.PUT("/imports/:id", h.updateImport)
		v1.DELETE("/imports/:id", h.deleteImport)

		v1.POST("/admin/wipe", h.wipe)

		v1.POST("/sessions", h.createSession)
		v1.GET("/sessions/:id", h.getSession)
		v1.DELETE("/sessions/:id", h.deleteSession)
		v1.POST("/sessions/:id/resolve", h.resolve)
		v1.POST("/sessions/:id/recompute", h.recompute)
		v1.POST("/sessions/:id/select/:recordID", h.selectRecord)
		v1.POST("/sessions/:id/commit", h.commit)
		v1.DELETE("/sessions/:id/selected", h.deleteSelected)
		v1.POST("/sessions/:id/clear", h.clearSession)
		v1.POST("/sessions/:id/scan", h.startScan)
		v1.GET("/sessions/:id/scan", h.scanStatus)
		v1.DELETE("/sessions/:id/scan", h.cancelScan)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps domain errors onto status codes
func (h *Handler) respondError(c *gin.Context, message string, err error) {
	h.respondErrorWith(c, message, err, nil)
}

func (h *Handler) respondErrorWith(c *gin.Context, message string, err error, extra gin.H) {
	body := gin.H{
		"error":   message,
		"details": err.Error(),
	}
	for k, v := range extra {
		body[k] = v
	}

	if field, ok := models.ValidationField(err); ok {
		body["field"] = field
		c.JSON(http.StatusUnprocessableEntity, body)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrResourceUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, scanner.ErrScanInProgress):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(message, zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.JSON(status, body)
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid record ID",
		})
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"farm-order-mailer/internal/dispatchlog"
	"farm-order-mailer/internal/metrics"
	"farm-order-mailer/internal/queue"
	"farm-order-mailer/internal/scheduler"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	db         *gorm.DB
	rdb        *redis.Client
	queue      *queue.Queue
	scheduler  *scheduler.Scheduler
	logs       *dispatchlog.Repo
	metrics    *metrics.Metrics
	cronSecret string
}

// NewHandlers creates new HTTP handlers
func NewHandlers(db *gorm.DB, rdb *redis.Client, q *queue.Queue, sched *scheduler.Scheduler, logs *dispatchlog.Repo, m *metrics.Metrics, cronSecret string) *Handlers {
	return &Handlers{
		db:         db,
		rdb:        rdb,
		queue:      q,
		scheduler:  sched,
		logs:       logs,
		metrics:    m,
		cronSecret: cronSecret,
	}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	// Health check
	router.GET("/healthz", h.HealthCheck)

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := router.Group("/api/v1")
	{
		// Order lifecycle notifications (called by the order-management system)
		api.POST("/notify/order-placed", h.NotifyOrderPlaced)
		api.POST("/notify/order-status", h.NotifyOrderStatus)

		// Worker trigger (external cron) and queue introspection
		api.POST("/worker/run", h.RunWorker)
		api.GET("/queue/status", h.QueueStatus)

		// Scheduler control
		api.POST("/scheduler/start", h.StartScheduler)
		api.POST("/scheduler/stop", h.StopScheduler)
		api.GET("/scheduler/status", h.GetSchedulerStatus)

		// Dispatch logs
		api.GET("/logs", h.GetLogs)
		api.GET("/logs/:id", h.GetLog)
	}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Database:  "ok",
		Redis:     "ok",
		Metrics:   make(map[string]string),
	}

	// Check database connection
	if err := h.db.Raw("SELECT 1").Error; err != nil {
		response.Status = "error"
		response.Database = "error"
		logrus.Errorf("Database health check failed: %v", err)
	}

	// Check job store connection
	if err := h.rdb.Ping(c.Request.Context()).Err(); err != nil {
		response.Status = "error"
		response.Redis = "error"
		logrus.Errorf("Redis health check failed: %v", err)
	}

	// Check scheduler status
	if h.scheduler.IsRunning() {
		response.Metrics["scheduler"] = "running"
		response.Metrics["next_run"] = h.scheduler.GetNextRun().Format(time.RFC3339)
		response.Metrics["last_run"] = h.scheduler.GetLastRun().Format(time.RFC3339)
	} else {
		response.Metrics["scheduler"] = "stopped"
	}

	if length, err := h.queue.Length(c.Request.Context()); err == nil {
		response.Metrics["queue_length"] = strconv.FormatInt(length, 10)
	}

	statusCode := http.StatusOK
	if response.Status == "error" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}

// NotifyOrderPlaced enqueues order-placed notifications for the customer and
// each configured admin address. Enqueuing is best-effort: the caller gets a
// 202 with admission counts and must never treat a partial admission as a
// reason to roll back the order.
func (h *Handlers) NotifyOrderPlaced(c *gin.Context) {
	var req OrderNotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
			Code:    http.StatusBadRequest,
		})
		return
	}

	if req.Order.OrderNumber == "" || req.Order.CustomerEmail == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "order_number and customer_email are required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	results := h.queue.EnqueueOrderPlaced(c.Request.Context(), &req.Order)
	c.JSON(http.StatusAccepted, h.admissionResponse(results))
}

// NotifyOrderStatus enqueues a single status-change notification for the
// customer, keyed on the new status.
func (h *Handlers) NotifyOrderStatus(c *gin.Context) {
	var req StatusNotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
			Code:    http.StatusBadRequest,
		})
		return
	}

	if req.Order.OrderNumber == "" || req.Order.CustomerEmail == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "order_number and customer_email are required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	result := h.queue.EnqueueOrderStatus(c.Request.Context(), &req.Order, req.NewStatus)
	c.JSON(http.StatusAccepted, h.admissionResponse([]queue.Admission{result}))
}

func (h *Handlers) admissionResponse(results []queue.Admission) NotifyResponse {
	var resp NotifyResponse
	for _, r := range results {
		if r.Err != nil {
			// Logged at enqueue time; the notification is simply lost.
			resp.Skipped++
			continue
		}
		if r.Admitted {
			resp.Admitted++
			resp.JobIDs = append(resp.JobIDs, r.Job.ID)
			h.metrics.JobsEnqueued.Inc()
		} else {
			resp.Skipped++
			h.metrics.DedupeSkips.Inc()
		}
	}
	return resp
}

// verifyCronSecret checks the shared secret on the worker trigger endpoint.
// With no secret configured, all requests are rejected.
func (h *Handlers) verifyCronSecret(c *gin.Context) bool {
	if h.cronSecret == "" {
		logrus.Error("CRON_SECRET not configured")
		return false
	}

	provided := c.GetHeader("X-Cron-Secret")
	if provided == "" {
		provided = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	return provided == h.cronSecret
}

// RunWorker processes one batch of queued email jobs and returns the batch
// summary. Per-job failures are part of the summary, never an error status;
// only a store-level failure produces a 500.
func (h *Handlers) RunWorker(c *gin.Context) {
	if !h.verifyCronSecret(c) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or missing cron secret",
			Code:    http.StatusUnauthorized,
		})
		return
	}

	summary, err := h.scheduler.RunOnce(c.Request.Context())
	if err != nil {
		logrus.Errorf("Email batch failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":       "batch_error",
			"processed":   summary.Processed,
			"succeeded":   summary.Succeeded,
			"failed":      summary.Failed,
			"requeued":    summary.Requeued,
			"queueLength": summary.QueueLength,
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// QueueStatus reports the current queue depth
func (h *Handlers) QueueStatus(c *gin.Context) {
	length, err := h.queue.Length(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "store_error",
			Message: "Failed to read queue length",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, QueueStatusResponse{QueueLength: length})
}

// StartScheduler starts the periodic email worker
func (h *Handlers) StartScheduler(c *gin.Context) {
	if err := h.scheduler.Start(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "scheduler_error",
			Message: "Failed to start scheduler",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Scheduler started successfully",
		"status":  "running",
	})
}

// StopScheduler stops the periodic email worker
func (h *Handlers) StopScheduler(c *gin.Context) {
	if err := h.scheduler.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "scheduler_error",
			Message: "Failed to stop scheduler",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Scheduler stopped successfully",
		"status":  "stopped",
	})
}

// GetSchedulerStatus returns the current scheduler status
func (h *Handlers) GetSchedulerStatus(c *gin.Context) {
	status := "stopped"
	if h.scheduler.IsRunning() {
		status = "running"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"next_run": h.scheduler.GetNextRun(),
		"last_run": h.scheduler.GetLastRun(),
	})
}

// GetLogs returns dispatch logs with pagination
func (h *Handlers) GetLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	offset := (page - 1) * limit

	entries, total, err := h.logs.List(offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch logs",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs": entries,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetLog returns a specific dispatch log entry
func (h *Handlers) GetLog(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid log ID",
			Code:    http.StatusBadRequest,
		})
		return
	}

	entry, err := h.logs.Get(uint(id))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Log not found",
				Code:    http.StatusNotFound,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch log",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, entry)
}

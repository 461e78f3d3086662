package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farm-order-mailer/internal/mailer"
	"farm-order-mailer/internal/metrics"
	"farm-order-mailer/internal/queue"
	"farm-order-mailer/internal/scheduler"
	"farm-order-mailer/internal/worker"
)

var (
	testMetricsOnce sync.Once
	testMetrics     *metrics.Metrics
)

// sharedMetrics returns a process-wide metrics instance. Prometheus
// collectors register globally, so tests must not create a second set.
func sharedMetrics() *metrics.Metrics {
	testMetricsOnce.Do(func() {
		testMetrics = metrics.NewMetrics()
	})
	return testMetrics
}

type captureSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *captureSender) Send(to, subject, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, to)
	return nil
}

func newTestRouter(t *testing.T, adminEmails []string, cronSecret string) (*gin.Engine, *captureSender) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	q := queue.New(queue.NewMemoryStore(), adminEmails, queue.DefaultMaxAttempts)
	renderer, err := mailer.NewRenderer("https://skygrowers.com")
	require.NoError(t, err)
	sender := &captureSender{}
	w := worker.New(q, renderer, sender, nil, worker.DefaultBatchSize)
	sched := scheduler.NewScheduler(&scheduler.Config{IntervalMinutes: 5}, w, nil)

	h := NewHandlers(nil, nil, q, sched, nil, sharedMetrics(), cronSecret)

	router := gin.New()
	h.SetupRoutes(router)
	return router, sender
}

func orderBody(t *testing.T, number string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"order": map[string]interface{}{
			"order_number":   number,
			"customer_name":  "Jo Harper",
			"customer_email": "jo@example.com",
			"status":         "pending",
			"items": []map[string]interface{}{
				{"product_name": "Carrots", "quantity": 5, "unit": "kg"},
			},
			"created_at": time.Now(),
		},
	})
	require.NoError(t, err)
	return body
}

func TestNotifyOrderPlaced(t *testing.T) {
	router, _ := newTestRouter(t, []string{"orders@skygrowers.com", "warehouse@skygrowers.com"}, "")

	req := httptest.NewRequest("POST", "/api/v1/notify/order-placed", bytes.NewReader(orderBody(t, "SG-100")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp NotifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Admitted, "one customer job plus one per admin address")
	assert.Equal(t, 0, resp.Skipped)
	assert.Len(t, resp.JobIDs, 3)
}

func TestNotifyOrderPlacedValidation(t *testing.T) {
	router, _ := newTestRouter(t, nil, "")

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{order}`},
		{"missing order number", `{"order":{"customer_email":"jo@example.com"}}`},
		{"missing customer email", `{"order":{"order_number":"SG-1"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/notify/order-placed", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "validation_error", resp.Error)
		})
	}
}

func TestNotifyOrderStatus(t *testing.T) {
	router, _ := newTestRouter(t, nil, "")

	body, err := json.Marshal(map[string]interface{}{
		"order": map[string]interface{}{
			"order_number":   "SG-200",
			"customer_name":  "Jo Harper",
			"customer_email": "jo@example.com",
			"status":         "pending",
		},
		"new_status": "confirmed",
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/notify/order-status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp NotifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Admitted)
	assert.Len(t, resp.JobIDs, 1)
}

func TestRunWorkerAuth(t *testing.T) {
	t.Run("no secret configured rejects all", func(t *testing.T) {
		router, _ := newTestRouter(t, nil, "")
		req := httptest.NewRequest("POST", "/api/v1/worker/run", nil)
		req.Header.Set("X-Cron-Secret", "anything")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		router, _ := newTestRouter(t, nil, "s3cret")
		req := httptest.NewRequest("POST", "/api/v1/worker/run", nil)
		req.Header.Set("X-Cron-Secret", "wrong")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("header secret accepted", func(t *testing.T) {
		router, _ := newTestRouter(t, nil, "s3cret")
		req := httptest.NewRequest("POST", "/api/v1/worker/run", nil)
		req.Header.Set("X-Cron-Secret", "s3cret")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("bearer token accepted", func(t *testing.T) {
		router, _ := newTestRouter(t, nil, "s3cret")
		req := httptest.NewRequest("POST", "/api/v1/worker/run", nil)
		req.Header.Set("Authorization", "Bearer s3cret")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRunWorkerDrainsQueue(t *testing.T) {
	router, sender := newTestRouter(t, nil, "s3cret")

	req := httptest.NewRequest("POST", "/api/v1/notify/order-placed", bytes.NewReader(orderBody(t, "SG-300")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	req = httptest.NewRequest("POST", "/api/v1/worker/run", nil)
	req.Header.Set("X-Cron-Secret", "s3cret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary worker.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Succeeded)
	assert.EqualValues(t, 0, summary.QueueLength)
	assert.Equal(t, []string{"jo@example.com"}, sender.sent)
}

func TestQueueStatus(t *testing.T) {
	router, _ := newTestRouter(t, nil, "")

	req := httptest.NewRequest("POST", "/api/v1/notify/order-placed", bytes.NewReader(orderBody(t, "SG-400")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	req = httptest.NewRequest("GET", "/api/v1/queue/status", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp QueueStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp.QueueLength)
}

func TestSchedulerEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, nil, "")

	req := httptest.NewRequest("GET", "/api/v1/scheduler/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"stopped"`)

	req = httptest.NewRequest("POST", "/api/v1/scheduler/start", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest("GET", "/api/v1/scheduler/status", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), `"status":"running"`)

	req = httptest.NewRequest("POST", "/api/v1/scheduler/stop", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Redis:  RedisConfig{Addr: "localhost:6379"},
		Database: DatabaseConfig{
			Host:   "localhost",
			Port:   3306,
			User:   "mailer",
			DBName: "farm_orders",
		},
		SMTP: mailer.SMTPConfig{
			Host:     "smtp.zoho.com",
			Port:     587,
			User:     "noreply@skygrowers.com",
			Password: "secret",
		},
		Scheduler: scheduler.Config{IntervalMinutes: 5},
		Worker:    WorkerConfig{BatchSize: 10, MaxAttempts: 3},
		SiteURL:   "https://skygrowers.com",
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing server port", func(c *Config) { c.Server.Port = "" }},
		{"missing redis addr", func(c *Config) { c.Redis.Addr = "" }},
		{"missing database host", func(c *Config) { c.Database.Host = "" }},
		{"missing database user", func(c *Config) { c.Database.User = "" }},
		{"missing smtp password", func(c *Config) { c.SMTP.Password = "" }},
		{"zero interval", func(c *Config) { c.Scheduler.IntervalMinutes = 0 }},
		{"zero batch size", func(c *Config) { c.Worker.BatchSize = 0 }},
		{"zero max attempts", func(c *Config) { c.Worker.MaxAttempts = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetDSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "db.internal",
		Port:     3306,
		User:     "mailer",
		Password: "pw",
		DBName:   "farm_orders",
	}
	want := "mailer:pw@tcp(db.internal:3306)/farm_orders?charset=utf8mb4&parseTime=True&loc=Local"
	assert.Equal(t, want, cfg.GetDSN())
}

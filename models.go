package main

import (
	"time"

	"farm-order-mailer/internal/order"
)

// OrderNotifyRequest is the body for the order-placed endpoint: the order
// snapshot as the order-management system sees it.
type OrderNotifyRequest struct {
	Order order.Order `json:"order" binding:"required"`
}

// StatusNotifyRequest is the body for the order-status endpoint.
type StatusNotifyRequest struct {
	Order     order.Order `json:"order" binding:"required"`
	NewStatus string      `json:"new_status" binding:"required"`
}

// NotifyResponse reports how many jobs were admitted versus skipped as
// duplicates. Enqueuing is best-effort; callers may ignore this entirely.
type NotifyResponse struct {
	Admitted int      `json:"admitted"`
	Skipped  int      `json:"skipped"`
	JobIDs   []string `json:"job_ids,omitempty"`
}

// QueueStatusResponse reports the current queue depth.
type QueueStatusResponse struct {
	QueueLength int64 `json:"queue_length"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Database  string            `json:"database"`
	Redis     string            `json:"redis"`
	Metrics   map[string]string `json:"metrics,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

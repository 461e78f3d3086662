package queue

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"farm-order-mailer/internal/order"
)

// EmailType identifies which notification a job delivers. The set is closed;
// adding a new notification requires a code change, not a data change.
type EmailType string

const (
	TypeOrderPlacedUser  EmailType = "order_placed_user"
	TypeOrderPlacedAdmin EmailType = "order_placed_admin"
	TypeOrderStatus      EmailType = "order_status"
)

// Redis key layout.
const (
	queueKey     = "email:queue"
	jobPrefix    = "email:job:"
	dedupePrefix = "email:dedupe:"
)

const (
	// DefaultMaxAttempts bounds delivery attempts per job.
	DefaultMaxAttempts = 3
	// JobTTL bounds how long an orphaned envelope may linger in the store.
	JobTTL = 24 * time.Hour
	// DedupeTTL is the window within which a successfully delivered
	// notification suppresses re-admission of the same dedupe key.
	DedupeTTL = time.Hour
)

// Job is the unit of queued work. Immutable after creation except for
// Attempts, which only increases.
type Job struct {
	ID          string      `json:"id"`
	Type        EmailType   `json:"type"`
	To          string      `json:"to"`
	Payload     order.Order `json:"payload"`
	Attempts    int         `json:"attempts"`
	MaxAttempts int         `json:"max_attempts"`
	CreatedAt   time.Time   `json:"created_at"`
}

// DedupeKey derives the idempotence key for a job. Placed-order notifications
// are keyed per order per type; status notifications additionally carry the
// status so that distinct transitions (confirmed, delivered, ...) each get
// their own email.
func DedupeKey(t EmailType, orderID, status string) string {
	if t == TypeOrderPlacedUser || t == TypeOrderPlacedAdmin {
		return fmt.Sprintf("%s:%s", t, orderID)
	}
	return fmt.Sprintf("%s:%s:%s", t, orderID, status)
}

func (j *Job) dedupeKey() string {
	return DedupeKey(j.Type, j.Payload.OrderID, j.Payload.Status)
}

// NewJobID generates an identifier unique with overwhelming probability under
// concurrent producers: millisecond timestamp plus a random base-36 suffix.
// No coordination with other producers is needed.
func NewJobID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + strconv.FormatInt(rand.Int63n(1<<47), 36)
}

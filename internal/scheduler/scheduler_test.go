package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farm-order-mailer/internal/mailer"
	"farm-order-mailer/internal/order"
	"farm-order-mailer/internal/queue"
	"farm-order-mailer/internal/worker"
)

type nopSender struct{ sent int }

func (s *nopSender) Send(to, subject, html string) error {
	s.sent++
	return nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *queue.Queue, *nopSender) {
	t.Helper()

	q := queue.New(queue.NewMemoryStore(), nil, queue.DefaultMaxAttempts)
	renderer, err := mailer.NewRenderer("https://farm.test")
	require.NoError(t, err)
	sender := &nopSender{}
	w := worker.New(q, renderer, sender, nil, worker.DefaultBatchSize)

	return NewScheduler(&Config{IntervalMinutes: 5}, w, nil), q, sender
}

func TestSchedulerStartStop(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	assert.False(t, s.IsRunning())
	assert.True(t, s.GetNextRun().IsZero())

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.False(t, s.GetNextRun().IsZero())

	// Starting twice is an error
	assert.Error(t, s.Start())

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())

	// Stopping an already stopped scheduler is a no-op
	assert.NoError(t, s.Stop())
}

func TestSchedulerRestart(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())

	// A restart must schedule exactly one entry and use a fresh context
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	next := s.GetNextRun()
	assert.False(t, next.IsZero())
	assert.True(t, next.After(time.Now().Add(-time.Second)))

	require.NoError(t, s.Stop())
}

func TestSchedulerRunOnce(t *testing.T) {
	s, q, sender := newTestScheduler(t)
	ctx := context.Background()

	o := order.Order{
		OrderNumber:   "SG-42",
		CustomerName:  "Jo Harper",
		CustomerEmail: "jo@example.com",
		Status:        "pending",
		Items:         []order.Item{{ProductName: "Carrots", Quantity: 5, Unit: "kg"}},
		CreatedAt:     time.Now(),
	}
	adm := q.EnqueueOrderStatus(ctx, &o, "confirmed")
	require.True(t, adm.Admitted)

	// RunOnce works regardless of whether the schedule is started
	summary, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Succeeded)
	assert.EqualValues(t, 0, summary.QueueLength)
	assert.Equal(t, 1, sender.sent)
}

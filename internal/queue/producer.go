package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"farm-order-mailer/internal/order"
)

// Queue admits email jobs into the store and hands them back out to the
// worker. All operations are best-effort from the producer side: an enqueue
// failure must never abort the order-management event that triggered it, so
// failures are reported in the Admission result rather than returned as an
// error the caller has to handle.
type Queue struct {
	store       Store
	adminEmails []string
	maxAttempts int
}

// Admission is the outcome of one attempted job admission. Callers on the
// order-creation path are free to ignore it beyond logging.
type Admission struct {
	Job      Job
	Admitted bool
	Err      error
}

func New(store Store, adminEmails []string, maxAttempts int) *Queue {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Queue{store: store, adminEmails: adminEmails, maxAttempts: maxAttempts}
}

// EnqueueOrderPlaced builds one job for the customer and one per configured
// admin address, all sharing a snapshot of the order taken now. Each job is
// independently dedupe-checked; a duplicate admin job does not block the
// customer job or vice versa.
func (q *Queue) EnqueueOrderPlaced(ctx context.Context, o *order.Order) []Admission {
	payload := o.Snapshot()
	now := time.Now()

	jobs := make([]Job, 0, 1+len(q.adminEmails))
	jobs = append(jobs, Job{
		ID:          NewJobID(),
		Type:        TypeOrderPlacedUser,
		To:          o.CustomerEmail,
		Payload:     payload,
		MaxAttempts: q.maxAttempts,
		CreatedAt:   now,
	})
	for _, admin := range q.adminEmails {
		jobs = append(jobs, Job{
			ID:          NewJobID(),
			Type:        TypeOrderPlacedAdmin,
			To:          admin,
			Payload:     payload,
			MaxAttempts: q.maxAttempts,
			CreatedAt:   now,
		})
	}

	results := make([]Admission, 0, len(jobs))
	for _, job := range jobs {
		results = append(results, q.enqueueJob(ctx, job))
	}
	return results
}

// EnqueueOrderStatus builds exactly one job notifying the customer of a
// status transition. The payload status is overridden to newStatus since the
// order passed in may not reflect the transition being announced yet.
func (q *Queue) EnqueueOrderStatus(ctx context.Context, o *order.Order, newStatus string) Admission {
	payload := o.Snapshot()
	payload.Status = newStatus

	return q.enqueueJob(ctx, Job{
		ID:          NewJobID(),
		Type:        TypeOrderStatus,
		To:          o.CustomerEmail,
		Payload:     payload,
		MaxAttempts: q.maxAttempts,
		CreatedAt:   time.Now(),
	})
}

// enqueueJob runs the admission algorithm: dedupe check, persist envelope
// with a bounded expiry, push the id onto the queue tail. The dedupe
// check-then-admit pair is not atomic against concurrent producers; two
// near-simultaneous calls can both pass the check. Accepted.
func (q *Queue) enqueueJob(ctx context.Context, job Job) Admission {
	dedupeKey := job.dedupeKey()

	dup, err := q.store.Exists(ctx, dedupePrefix+dedupeKey)
	if err != nil {
		logrus.Errorf("Failed to check dedupe key %s: %v", dedupeKey, err)
		return Admission{Job: job, Err: fmt.Errorf("dedupe check: %w", err)}
	}
	if dup {
		logrus.Infof("Skipping duplicate email job: %s", dedupeKey)
		return Admission{Job: job}
	}

	data, err := json.Marshal(job)
	if err != nil {
		return Admission{Job: job, Err: fmt.Errorf("marshal job: %w", err)}
	}
	if err := q.store.Put(ctx, jobPrefix+job.ID, string(data), JobTTL); err != nil {
		logrus.Errorf("Failed to store email job %s: %v", job.ID, err)
		return Admission{Job: job, Err: fmt.Errorf("store job: %w", err)}
	}
	if err := q.store.PushTail(ctx, queueKey, job.ID); err != nil {
		logrus.Errorf("Failed to queue email job %s: %v", job.ID, err)
		return Admission{Job: job, Err: fmt.Errorf("queue job: %w", err)}
	}

	logrus.Infof("Enqueued email job %s (%s to %s)", job.ID, job.Type, job.To)
	return Admission{Job: job, Admitted: true}
}

// Dequeue pops the next job id off the head of the queue and loads its
// envelope. popped reports whether an id came off the queue at all; a popped
// id whose envelope has expired or was already consumed yields a nil job,
// which the caller skips without counting it as processed.
func (q *Queue) Dequeue(ctx context.Context) (job *Job, popped bool, err error) {
	jobID, err := q.store.PopHead(ctx, queueKey)
	if err == ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pop queue: %w", err)
	}

	data, err := q.store.Get(ctx, jobPrefix+jobID)
	if err == ErrNotFound {
		logrus.Warnf("Job data not found for id %s, skipping", jobID)
		return nil, true, nil
	}
	if err != nil {
		return nil, true, fmt.Errorf("load job %s: %w", jobID, err)
	}

	job = new(Job)
	if err := json.Unmarshal([]byte(data), job); err != nil {
		logrus.Errorf("Dropping undecodable job %s: %v", jobID, err)
		return nil, true, nil
	}
	return job, true, nil
}

// MarkComplete resolves a successfully delivered job: the envelope is removed
// and a dedupe record is written so re-submissions within the window are
// rejected at admission. The dedupe record is written only here, never at
// enqueue time.
func (q *Queue) MarkComplete(ctx context.Context, job *Job) error {
	if err := q.store.Delete(ctx, jobPrefix+job.ID); err != nil {
		return fmt.Errorf("delete job %s: %w", job.ID, err)
	}
	if err := q.store.Put(ctx, dedupePrefix+job.dedupeKey(), "1", DedupeTTL); err != nil {
		return fmt.Errorf("mark sent %s: %w", job.ID, err)
	}
	logrus.Infof("Completed email job %s", job.ID)
	return nil
}

// RequeueWithRetry records a failed delivery attempt. While attempts remain
// the updated envelope is re-stored and the id pushed back onto the queue
// tail; once exhausted the envelope is deleted and false is returned. The
// failure is terminal, surviving only in the logs and the dispatch log.
func (q *Queue) RequeueWithRetry(ctx context.Context, job *Job, sendErr error) (bool, error) {
	job.Attempts++

	if job.Attempts >= job.MaxAttempts {
		logrus.Errorf("Email job %s failed after %d attempts, last error: %v", job.ID, job.Attempts, sendErr)
		if err := q.store.Delete(ctx, jobPrefix+job.ID); err != nil {
			return false, fmt.Errorf("delete exhausted job %s: %w", job.ID, err)
		}
		return false, nil
	}

	data, err := json.Marshal(job)
	if err != nil {
		return false, fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	if err := q.store.Put(ctx, jobPrefix+job.ID, string(data), JobTTL); err != nil {
		return false, fmt.Errorf("store job %s: %w", job.ID, err)
	}
	if err := q.store.PushTail(ctx, queueKey, job.ID); err != nil {
		return false, fmt.Errorf("requeue job %s: %w", job.ID, err)
	}

	logrus.Infof("Requeued email job %s (attempt %d/%d)", job.ID, job.Attempts, job.MaxAttempts)
	return true, nil
}

// Discard drops a job without retry. Used for non-retryable failures such as
// an unrenderable type, where burning the remaining attempts cannot help.
func (q *Queue) Discard(ctx context.Context, job *Job) error {
	return q.store.Delete(ctx, jobPrefix+job.ID)
}

// Length reports how many job ids are waiting in the queue.
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.store.Length(ctx, queueKey)
}

package worker

import (
	"context"

	"github.com/sirupsen/logrus"

	"farm-order-mailer/internal/dispatchlog"
	"farm-order-mailer/internal/mailer"
	"farm-order-mailer/internal/queue"
)

// DefaultBatchSize bounds how many jobs one invocation drains.
const DefaultBatchSize = 10

// Renderer maps a job to a subject and HTML body. A render error is not
// transient, so the worker discards the job instead of retrying it.
type Renderer interface {
	Render(job *queue.Job) (subject, html string, err error)
}

// Summary is the outcome of one batch invocation. It is the external
// contract for monitoring: per-job failures are reported here, never as an
// invocation error.
type Summary struct {
	Processed   int   `json:"processed"`
	Succeeded   int   `json:"succeeded"`
	Failed      int   `json:"failed"`
	Requeued    int   `json:"requeued"`
	QueueLength int64 `json:"queueLength"`
}

// Worker drains a bounded batch of email jobs per invocation and drives each
// to a terminal outcome. Jobs are processed sequentially in pop order; the
// store's atomic pop is the only concurrency safety overlapping invocations
// rely on.
type Worker struct {
	queue     *queue.Queue
	renderer  Renderer
	sender    mailer.Sender
	logs      dispatchlog.Recorder
	batchSize int
}

func New(q *queue.Queue, renderer Renderer, sender mailer.Sender, logs dispatchlog.Recorder, batchSize int) *Worker {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Worker{queue: q, renderer: renderer, sender: sender, logs: logs, batchSize: batchSize}
}

// ProcessBatch pops up to the batch size of jobs and sends each. The returned
// error is invocation-level only (store unreachable); individual send
// failures stay inside the summary. On error the summary still carries the
// counters accumulated so far.
func (w *Worker) ProcessBatch(ctx context.Context) (Summary, error) {
	var summary Summary

	for i := 0; i < w.batchSize; i++ {
		job, popped, err := w.queue.Dequeue(ctx)
		if err != nil {
			return summary, err
		}
		if !popped {
			break
		}
		if job == nil {
			// stale reference, envelope expired or already consumed
			continue
		}

		summary.Processed++

		subject, html, err := w.renderer.Render(job)
		if err != nil {
			// Not transient: retrying cannot fix a render failure, so the
			// job goes straight to permanent failure.
			logrus.Errorf("Failed to render email job %s: %v", job.ID, err)
			if derr := w.queue.Discard(ctx, job); derr != nil {
				return summary, derr
			}
			summary.Failed++
			w.record(job, dispatchlog.StatusFailed, err.Error())
			continue
		}

		if err := w.sender.Send(job.To, subject, html); err != nil {
			logrus.Errorf("Failed to send email job %s: %v", job.ID, err)
			requeued, qerr := w.queue.RequeueWithRetry(ctx, job, err)
			if qerr != nil {
				return summary, qerr
			}
			if requeued {
				summary.Requeued++
				w.record(job, dispatchlog.StatusRequeued, err.Error())
			} else {
				summary.Failed++
				w.record(job, dispatchlog.StatusFailed, err.Error())
			}
			continue
		}

		if err := w.queue.MarkComplete(ctx, job); err != nil {
			return summary, err
		}
		summary.Succeeded++
		w.record(job, dispatchlog.StatusSent, "")
	}

	length, err := w.queue.Length(ctx)
	if err != nil {
		return summary, err
	}
	summary.QueueLength = length

	logrus.Infof("Email batch completed: processed=%d succeeded=%d failed=%d requeued=%d queue=%d",
		summary.Processed, summary.Succeeded, summary.Failed, summary.Requeued, summary.QueueLength)
	return summary, nil
}

// record writes an audit row. Log persistence is observational; a failure
// here never affects the batch outcome.
func (w *Worker) record(job *queue.Job, status, errMsg string) {
	if w.logs == nil {
		return
	}
	entry := &dispatchlog.Entry{
		JobID:       job.ID,
		OrderNumber: job.Payload.OrderNumber,
		EmailType:   string(job.Type),
		Recipient:   job.To,
		Status:      status,
		ErrorMsg:    errMsg,
		Attempts:    job.Attempts,
	}
	if err := w.logs.Record(entry); err != nil {
		logrus.Errorf("Failed to record dispatch log for job %s: %v", job.ID, err)
	}
}

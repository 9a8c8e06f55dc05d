package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/royalbook/royalbook/internal/domain/job"
	"github.com/royalbook/royalbook/internal/jobs"
	"github.com/royalbook/royalbook/internal/notifications"
)

// ProcessOne claims and runs a single job. It reports whether a job was
// available so the caller can drain the queue.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}

		return false, err
	}

	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
		defer w.prom.JobsInFlight.Dec()
	}

	start := time.Now()

	err = w.execute(ctx, j)

	if err != nil {
		result := w.handleFailure(ctx, j, err)
		w.observeJob(j.Type, result, time.Since(start))
		return true, nil
	}

	err = w.repo.MarkDone(ctx, j.ID)

	if err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		w.observeJob(j.Type, "failed", time.Since(start))
		return true, err
	}

	w.observeJob(j.Type, "done", time.Since(start))
	return true, nil
}

func (w *Worker) observeJob(jobType, result string, took time.Duration) {
	if w.prom == nil {
		return
	}

	w.prom.JobResults.WithLabelValues(jobType, result).Inc()
	w.prom.JobDuration.WithLabelValues(jobType, result).Observe(took.Seconds())
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	payload, err := jobs.DecodePayload(j)

	if err != nil {
		return err
	}

	switch p := payload.(type) {
	case jobs.PaymentConfirmationPayload:
		return w.notifier.SendPaymentConfirmation(ctx, notifications.SendPaymentConfirmationInput{
			BookingID:     p.BookingID,
			BookTitle:     p.BookTitle,
			Email:         p.Email,
			TransactionID: p.TransactionID,
		})

	case jobs.ReportCleanupPayload:
		return w.reports.DeleteByBook(ctx, p.BookID)

	default:
		return fmt.Errorf("no executor for job type %q", j.Type)
	}
}

// handleFailure retries with backoff until the attempt budget is spent, then
// parks the job as failed for an operator to look at. Malformed payloads are
// never retried. Returns the outcome for metrics.
func (w *Worker) handleFailure(ctx context.Context, j job.Job, execErr error) string {
	if errors.Is(execErr, jobs.ErrInvalidJobType) || errors.Is(execErr, jobs.ErrInvalidJobPayload) {
		_ = w.repo.MarkFailed(ctx, j.ID, execErr.Error())
		return "failed"
	}

	// ClaimNext already incremented attempts for this run
	if j.Attempts >= j.MaxAttempts {
		log.Printf("job %s exhausted %d attempts: %v", j.ID, j.Attempts, execErr)
		_ = w.repo.MarkFailed(ctx, j.ID, execErr.Error())
		return "failed"
	}

	runAt := time.Now().UTC().Add(ExponentialBackoff(j.Attempts))

	err := w.repo.Reschedule(ctx, j.ID, runAt, execErr.Error())

	if err != nil {
		log.Printf("reschedule error for job %s: %v", j.ID, err)
	}

	return "retry"
}

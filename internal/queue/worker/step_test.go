package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/royalbook/royalbook/internal/domain/job"
	"github.com/royalbook/royalbook/internal/jobs"
	"github.com/royalbook/royalbook/internal/notifications"
)

type fakeJobsRepo struct {
	queue       []job.Job
	done        []string
	failed      []string
	rescheduled []string
}

func (f *fakeJobsRepo) ClaimNext(ctx context.Context, workerID string) (job.Job, error) {
	if len(f.queue) == 0 {
		return job.Job{}, job.ErrJobNotFound
	}

	j := f.queue[0]
	f.queue = f.queue[1:]
	j.Attempts++
	return j, nil
}

func (f *fakeJobsRepo) MarkDone(ctx context.Context, id string) error {
	f.done = append(f.done, id)
	return nil
}

func (f *fakeJobsRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeJobsRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	f.rescheduled = append(f.rescheduled, id)
	return nil
}

type fakeNotifier struct {
	sent []notifications.SendPaymentConfirmationInput
	err  error
}

func (f *fakeNotifier) SendPaymentConfirmation(ctx context.Context, in notifications.SendPaymentConfirmationInput) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, in)
	return nil
}

type fakeCleaner struct {
	cleaned []string
}

func (f *fakeCleaner) DeleteByBook(ctx context.Context, bookID string) error {
	f.cleaned = append(f.cleaned, bookID)
	return nil
}

func confirmationJob(t *testing.T, id string) job.Job {
	t.Helper()

	payload, err := jobs.PaymentConfirmationPayload{
		BookingID:     "b-1",
		BookID:        "bk-1",
		BookTitle:     "Dune",
		Email:         "buyer@example.com",
		TransactionID: "txn_1",
	}.JSON()

	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	return job.Job{
		ID:          id,
		Type:        jobs.TypePaymentConfirmation,
		Payload:     payload,
		MaxAttempts: 3,
	}
}

func TestProcessOneSendsConfirmation(t *testing.T) {
	repo := &fakeJobsRepo{queue: []job.Job{confirmationJob(t, "j-1")}}
	notifier := &fakeNotifier{}

	w := New(Config{WorkerID: "test"}, repo, notifier, &fakeCleaner{}, nil)

	processed, err := w.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if !processed {
		t.Fatal("expected a job to be processed")
	}

	if len(notifier.sent) != 1 || notifier.sent[0].Email != "buyer@example.com" {
		t.Errorf("notification not sent: %+v", notifier.sent)
	}

	if len(repo.done) != 1 || repo.done[0] != "j-1" {
		t.Errorf("job not marked done: %v", repo.done)
	}
}

func TestProcessOneEmptyQueue(t *testing.T) {
	w := New(Config{WorkerID: "test"}, &fakeJobsRepo{}, &fakeNotifier{}, &fakeCleaner{}, nil)

	processed, err := w.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if processed {
		t.Fatal("processed a job from an empty queue")
	}
}

func TestProcessOneReschedulesOnProviderError(t *testing.T) {
	repo := &fakeJobsRepo{queue: []job.Job{confirmationJob(t, "j-1")}}
	notifier := &fakeNotifier{err: errors.New("provider down")}

	w := New(Config{WorkerID: "test"}, repo, notifier, &fakeCleaner{}, nil)

	processed, err := w.ProcessOne(context.Background())

	if err != nil || !processed {
		t.Fatalf("processed=%v err=%v", processed, err)
	}

	if len(repo.rescheduled) != 1 {
		t.Errorf("job not rescheduled: %+v", repo)
	}

	if len(repo.failed) != 0 {
		t.Errorf("job failed before exhausting attempts: %v", repo.failed)
	}
}

func TestProcessOneFailsAfterAttemptBudget(t *testing.T) {
	j := confirmationJob(t, "j-1")
	j.Attempts = j.MaxAttempts - 1 // the claim increments to MaxAttempts

	repo := &fakeJobsRepo{queue: []job.Job{j}}
	notifier := &fakeNotifier{err: errors.New("provider down")}

	w := New(Config{WorkerID: "test"}, repo, notifier, &fakeCleaner{}, nil)

	processed, err := w.ProcessOne(context.Background())

	if err != nil || !processed {
		t.Fatalf("processed=%v err=%v", processed, err)
	}

	if len(repo.failed) != 1 {
		t.Errorf("job not parked as failed: %+v", repo)
	}

	if len(repo.rescheduled) != 0 {
		t.Errorf("exhausted job was rescheduled: %v", repo.rescheduled)
	}
}

func TestProcessOneMalformedPayloadNeverRetried(t *testing.T) {
	j := job.Job{
		ID:          "j-bad",
		Type:        jobs.TypePaymentConfirmation,
		Payload:     []byte(`{`),
		MaxAttempts: 10,
	}

	repo := &fakeJobsRepo{queue: []job.Job{j}}

	w := New(Config{WorkerID: "test"}, repo, &fakeNotifier{}, &fakeCleaner{}, nil)

	processed, err := w.ProcessOne(context.Background())

	if err != nil || !processed {
		t.Fatalf("processed=%v err=%v", processed, err)
	}

	if len(repo.failed) != 1 {
		t.Errorf("malformed job not parked: %+v", repo)
	}

	if len(repo.rescheduled) != 0 {
		t.Errorf("malformed job was rescheduled")
	}
}

func TestProcessOneReportCleanup(t *testing.T) {
	payload, err := jobs.ReportCleanupPayload{BookID: "bk-9"}.JSON()
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	repo := &fakeJobsRepo{queue: []job.Job{{
		ID:          "j-2",
		Type:        jobs.TypeReportCleanup,
		Payload:     payload,
		MaxAttempts: 3,
	}}}

	cleaner := &fakeCleaner{}

	w := New(Config{WorkerID: "test"}, repo, &fakeNotifier{}, cleaner, nil)

	processed, err := w.ProcessOne(context.Background())

	if err != nil || !processed {
		t.Fatalf("processed=%v err=%v", processed, err)
	}

	if len(cleaner.cleaned) != 1 || cleaner.cleaned[0] != "bk-9" {
		t.Errorf("cleanup not executed: %v", cleaner.cleaned)
	}
}

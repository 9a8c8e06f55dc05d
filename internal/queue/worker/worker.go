package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/royalbook/royalbook/internal/domain/job"
	"github.com/royalbook/royalbook/internal/notifications"
	"github.com/royalbook/royalbook/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
}

// ReportsCleaner removes leftover report rows for a deleted book.
type ReportsCleaner interface {
	DeleteByBook(ctx context.Context, bookID string) error
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	Concurrency   int
	ShutdownGrace time.Duration
}

type Worker struct {
	cfg      Config
	repo     JobsRepository
	notifier notifications.Notifier
	reports  ReportsCleaner
	prom     *observability.Prom

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobsRepository, notifier notifications.Notifier, reports ReportsCleaner, prom *observability.Prom) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	return &Worker{
		cfg:      cfg,
		repo:     repo,
		notifier: notifier,
		reports:  reports,
		prom:     prom,
	}
}

func (w *Worker) setReady(ready bool) {
	w.readyMu.Lock()
	w.ready = ready
	w.readyMu.Unlock()
}

// Run polls for claimable jobs until the context is cancelled. Each loop
// drains the queue before going back to sleep, so a burst of jobs does not
// wait one poll interval per job.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	var wg sync.WaitGroup

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}

	<-ctx.Done()
	log.Println("worker received shutdown signal")

	done := make(chan struct{})

	go func() {
		wg.Wait()
		close(done)
	}()

	grace := w.cfg.ShutdownGrace

	if grace <= 0 {
		grace = 10 * time.Second
	}

	select {
	case <-done:
		return nil
	case <-time.After(grace):
		log.Println("worker shutdown grace elapsed, abandoning in-flight jobs")
		return nil
	}
}

func (w *Worker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			for {
				processed, err := w.ProcessOne(ctx)

				if err != nil {
					log.Printf("process error: %v", err)
					break
				}

				if !processed {
					break
				}

				if ctx.Err() != nil {
					return
				}
			}
		}
	}
}

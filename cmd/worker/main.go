package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/royalbook/royalbook/internal/config"
	"github.com/royalbook/royalbook/internal/db"
	"github.com/royalbook/royalbook/internal/notifications"
	"github.com/royalbook/royalbook/internal/observability"
	"github.com/royalbook/royalbook/internal/queue/worker"
	"github.com/royalbook/royalbook/internal/repo/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()

	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	defer pool.Close()

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	jobsRepo := postgres.NewJobsRepo(pool, prom)
	reportsRepo := postgres.NewReportsRepo(pool, prom)

	notifier := notifications.NewProtectedNotifier(
		notifications.NewLogNotifier(),
		notifications.ProtectedNotifierConfig{},
	)

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval:  100 * time.Millisecond,
		WorkerID:      workerID,
		Concurrency:   4,
		ShutdownGrace: 10 * time.Second,
	}, jobsRepo, notifier, reportsRepo, prom)

	// health probes on a side port
	healthAddr := ":" + strconv.Itoa(cfg.Port+1)

	healthSrv := &http.Server{
		Addr:              healthAddr,
		Handler:           w.HealthHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := healthSrv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Printf("health server failed: %v", err)
		}
	}()

	log.Println("worker has started")

	if err := w.Run(ctx); err != nil {
		log.Printf("worker stopped with error: %v", err)
	}

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	_ = healthSrv.Shutdown(shutdownCtx)

	log.Println("worker shutdown complete")
}

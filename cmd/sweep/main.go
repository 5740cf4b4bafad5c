// Command sweep runs a single reconciliation tick and exits. It is meant for
// deployments that schedule the sweep externally (cron, Kubernetes CronJob)
// instead of running it inside the API process.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lendinghub/lending-service/internal/config"
	"github.com/lendinghub/lending-service/internal/database"
	"github.com/lendinghub/lending-service/internal/lending"
	"github.com/lendinghub/lending-service/internal/storage"
	"github.com/lendinghub/lending-service/internal/sweep"
	"github.com/lendinghub/lending-service/pkg/logger"
	"github.com/lendinghub/lending-service/pkg/tracing"
	"github.com/redis/go-redis/v9"
)

func main() {
	os.Exit(run())
}

// Exit codes: 0 the tick ran cleanly or was skipped for the lease, 1 some
// loans failed to close or a candidate query failed, 2 setup failed.
const (
	exitOK       = 0
	exitFailures = 1
	exitSetup    = 2
)

func run() int {
	at := flag.String("at", "", "evaluate deadlines at this RFC3339 time instead of now")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Errorf("failed to load config: %v", err)
		return exitSetup
	}
	if cfg.MongoDB.URI == "" {
		logger.Errorf("MONGODB_URI is required: a one-shot sweep over in-memory stores has nothing to do")
		return exitSetup
	}

	now := time.Now
	if *at != "" {
		fixed, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			logger.Errorf("invalid -at: %v", err)
			return exitSetup
		}
		now = func() time.Time { return fixed }
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		logger.Errorf("tracing: %v", err)
		return exitSetup
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	stores, err := database.OpenStores(ctx, cfg.MongoDB)
	if err != nil {
		logger.Errorf("failed to open stores: %v", err)
		return exitSetup
	}
	defer func() { _ = stores.Close(context.Background()) }()

	policy, err := lending.NewPolicy(cfg.Lending)
	if err != nil {
		logger.Errorf("lending policy: %v", err)
		return exitSetup
	}
	engine := lending.NewEngine(stores.Items, stores.Loans, policy,
		lending.WithClock(now),
		lending.WithTracerProvider(tp),
	)

	opts := []sweep.Option{sweep.WithClock(now), sweep.WithTracerProvider(tp)}
	if cfg.Redis.Addr() != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		host, _ := os.Hostname()
		opts = append(opts, sweep.WithLease(sweep.NewRedisLease(rdb, "lending:sweep:lease", host+"-oneshot", cfg.Sweep.LeaseTTL)))
	}
	if cfg.MinIO.Endpoint != "" {
		archive, err := storage.NewObjectArchive(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("sweep report archive disabled: %v", err)
		} else {
			opts = append(opts, sweep.WithReportSink(sweep.ArchiveSink{Store: archive}))
		}
	}

	report, err := sweep.New(stores.Loans, engine, cfg.Sweep.Interval, opts...).Tick(ctx)
	if report == nil && err == nil {
		logger.Infof("another sweeper holds the lease; nothing done")
		return exitOK
	}
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	}
	if err != nil {
		logger.Errorf("sweep: %v", err)
		return exitFailures
	}
	if len(report.Failures) > 0 {
		return exitFailures
	}
	return exitOK
}

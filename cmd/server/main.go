package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	directoryhandler "sangha/internal/directory/handler"
	directoryservice "sangha/internal/directory/service"
	directorystore "sangha/internal/directory/store"
	"sangha/internal/eligibility"
	hierarchyhandler "sangha/internal/hierarchy/handler"
	hierarchymetrics "sangha/internal/hierarchy/metrics"
	hierarchyservice "sangha/internal/hierarchy/service"
	hierarchystore "sangha/internal/hierarchy/store"
	ledgerstore "sangha/internal/ledger/store"
	"sangha/internal/platform/config"
	"sangha/internal/platform/httpserver"
	"sangha/internal/platform/logger"
	platformmetrics "sangha/internal/platform/metrics"
	"sangha/internal/platform/redis"
	successionhandler "sangha/internal/succession/handler"
	successionmetrics "sangha/internal/succession/metrics"
	successionservice "sangha/internal/succession/service"
	"sangha/pkg/keylock"
	"sangha/pkg/platform/audit"
	"sangha/pkg/platform/audit/publisher"
	auditmemory "sangha/pkg/platform/audit/store/memory"
	"sangha/pkg/platform/audit/worker"
	"sangha/pkg/platform/middleware/requestid"
	"sangha/pkg/platform/middleware/requesttime"
	"sangha/pkg/platform/tx"
)

// main wires storage, caching, eventing, and the HTTP surface. Business rules
// live in the internal services; everything here is assembly.
func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		directoryStore directorystore.Store
		hierarchyStore hierarchystore.Store
		ledgerStore    ledgerstore.Store
		runner         tx.Runner
	)
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		directoryPg := directorystore.NewPostgresStore(pool)
		hierarchyPg := hierarchystore.NewPostgresStore(pool)
		ledgerPg := ledgerstore.NewPostgresStore(pool)
		for _, ensure := range []func(context.Context) error{
			directoryPg.EnsureSchema, hierarchyPg.EnsureSchema, ledgerPg.EnsureSchema,
		} {
			if err := ensure(ctx); err != nil {
				log.Error("ensure schema", "error", err)
				os.Exit(1)
			}
		}
		directoryStore, hierarchyStore, ledgerStore = directoryPg, hierarchyPg, ledgerPg
		runner = tx.NewPgxRunner(pool)
	} else {
		log.Info("no postgres configured, using in-memory stores")
		directoryStore = directorystore.NewMemoryStore()
		hierarchyStore = hierarchystore.NewMemoryStore()
		ledgerStore = ledgerstore.NewMemoryStore()
		runner = tx.NewMemoryRunner()
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var (
		auditPublisher audit.Publisher
		auditWorker    *worker.Worker
	)
	if len(cfg.Kafka.SeedBrokers) > 0 {
		kafkaPublisher, err := publisher.NewKafka(cfg.Kafka.SeedBrokers, cfg.Kafka.AuditTopic, log)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaPublisher.Close(context.Background())
		auditPublisher = kafkaPublisher
	} else {
		// No broker: keep the trail in process so operators can still
		// inspect it on a single node.
		inbox := make(chan audit.Event, 256)
		auditPublisher = publisher.NewChannel(inbox, log)
		auditWorker = worker.NewWorker(auditmemory.NewInMemoryStore(), inbox)
	}

	httpMetrics := platformmetrics.New()

	hierarchyOpts := []hierarchyservice.Option{
		hierarchyservice.WithMetrics(hierarchymetrics.New()),
		hierarchyservice.WithLogger(log),
		hierarchyservice.WithReadBoundary(runner),
	}
	if redisClient != nil {
		hierarchyOpts = append(hierarchyOpts, hierarchyservice.WithCache(redisClient, cfg.ChartCacheTTL))
	}
	hierarchySvc := hierarchyservice.New(hierarchyStore, hierarchyOpts...)

	directorySvc := directoryservice.New(directoryStore,
		directoryservice.WithLogger(log),
		directoryservice.WithAuditPublisher(auditPublisher),
	)

	evaluator := eligibility.New(directoryStore, hierarchyStore)

	successionSvc := successionservice.New(
		hierarchyStore, ledgerStore, evaluator,
		keylock.New(cfg.LockWait), runner,
		successionservice.WithMetrics(successionmetrics.New()),
		successionservice.WithLogger(log),
		successionservice.WithChartInvalidation(hierarchySvc),
		successionservice.WithAuditPublisher(auditPublisher),
	)

	router := chi.NewRouter()
	router.Use(requestid.Middleware)
	router.Use(requesttime.Middleware)
	router.Use(httpMetrics.Middleware)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		directoryhandler.New(directorySvc, log).Routes(r)
		hierarchyhandler.New(hierarchySvc, log).Routes(r)
		successionhandler.New(successionSvc, log).Routes(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)
	if auditWorker != nil {
		group.Go(func() error {
			if err := auditWorker.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	group.Go(func() error {
		log.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

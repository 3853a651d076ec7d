// Command server wires the aliaspay registry: stores, services, the HTTP
// router and the notification worker. Business logic lives in the internal
// service packages; main only selects backends and connects them.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	identityhandler "aliaspay/internal/identity/handler"
	identityservice "aliaspay/internal/identity/service"
	identitystore "aliaspay/internal/identity/store"
	"aliaspay/internal/jwtauth"
	mappinghandler "aliaspay/internal/mapping/handler"
	mappingservice "aliaspay/internal/mapping/service"
	mappingstore "aliaspay/internal/mapping/store"
	"aliaspay/internal/notify"
	"aliaspay/internal/notify/kafka"
	"aliaspay/internal/platform/config"
	"aliaspay/internal/platform/httpserver"
	"aliaspay/internal/platform/logger"
	"aliaspay/internal/platform/metrics"
	"aliaspay/internal/platform/middleware"
	"aliaspay/internal/platform/postgres"
	platformredis "aliaspay/internal/platform/redis"
	pointshandler "aliaspay/internal/points/handler"
	pointsservice "aliaspay/internal/points/service"
	pointsstore "aliaspay/internal/points/store"
	sessionhandler "aliaspay/internal/session/handler"
	sessionservice "aliaspay/internal/session/service"
	sessionstore "aliaspay/internal/session/store"
	transferhandler "aliaspay/internal/transfer/handler"
	"aliaspay/internal/transfer/mover"
	transferservice "aliaspay/internal/transfer/service"
	transferstore "aliaspay/internal/transfer/store"
	"aliaspay/pkg/platform/middleware/requesttime"
	"aliaspay/pkg/platform/tx"
)

func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
	}

	redisClient, err := platformredis.New(cfg.RedisURL, cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Notification pipeline: services emit onto a buffered inbox, the worker
	// drains it into Kafka when brokers are configured, otherwise into the
	// in-process store.
	publisher := notify.NewAsyncPublisher(1024,
		notify.WithLogger(log), notify.WithMetrics(m))
	var sink notify.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
	} else {
		sink = notify.NewInMemoryStore()
	}
	worker := notify.NewWorker(sink, publisher.Inbox(), log)

	// Store selection. With DATABASE_URL all durable state lives in Postgres
	// and transfers run inside one SQL transaction; without it everything is
	// in memory and the runner snapshots registered stores instead.
	var (
		identityStore identityservice.Store
		ledgerStore   pointsservice.Store
		mappingStore  mappingservice.Store
		sessionStore  sessionservice.Store
		historyStore  transferservice.HistoryStore
		runner        tx.Runner
	)
	hostLedger := mover.NewMemory()
	if db != nil {
		identityStore = identitystore.NewPostgres(db)
		ledgerStore = pointsstore.NewPostgres(db)
		mappingStore = mappingstore.NewPostgres(db)
		sessionStore = sessionstore.NewPostgres(db)
		historyStore = transferstore.NewPostgres(db)
		runner = tx.NewPostgresRunner(db)
	} else {
		identityMem := identitystore.NewMemory()
		ledgerMem := pointsstore.NewMemory()
		mappingMem := mappingstore.NewMemory()
		sessionMem := sessionstore.NewMemory()
		historyMem := transferstore.NewMemory()
		identityStore = identityMem
		ledgerStore = ledgerMem
		mappingStore = mappingMem
		sessionStore = sessionMem
		historyStore = historyMem
		runner = tx.NewMemoryRunner(identityMem, ledgerMem, mappingMem,
			sessionMem, historyMem, hostLedger)
	}
	// Redis takes over session storage when configured. Its consume is atomic
	// on the session key but cannot join the SQL transfer transaction.
	if redisClient != nil {
		sessionStore = sessionstore.NewRedis(redisClient.Client)
	}

	identitySvc := identityservice.New(identityStore, ledgerStore, runner,
		identityservice.WithLogger(log),
		identityservice.WithMetrics(m),
		identityservice.WithNotifier(publisher))
	pointsSvc := pointsservice.New(ledgerStore, identitySvc,
		pointsservice.WithLogger(log),
		pointsservice.WithMetrics(m),
		pointsservice.WithNotifier(publisher))
	mappingSvc := mappingservice.New(mappingStore, identitySvc,
		mappingservice.WithLogger(log),
		mappingservice.WithNotifier(publisher))
	sessionSvc := sessionservice.New(sessionStore, identitySvc, pointsSvc,
		sessionservice.WithLogger(log),
		sessionservice.WithMetrics(m),
		sessionservice.WithNotifier(publisher),
		sessionservice.WithSessionTTL(cfg.SessionTTL))
	transferSvc := transferservice.New(identitySvc, mappingSvc, sessionSvc,
		historyStore, hostLedger, runner,
		transferservice.WithLogger(log),
		transferservice.WithMetrics(m),
		transferservice.WithNotifier(publisher))

	jwtSvc := jwtauth.NewService(cfg.JWTSigningKey, "aliaspay")

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(requesttime.Middleware)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(cfg.RequestTimeout))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.ClientMetadata)
	router.Use(middleware.Latency(m))

	identityhandler.New(identitySvc, log, jwtSvc).Register(router)
	mappinghandler.New(mappingSvc, log, jwtSvc).Register(router)
	pointshandler.New(pointsSvc, log, jwtSvc).Register(router)
	sessionhandler.New(sessionSvc, log, jwtSvc).Register(router)
	transferhandler.New(transferSvc, log, jwtSvc).Register(router)

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router, cfg.RequestTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting aliaspay", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"eventreg/internal/audit"
	"eventreg/internal/catalog"
	"eventreg/internal/identity"
	"eventreg/internal/platform/config"
	"eventreg/internal/platform/httpserver"
	"eventreg/internal/platform/logger"
	platformmetrics "eventreg/internal/platform/metrics"
	platformpg "eventreg/internal/platform/postgres"
	platformredis "eventreg/internal/platform/redis"
	"eventreg/internal/registration"
	reghandler "eventreg/internal/registration/handler"
	regmetrics "eventreg/internal/registration/metrics"
	"eventreg/internal/registration/sweeper"
	httptransport "eventreg/internal/transport/http"
	"eventreg/pkg/token"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		catalogStore catalog.Store
		regStore     registration.Store
		auditStore   audit.Store
	)
	if cfg.PostgresURL != "" {
		pool, err := platformpg.NewPool(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("connect postgres", "error", err)
			return
		}
		defer pool.Close()
		catalogStore = catalog.NewPostgresStore(pool)
		regStore = registration.NewPostgresStore(pool)

		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("open postgres for audit outbox", "error", err)
			return
		}
		defer db.Close()
		auditStore = audit.NewPostgresStore(db)
	} else {
		catalogStore = catalog.NewInMemoryStore()
		regStore = registration.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
	}

	var locker registration.Locker = registration.NewMutexLocker()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		return
	}
	if redisClient != nil {
		defer redisClient.Close()
		locker = registration.NewRedisLocker(redisClient.Client)
	}

	var sinks []audit.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("connect kafka audit sink", "error", err)
			return
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}

	inbox := make(chan audit.Event, 256)
	publisher := audit.NewPublisher(inbox, log)
	worker := audit.NewWorker(inbox, auditStore, log, sinks...)

	validator := registration.NewValidator(catalogStore, regStore)
	service := registration.NewService(
		catalogStore,
		regStore,
		locker,
		token.NewCryptoSource(),
		validator,
		log,
		registration.WithAuditPublisher(publisher),
		registration.WithMetrics(regmetrics.New()),
	)

	sweep := sweeper.New(service, regStore, cfg.SweepInterval, log)

	httpMetrics := platformmetrics.New()
	resolver := identity.NewJWTProvider(cfg.JWTSigningKey, cfg.JWTIssuer)
	handler := reghandler.New(service, log, httpMetrics, resolver)
	router := httptransport.NewRouter(handler)

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting eventreg", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		err := worker.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		err := sweep.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
	}
}

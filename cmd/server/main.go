package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"vestry/internal/authproof"
	"vestry/internal/contributor"
	contributormetrics "vestry/internal/contributor/metrics"
	contributorservice "vestry/internal/contributor/service"
	contributorstore "vestry/internal/contributor/store"
	"vestry/internal/platform/config"
	"vestry/internal/platform/httpserver"
	"vestry/internal/platform/logger"
	"vestry/internal/platform/metrics"
	"vestry/internal/platform/ratelimit"
	"vestry/internal/platform/redis"
	"vestry/internal/platform/tracing"
	"vestry/internal/token"
	httptransport "vestry/internal/transport/http"
	"vestry/internal/vesting"
	vestingmetrics "vestry/internal/vesting/metrics"
	vestingservice "vestry/internal/vesting/service"
	vestingstore "vestry/internal/vesting/store"
	"vestry/pkg/domain"
)

// main wires dependencies from the environment and keeps the server
// lifecycle small. Business logic lives in the internal services packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	treasury, err := domain.ParsePrincipal(cfg.TreasuryAddress)
	if err != nil {
		log.Error("invalid treasury address", "error", err)
		os.Exit(1)
	}

	// ctx governs background workers; the HTTP server has its own shutdown.
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.OTLPEndpoint, "vestry")
	if err != nil {
		log.Error("tracing setup failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Error("tracing shutdown failed", "error", err)
		}
	}()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		log.Error("postgres setup failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	rdb, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis setup failed", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	pipeline, err := buildAuditPipeline(ctx, cfg, db, log)
	if err != nil {
		log.Error("audit pipeline setup failed", "error", err)
		os.Exit(1)
	}
	auditor := pipeline.Publisher

	proofs := authproof.NewService(cfg.ProofSigningKey, cfg.ProofIssuer, cfg.ProofAudience, cfg.ProofTTL)

	// Contributor registry. The redis cache decorates whichever durable
	// store is configured and shares the metrics instance with the service
	// so hit rates and operation counts land in one place.
	contribMetrics := contributormetrics.New()
	var contribBacking contributorstore.Backing
	if db != nil {
		contribBacking = contributorstore.NewPostgres(db)
	} else {
		contribBacking = contributorstore.NewInMemory()
	}
	contribStore := contributorservice.Store(contribBacking)
	if rdb != nil {
		contribStore = contributorstore.NewRedisCache(contribBacking, rdb.Client,
			contributorstore.WithCacheLogger(log),
			contributorstore.WithCacheMetrics(contribMetrics),
		)
	}
	contribSvc := contributor.NewService(contribStore, proofs,
		contributorservice.WithLogger(log),
		contributorservice.WithAuditPublisher(auditor),
		contributorservice.WithMetrics(contribMetrics),
	)
	contribHandler := contributor.NewHandler(contribSvc, log)

	// Vesting wallet. Claims run inside a database transaction when postgres
	// is available so the ledger transfer and schedule update commit together.
	var (
		vestStore vestingservice.Store
		ledger    token.Ledger
	)
	vestingOpts := []vestingservice.Option{
		vestingservice.WithLogger(log),
		vestingservice.WithAuditPublisher(auditor),
		vestingservice.WithMetrics(vestingmetrics.New()),
	}
	if db != nil {
		vestStore = vestingstore.NewPostgres(db)
		ledger = token.NewPostgresLedger(db)
		vestingOpts = append(vestingOpts, vestingservice.WithTxRunner(newClaimPostgresTx(db)))
	} else {
		vestStore = vestingstore.NewInMemory()
		ledger = token.NewMemoryLedger()
	}
	vestSvc := vesting.NewService(vestStore, ledger, treasury, proofs, vestingOpts...)
	vestHandler := vesting.NewHandler(vestSvc, log)

	var limiter ratelimit.Limiter
	if rdb != nil {
		limiter = ratelimit.NewRedisLimiter(rdb.Client)
	} else {
		limiter = ratelimit.NewMemoryLimiter()
	}
	rl := ratelimit.New(limiter, cfg.RateLimit.Requests, cfg.RateLimit.Window, log,
		ratelimit.WithDisabled(!cfg.RateLimit.Enabled),
		ratelimit.WithMetrics(ratelimit.NewMetrics()),
		ratelimit.WithAudit(auditor),
	)

	var checks []httptransport.Check
	if db != nil {
		checks = append(checks, httptransport.Check{Name: "postgres", Probe: db.PingContext})
	}
	if rdb != nil {
		checks = append(checks, httptransport.Check{Name: "redis", Probe: rdb.Health})
	}

	router := httptransport.NewRouter(log, httptransport.Options{
		Limiter: rl,
		Metrics: metrics.NewHTTP(),
		Checks:  checks,
	}, contribHandler, vestHandler)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting vestry", "addr", cfg.Addr,
		"postgres", db != nil, "redis", rdb != nil, "kafka", len(cfg.KafkaBrokers) > 0)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	// Drain in dependency order: no new requests, then no new audit emits,
	// then stop the relay and materializer before their sinks close.
	auditor.Close()
	stop()
	pipeline.Close()
}

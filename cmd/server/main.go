// Command server runs the wayfare API: tenant resolution, isolation-scoped
// data access, role-based authorization, and the audit trail.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"wayfare/internal/audit"
	auditmetrics "wayfare/internal/audit/metrics"
	auditmem "wayfare/internal/audit/store/memory"
	auditpg "wayfare/internal/audit/store/postgres"
	"wayfare/internal/audit/publisher"
	"wayfare/internal/audit/worker"
	"wayfare/internal/isolation"
	isolationmetrics "wayfare/internal/isolation/metrics"
	"wayfare/internal/platform/config"
	"wayfare/internal/platform/httpserver"
	"wayfare/internal/platform/logger"
	platformredis "wayfare/internal/platform/redis"
	"wayfare/internal/platform/session"
	"wayfare/internal/storage"
	storagepg "wayfare/internal/storage/postgres"
	"wayfare/internal/tenancy"
	tenancymetrics "wayfare/internal/tenancy/metrics"
	"wayfare/internal/tenancy/resolver"
	"wayfare/internal/tenancy/store"
	tenantstore "wayfare/internal/tenancy/store/tenant"
	userstore "wayfare/internal/tenancy/store/user"
	httptransport "wayfare/internal/transport/http"
	"wayfare/internal/trips"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tenancyMetrics := tenancymetrics.New()
	isolationMetrics := isolationmetrics.New()
	auditMetrics := auditmetrics.New()

	var (
		tenants    tenantstore.Store
		users      userstore.Store
		engine     storage.Engine
		auditStore audit.Store
		outbox     audit.Outbox
	)
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("open postgres pool: %w", err)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}

		// The audit store batches entry and outbox inserts in one
		// transaction over database/sql; everything else uses pgx.
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()

		if err := applySchemas(ctx, pool, db); err != nil {
			return err
		}

		tenants = tenantstore.NewPostgres(pool)
		users = userstore.NewPostgres(pool)
		engine = storagepg.New(pool)
		pgAudit := auditpg.New(db)
		auditStore, outbox = pgAudit, pgAudit
		log.Info("using postgres storage")
	} else {
		tenants = tenantstore.NewInMemory()
		users = userstore.NewInMemory()
		engine = storage.NewInMemoryEngine()
		mem := auditmem.New()
		auditStore, outbox = mem, mem
		log.Warn("no DATABASE_URL set, using in-memory storage")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		tenants = tenantstore.NewCached(tenants, redisClient.Client, config.DirectoryCacheTTL, log, tenancyMetrics)
		log.Info("tenant directory cache enabled")
	}

	if _, err := store.SeedDefaultTenant(ctx, tenants); err != nil {
		return fmt.Errorf("seed default tenant: %w", err)
	}
	if cfg.SeedDemoData {
		// Re-running against seeded data hits slug uniqueness; not fatal.
		if err := store.SeedDemoData(ctx, tenants, users); err != nil {
			log.Warn("demo data seeding skipped", "error", err)
		}
	}

	classifier := isolation.NewClassifier()
	if err := classifier.Validate(); err != nil {
		return fmt.Errorf("classification table: %w", err)
	}
	dataClient := isolation.NewClient(engine, classifier, log, isolationMetrics)

	recorder := audit.NewRecorder(auditStore, log, auditMetrics)
	tripSvc := trips.New(dataClient, recorder, log)

	res := resolver.New(tenants, store.DefaultTenantSlug, cfg.AdminPathPrefix, log, tenancyMetrics)
	validator := session.NewValidator(cfg.JWTSigningKey, "wayfare")
	tenantMW := tenancy.NewMiddleware(res, validator, users, log)

	router := httptransport.NewRouter(tenantMW,
		httptransport.NewTripsHandler(tripSvc, log),
		httptransport.NewAdminHandler(tenants, auditStore, recorder, log, cfg.AdminToken),
	)
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	if len(cfg.KafkaBrokers) > 0 {
		pub, err := publisher.NewKafka(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer pub.Close()
		relay := worker.NewRelay(outbox, pub, log, auditMetrics)
		g.Go(func() error { return relay.Run(ctx) })
		log.Info("audit relay started", "topic", cfg.AuditTopic)
	}

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}

// applySchemas runs the idempotent DDL for every store. Real deployments
// drive the same statements through migrations; applying here keeps a fresh
// database usable without extra tooling.
func applySchemas(ctx context.Context, pool *pgxpool.Pool, db *sql.DB) error {
	for _, schema := range []string{tenantstore.Schema, userstore.Schema, storagepg.Schema} {
		if _, err := pool.Exec(ctx, schema); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, auditpg.Schema); err != nil {
		return fmt.Errorf("apply audit schema: %w", err)
	}
	return nil
}

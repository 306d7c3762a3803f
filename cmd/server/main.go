package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/thalesgaldino/silvershop-api/internal/cart"
	"github.com/thalesgaldino/silvershop-api/internal/catalog"
	"github.com/thalesgaldino/silvershop-api/internal/checkout"
	"github.com/thalesgaldino/silvershop-api/internal/config"
	"github.com/thalesgaldino/silvershop-api/internal/engine"
	"github.com/thalesgaldino/silvershop-api/internal/events"
	"github.com/thalesgaldino/silvershop-api/internal/httpapi"
	"github.com/thalesgaldino/silvershop-api/internal/lists"
	"github.com/thalesgaldino/silvershop-api/internal/session"
	"github.com/thalesgaldino/silvershop-api/internal/stale"
	"github.com/thalesgaldino/silvershop-api/pkg/logging"
	"github.com/thalesgaldino/silvershop-api/pkg/shutdown"
)

func main() {
	cfg := config.Load()
	log := logging.New("shop-api", cfg.AppEnv, cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("redis connection failed", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	sessions := session.NewRedisStore(redisClient)

	var (
		cat     catalog.Catalog
		coupons catalog.Coupons
		rates   catalog.ShippingRates
	)
	if cfg.DatabaseURL != "" {
		if err := runMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		pg := catalog.NewPostgres(pool)
		cat, coupons, rates = pg, pg, pg
		log.Info("catalog backed by postgres")
	} else {
		mem := catalog.NewMemory()
		cat, coupons, rates = mem, mem, mem
		log.Info("catalog backed by memory store; set DATABASE_URL for postgres")
	}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
		log.Info("order events to kafka", "topic", cfg.KafkaTopic)
	}

	orderEngine := engine.NewMemory()
	deps := cart.Deps{
		Engine:   orderEngine,
		Catalog:  cat,
		Coupons:  coupons,
		Rates:    rates,
		Sessions: sessions,
		Lists:    lists.NewReconciler(cat, sessions),
		Stale:    stale.New(),
		Hooks:    cart.NewHooks(),
		Log:      log,
		Currency: cfg.CurrencySymbol,
	}

	co := checkout.New(orderEngine, checkout.StaticGateway{Gateway: checkout.Gateway{
		Name:    cfg.GatewayName,
		Offsite: cfg.GatewayOffsite,
		Manual:  cfg.GatewayManual,
	}}, checkout.Config{
		PlaceBeforePayment:   cfg.PlaceBeforePayment,
		ComponentPaymentData: cfg.ComponentPaymentData,
	}, publisher, log)

	handler := httpapi.NewHandler(deps, co, log)
	router := httpapi.NewRouter(handler, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: otelhttp.NewHandler(router, "shop-api"),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("shop api listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer stop()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server exited")
}

func runMigrations(databaseURL, migrationsPath string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

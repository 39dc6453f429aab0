package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olyamironova/trading-venue/internal/adapter/cache"
	"github.com/olyamironova/trading-venue/internal/adapter/pg"
	"github.com/olyamironova/trading-venue/internal/audit"
	api "github.com/olyamironova/trading-venue/internal/api/http"
	"github.com/olyamironova/trading-venue/internal/core"
	"github.com/olyamironova/trading-venue/internal/outbox"
	"github.com/olyamironova/trading-venue/internal/port"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var repo port.Repository
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		pgRepo, err := pg.NewPgRepo(ctx, dsn)
		if err != nil {
			log.Fatalf("failed to connect to Postgres: %v", err)
		}
		defer pgRepo.Close()
		repo = pgRepo
	}

	var bookCache port.Cache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		bookCache = cache.NewRedisCache(addr, os.Getenv("REDIS_PASSWORD"), 0, 5*time.Minute)
	}

	auditLog := audit.NewLogger()
	events := outbox.NewStore()

	engine := core.NewEngine(repo, bookCache, auditLog, events)
	if err := engine.Restore(ctx); err != nil {
		log.Fatalf("failed to restore engine state: %v", err)
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		relay := outbox.NewRelay(events, strings.Split(brokers, ","), "venue.events", time.Second)
		defer relay.Close()
		go relay.Run(ctx)
	}

	server := api.NewHTTPServer(engine, auditLog, events)

	addr := ":" + envOr("PORT", "8080")
	srv := &http.Server{Addr: addr, Handler: server.Router()}

	metricsAddr := ":" + envOr("METRICS_PORT", "9090")
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: metricsAddr, Handler: metricsMux}

	go func() {
		log.Printf("metrics server listening on %s", metricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("metrics server error: %v", err)
		}
	}()

	go func() {
		log.Printf("trading venue listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http server shutdown error: %v", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

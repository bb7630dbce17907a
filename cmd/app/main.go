package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"course-unit-access/internal/config"
	"course-unit-access/internal/infra/api"
	pg "course-unit-access/internal/infra/db/postgres"
	"course-unit-access/internal/infra/logging"
	"course-unit-access/internal/infra/metrics"
	red "course-unit-access/internal/infra/redis"
	"course-unit-access/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted codes)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	if err := pg.Migrate(ctx, cfg.Database.URL); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Repositories ----
	codeRepo := pg.NewAccessCodeRepo(pool)
	grantRepo := pg.NewAccessGrantRepo(pool)
	courseRepo := pg.NewCourseRepo(pool)
	ledgerRepo := pg.NewLedgerRepo(pool)
	txm := pg.NewTxManager(pool)

	// ---- Redis (optional catalog cache) ----
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect failed")
		}
		defer redisClient.Close()
		courseRepo = pg.NewCourseRepoCacheDecorator(courseRepo, redisClient, cfg.Redis.TTL)
	} else {
		logger.Warn().Msg("redis.url not set; catalog cache disabled")
	}

	// ---- Use cases ----
	adminUC := usecase.NewAdminCodeService(codeRepo, courseRepo, logger)
	redeemUC := usecase.NewRedemptionEngine(codeRepo, grantRepo, courseRepo, ledgerRepo, txm, logger)
	accessUC := usecase.NewAccessEvaluator(grantRepo)

	// ---- HTTP ----
	srv := api.NewServer(adminUC, redeemUC, accessUC, logger)
	mux := srv.Routes(cfg.Auth.JWTSecret)
	mux.Handle("/metrics", promhttp.Handler())

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Periodic pool stats for the dashboard.
	go func() {
		t := time.NewTicker(30 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				st := pool.Stat()
				metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
			}
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}

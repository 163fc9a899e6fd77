package main

import (
	"context"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/api/rest"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/arbitrage"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/asset"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/config"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/executor"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/horizon"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/health"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/http/middleware"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/log"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/metrics"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/netutil"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/runner"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/version"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/session"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	logger := log.NewLogger(cfg)

	catalog, err := asset.NewCatalog(cfg.Assets)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid asset catalog")
	}

	registry := metrics.Init(logger)

	hzClient := horizon.NewClient(cfg, logger)
	evaluator := arbitrage.NewEvaluator(hzClient, cfg.SlippageFactor(), logger)
	scanner := arbitrage.NewScanner(catalog, evaluator, cfg.Trading.QuoteConcurrency, logger)

	var signer executor.Signer = executor.NoSigner{}
	accountID := cfg.Trading.Account
	if cfg.Trading.SigningSeed != "" {
		keySigner, err := horizon.NewKeySigner(cfg.Trading.SigningSeed)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid signing seed")
		}
		signer = keySigner
		if accountID == "" {
			accountID = keySigner.Address()
		}
	}

	exec := executor.New(
		hzClient, hzClient, horizon.Assembler{}, signer, hzClient,
		horizon.Passphrase(cfg.Horizon.Network),
		horizon.ExplorerBase(cfg.Horizon.Network),
		logger,
	)

	sess := session.New(scanner, exec, session.Options{
		RefreshInterval:  cfg.RefreshInterval(),
		AccountID:        accountID,
		DestMinTolerance: cfg.DestMinTolerance(),
	}, logger)
	sess.Start(ctx)
	defer sess.Close()

	api := rest.New(sess, catalog, cfg.DefaultAmount(), logger)

	mux := http.NewServeMux()
	mux.Handle("/api/", api.Handler())
	adminCIDRs := netutil.ParseCIDRs(cfg.Server.AdminAllowCIDRs)
	mux.Handle("/metrics", middleware.AdminGate(adminCIDRs, metrics.Handler(registry)))
	mux.HandleFunc("/healthz", health.Healthz)
	mux.HandleFunc("/readyz", health.Readyz)
	mux.HandleFunc("/version", version.Handler)
	if cfg.Server.Pprof {
		mux.Handle("/debug/pprof/", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Index)))
		mux.Handle("/debug/pprof/profile", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Profile)))
		mux.Handle("/debug/pprof/symbol", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Symbol)))
		mux.Handle("/debug/pprof/trace", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Trace)))
	}

	handler := middleware.RequestID(middleware.Logger(logger)(mux))

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}

	g := &runner.Group{}
	serverErrCh := g.Go(ctx, func(ctx context.Context) error {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	health.SetReady(true)
	logger.Info().
		Str("addr", cfg.Server.Addr).
		Str("horizon", cfg.HorizonURL()).
		Str("base_asset", cfg.Trading.BaseAsset).
		Msg("triangular arbitrage service started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-ctx.Done():
	case s := <-sigCh:
		logger.Info().Str("signal", s.String()).Msg("shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server error")
			health.SetReady(false)
		}
	}

	health.SetReady(false)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	g.Wait()
	logger.Info().Msg("shutdown complete")
}

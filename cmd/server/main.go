package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/traderlab/optionscan/internal/config"
	"github.com/traderlab/optionscan/internal/marketdata"
	"github.com/traderlab/optionscan/internal/screener"
	"github.com/traderlab/optionscan/internal/server"
	"github.com/traderlab/optionscan/internal/ws"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Setup logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// Load config
	srvCfg, err := config.LoadServerConfig()
	if err != nil {
		logger.Error("failed to load server config", zap.Error(err))
		return 1
	}

	cfg, err := config.Load(srvCfg.ConfigPath)
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		return 1
	}

	logger.Info("configuration loaded",
		zap.String("port", srvCfg.Port),
		zap.String("providerURL", cfg.Provider.BaseURL),
		zap.Int("universe", len(cfg.Screener.Symbols)),
		zap.Bool("wsEnabled", srvCfg.WSEnabled),
		zap.Duration("wsStreamInterval", srvCfg.WSStreamInterval),
	)

	// Market data client shared by every scan
	provider := marketdata.NewClient(
		cfg.Provider.BaseURL,
		cfg.Provider.APIKey,
		cfg.Provider.RatePerSecond,
		time.Duration(cfg.Provider.TimeoutSec)*time.Second,
		time.Duration(cfg.Provider.RetryDelaySec)*time.Second,
		cfg.Provider.RetryCount,
		logger,
	)

	var rng *rand.Rand
	if srvCfg.SyntheticSeed != 0 {
		rng = rand.New(rand.NewSource(srvCfg.SyntheticSeed))
	}

	scanCfg := screener.Config{
		ResultCap:        cfg.Screener.ResultCap,
		PriceCeiling:     cfg.Screener.PriceCeiling,
		PremiumFloor:     cfg.Screener.PremiumFloor,
		NearTermMinDays:  cfg.Screener.NearTermMinDays,
		NearTermMaxDays:  cfg.Screener.NearTermMaxDays,
		LongDatedMinDays: cfg.Screener.LongDatedMinDays,
		RiskFreeRate:     cfg.Screener.RiskFreeRate,
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.Provider.RatePerSecond), cfg.Provider.RatePerSecond)
	scanner := screener.New(provider, limiter, scanCfg, rng, logger)

	srv := server.NewServer(scanner, cfg.Screener.Symbols, srvCfg, logger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// WebSocket components (optional)
	var wsHandler http.Handler
	if srvCfg.WSEnabled {
		hub := ws.NewHub(logger)
		go hub.Run(ctx)

		streamCriteria := screener.Criteria{
			MaxDelta:   0.6,
			MinPremium: cfg.Screener.PremiumFloor,
			Symbols:    cfg.Screener.Symbols,
		}
		streamer := ws.NewStreamer(hub, scanner, streamCriteria, srvCfg.WSStreamInterval, logger)
		go streamer.Run(ctx)

		wsHandler = http.HandlerFunc(hub.HandleScanWS)

		logger.Info("WebSocket streaming enabled",
			zap.Duration("streamInterval", srvCfg.WSStreamInterval),
		)
	}

	router := server.NewRouter(srv, wsHandler, logger)

	// Setup HTTP server
	httpServer := &http.Server{
		Addr:         ":" + srvCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Cancel context to stop WebSocket components
	cancel()

	// Graceful HTTP server shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return 1
	}

	logger.Info("server stopped")
	return 0
}

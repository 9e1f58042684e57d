package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"macdbot/internal/config"
	"macdbot/internal/engine"
	"macdbot/internal/exchange"
	"macdbot/internal/logx"
	"macdbot/internal/md"
	"macdbot/internal/metrics"
	"macdbot/internal/risk"
	"macdbot/internal/state"
	"macdbot/internal/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logx.New("info")
		bootLog.Fatal().Err(err).Msg("config")
	}
	log := logx.New(cfg.App.LogLevel)

	runID := generateRunID()
	decisions, err := engine.NewDecisionLogger(cfg.Trading.DecisionsPath, runID)
	if err != nil {
		log.Fatal().Err(err).Msg("decision logger")
	}
	defer func() {
		if err := decisions.Close(); err != nil {
			log.Error().Err(err).Msg("decision logger close")
		}
	}()

	store, err := state.Open(cfg.Trading.StatePath)
	if err != nil {
		log.Fatal().Err(err).Msg("state store")
	}
	defer store.Close()

	feed, err := md.New(cfg.Feed, log)
	if err != nil {
		log.Fatal().Err(err).Msg("price feed")
	}

	venue := exchange.New(
		cfg.Exchange.BaseURL,
		cfg.Exchange.APIKey,
		cfg.Exchange.APISecret,
		time.Duration(cfg.Exchange.TimeoutSeconds)*time.Second,
		log,
	)

	gate := risk.NewGate(risk.Limits{
		KillSwitch:       cfg.Trading.KillSwitch,
		DailyTradeLimit:  cfg.Trading.DailyTradeLimit,
		MinTradeValue:    cfg.Trading.MinTradeValue,
		MaxConcentration: cfg.Trading.MaxConcentration,
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalChan
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	bot, err := engine.New(cfg, venue, feed, store, gate, decisions, nil, log)
	if err != nil {
		log.Fatal().Err(err).Msg("engine")
	}
	dashboard := web.NewServer(cfg.App.DashboardAddr, store, bot, log)
	bot.SetPublisher(dashboard)

	if err := bot.Recover(ctx); err != nil {
		log.Fatal().Err(err).Msg("recovery")
	}

	metricsSrv := metrics.Serve(cfg.App.MetricsAddr)
	dashboard.Start()

	log.Info().Str("run_id", runID).
		Strs("pairs", cfg.Trading.Pairs).
		Str("feed", cfg.Feed.Provider).
		Dur("poll_interval", cfg.PollInterval()).
		Msg("bot started")

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("trading loop stopped")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	bot.Shutdown(shutdownCtx)
	_ = dashboard.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	log.Info().Msg("bot shutdown complete")
}

func generateRunID() string {
	timestamp := time.Now().UTC().Format("20060102T150405")
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return timestamp
	}
	return timestamp + "-" + hex.EncodeToString(randomBytes)
}

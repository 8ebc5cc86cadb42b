package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/config"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/engine"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/provider"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	st, err := store.Open(cfg.DatabasePath, logger)
	if err != nil {
		logger.Error("store open failed", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	quotes := buildProvider(cfg, logger)
	eng := engine.New(st, quotes, logger, engine.WithMarket(engine.Market{
		Timezone: cfg.MarketTimezone,
		Open:     engine.NYSE.Open,
		Close:    engine.NYSE.Close,
	}))

	if cfg.WorkerRunOnce {
		if err := runPass(ctx, eng, logger); err != nil {
			logger.Error("update pass failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.UpdateCron, func() {
		passCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		if err := runPass(passCtx, eng, logger); err != nil {
			logger.Error("update pass failed", "err", err)
		}
	})
	if err != nil {
		logger.Error("bad cron expression", "cron", cfg.UpdateCron, "err", err)
		os.Exit(1)
	}

	scheduler.Start()
	logger.Info("worker started", "cron", cfg.UpdateCron)

	<-ctx.Done()
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	logger.Info("worker shutdown")
}

// runPass spawns any due template games and then revalues everything.
func runPass(ctx context.Context, eng *engine.Engine, logger *slog.Logger) error {
	spawned, err := eng.SpawnDue(ctx)
	if err != nil {
		return err
	}
	for _, g := range spawned {
		logger.Info("spawned scheduled game", "game_id", g.ID, "name", g.Name)
	}
	if err := eng.UpdateAll(ctx, 0, false); err != nil {
		return err
	}
	logger.Info("update pass complete")
	return nil
}

func buildProvider(cfg config.Config, logger *slog.Logger) provider.Provider {
	if cfg.QuoteAPIURL == "" {
		logger.Warn("no quote api configured, using static provider")
		return provider.NewStatic(nil)
	}
	return provider.NewHTTP(cfg.QuoteAPIURL, cfg.QuoteAPIKey)
}

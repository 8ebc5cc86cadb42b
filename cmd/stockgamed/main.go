package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/api"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/bot"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/config"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/engine"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/provider"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/rules"
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
	ruleSet := rules.New(eng)

	if cfg.DiscordToken != "" {
		discord, err := bot.New(cfg.DiscordToken, cfg.CommandPrefix, logger, eng, ruleSet)
		if err != nil {
			logger.Error("discord bot init failed", "err", err)
			os.Exit(1)
		}
		if err := discord.Start(); err != nil {
			logger.Error("discord bot start failed", "err", err)
			os.Exit(1)
		}
		defer func() { _ = discord.Stop() }()
	}

	server := api.New(logger, eng, ruleSet)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("stockgame api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func buildProvider(cfg config.Config, logger *slog.Logger) provider.Provider {
	if cfg.QuoteAPIURL == "" {
		logger.Warn("no quote api configured, using static provider")
		return provider.NewStatic(nil)
	}
	return provider.NewHTTP(cfg.QuoteAPIURL, cfg.QuoteAPIKey)
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/rah-ai/financial-daily-summary/db"
	"github.com/rah-ai/financial-daily-summary/internal/briefing"
	"github.com/rah-ai/financial-daily-summary/internal/config"
	"github.com/rah-ai/financial-daily-summary/internal/logging"
	"github.com/rah-ai/financial-daily-summary/internal/repository"
	"github.com/rah-ai/financial-daily-summary/pkg/chart"
	"github.com/rah-ai/financial-daily-summary/pkg/delivery"
	"github.com/rah-ai/financial-daily-summary/pkg/llm"
	"github.com/rah-ai/financial-daily-summary/pkg/news"
)

// buildAdapters turns the config into pipeline adapters. The returned func
// closes any storage connections that were opened.
func buildAdapters(ctx context.Context, cfg *config.Config, dryRun bool, out io.Writer, logger *slog.Logger) (briefing.Adapters, func(), error) {
	var a briefing.Adapters
	closers := []func(){}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	a.News = newsSources(cfg.News)

	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		c := llm.NewOpenAIClient(cfg.LLM.OpenAIAPIKey)
		a.Summarizer, a.Translator = c, c
	case config.ProviderAnthropic:
		c := llm.NewAnthropicClient(cfg.LLM.AnthropicAPIKey)
		a.Summarizer, a.Translator = c, c
	case config.ProviderExtractive:
		a.Summarizer = llm.Extractive{}
		switch {
		case cfg.LLM.OpenAIAPIKey != "":
			a.Translator = llm.NewOpenAIClient(cfg.LLM.OpenAIAPIKey)
		case cfg.LLM.AnthropicAPIKey != "":
			a.Translator = llm.NewAnthropicClient(cfg.LLM.AnthropicAPIKey)
		}
	}

	a.Charts = chart.NewQuickChart()

	if dryRun {
		a.Messenger = &delivery.Writer{W: out}
	} else {
		a.Messenger = delivery.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
			delivery.WithLogger(logging.New("telegram")))
	}

	if cfg.Storage.RedisURL != "" {
		if err := db.ConnectRedis(ctx, cfg.Storage.RedisURL); err != nil {
			db.CloseRedis()
			return briefing.Adapters{}, nil, fmt.Errorf("error connecting to Redis: %w", err)
		}
		closers = append(closers, db.CloseRedis)

		seen := repository.NewSeenRepository(db.Redis)
		a.Seen = seen
		if !dryRun {
			a.Memory = seen
		}
	}

	if cfg.Storage.DatabaseURL != "" && !dryRun {
		if err := db.Connect(cfg.Storage.DatabaseURL); err != nil {
			closeAll()
			return briefing.Adapters{}, nil, fmt.Errorf("error connecting to DB: %w", err)
		}
		closers = append(closers, db.Close)
		a.Archive = repository.NewDigestRepository(db.DB)
	}

	logger.Info("adapters ready",
		"news", a.News.Name(),
		"provider", cfg.LLM.Provider,
		"dedupe", a.Seen != nil,
		"archive", a.Archive != nil,
		"dry_run", dryRun,
	)

	return a, closeAll, nil
}

func newsSources(cfg config.NewsConfig) *news.Multi {
	var sources []news.Source
	if cfg.FinnhubAPIKey != "" {
		sources = append(sources, news.NewFinnHubClient(cfg.FinnhubAPIKey))
	}
	if cfg.AlphaVantageAPIKey != "" {
		sources = append(sources, news.NewAlphaVantageClient(cfg.AlphaVantageAPIKey))
	}
	if cfg.MassiveAPIKey != "" {
		sources = append(sources, news.NewMassiveClient(cfg.MassiveAPIKey))
	}
	if cfg.TavilyAPIKey != "" {
		sources = append(sources, news.NewTavilyClient(cfg.TavilyAPIKey))
	}
	if cfg.SerperAPIKey != "" {
		sources = append(sources, news.NewSerperClient(cfg.SerperAPIKey))
	}
	return news.NewMulti(sources...)
}

package main

import (
	"fmt"

	"github.com/newthinker/crossover/internal/collector"
	"github.com/newthinker/crossover/internal/collector/csvfile"
	"github.com/newthinker/crossover/internal/collector/yahoo"
	"github.com/newthinker/crossover/internal/config"
	"github.com/newthinker/crossover/internal/logger"
	"github.com/newthinker/crossover/internal/metrics"
	"github.com/newthinker/crossover/internal/notifier"
	"github.com/newthinker/crossover/internal/notifier/telegram"
	"github.com/newthinker/crossover/internal/notifier/webhook"
	"github.com/newthinker/crossover/internal/storage/archive"
	"github.com/newthinker/crossover/internal/storage/report"
	"go.uber.org/zap"
)

// loadConfig reads --config (or defaults) and validates it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// newLogger honors --debug over the configured log settings.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if debug {
		return logger.New(true, "debug")
	}
	return logger.New(cfg.Log.Development, cfg.Log.Level)
}

// buildSources registers every enabled price source, each behind the
// price cache when caching is enabled. reg may be nil.
func buildSources(cfg *config.Config, log *zap.Logger, reg *metrics.Registry) *collector.Registry {
	sources := collector.NewRegistry()

	var enabled []collector.PriceSource
	if cfg.Collectors.Yahoo.Enabled {
		enabled = append(enabled, yahoo.New(yahoo.Config{
			BaseURL: cfg.Collectors.Yahoo.BaseURL,
			Timeout: cfg.Collectors.Yahoo.Timeout,
		}))
	}
	if cfg.Collectors.CSV.Enabled {
		enabled = append(enabled, csvfile.New(cfg.Collectors.CSV.Dir))
	}

	var observer collector.CacheObserver
	if reg != nil {
		observer = reg
	}

	for _, src := range enabled {
		if cfg.Cache.Enabled {
			src = collector.NewCache(src, collector.CacheConfig{
				TTL:        cfg.Cache.TTL,
				MaxEntries: cfg.Cache.MaxEntries,
			}, log.Named("cache"), observer)
		}
		sources.Register(src)
	}

	log.Debug("price sources ready", zap.Strings("sources", sources.Names()))
	return sources
}

// buildReports opens the configured report archive, or returns nil when
// archiving is disabled.
func buildReports(cfg *config.Config) (*report.Store, error) {
	a := cfg.Storage.Archive
	if a.Type == "" {
		return nil, nil
	}

	storage, err := archive.New(archive.Config{
		Type: a.Type,
		Path: a.Path,
		S3: archive.S3Config{
			Bucket:    a.S3.Bucket,
			Endpoint:  a.S3.Endpoint,
			Region:    a.S3.Region,
			AccessKey: a.S3.AccessKey,
			SecretKey: a.S3.SecretKey,
			Prefix:    a.S3.Prefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opening report archive: %w", err)
	}
	return report.NewStore(storage), nil
}

// buildNotifiers registers every enabled notifier, or returns nil when
// none is enabled.
func buildNotifiers(cfg *config.Config) (*notifier.Registry, error) {
	n := cfg.Notifiers
	reg := notifier.NewRegistry()

	if n.Webhook.Enabled {
		w, err := webhook.New(n.Webhook.URL, n.Webhook.Headers)
		if err != nil {
			return nil, err
		}
		reg.Register(w)
	}
	if n.Telegram.Enabled {
		t, err := telegram.New(n.Telegram.BotToken, n.Telegram.ChatID)
		if err != nil {
			return nil, err
		}
		reg.Register(t)
	}

	if reg.Len() == 0 {
		return nil, nil
	}
	return reg, nil
}

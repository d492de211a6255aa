// Package app assembles the search stack from configuration. Both the HTTP
// server and the CLI build their dependencies through it.
package app

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-search-service/internal/cache"
	"github.com/helixir/paper-search-service/internal/config"
	"github.com/helixir/paper-search-service/internal/domain"
	"github.com/helixir/paper-search-service/internal/events"
	"github.com/helixir/paper-search-service/internal/observability"
	"github.com/helixir/paper-search-service/internal/papersources"
	"github.com/helixir/paper-search-service/internal/papersources/arxiv"
	"github.com/helixir/paper-search-service/internal/papersources/biorxiv"
	"github.com/helixir/paper-search-service/internal/papersources/pmc"
	"github.com/helixir/paper-search-service/internal/search"
	"github.com/helixir/paper-search-service/internal/suggestions"
)

// App holds the long-lived components of the service.
type App struct {
	Registry   *papersources.Registry
	Cache      *cache.Cache
	Aggregator *search.Aggregator
	Counter    *search.Counter
	Suggester  *suggestions.Suggester
	Publisher  events.Publisher

	pmcLane *papersources.Lane
}

// New builds the search stack. metrics may be nil.
func New(cfg *config.Config, metrics *observability.Metrics, logger zerolog.Logger) *App {
	a := &App{
		Registry:  papersources.NewRegistry(),
		Counter:   search.NewCounter(cfg.Search.CounterSeed),
		Suggester: suggestions.New(nil),
		Publisher: events.NoopPublisher{},
	}

	a.registerPaperSources(cfg, metrics, logger)

	a.Cache = cache.New(cache.Config{
		TTL:           cfg.Cache.TTL,
		MaxSize:       cfg.Cache.MaxSize,
		SweepInterval: cfg.Cache.SweepInterval,
	}, logger)

	if cfg.Kafka.Enabled {
		a.Publisher = events.NewKafkaPublisher(events.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}, metrics, logger)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("search events enabled")
	}

	searchCfg := search.DefaultConfig()
	searchCfg.SourceTimeouts[domain.SourceTypePMC] = cfg.Search.PMCTimeout

	a.Aggregator = search.NewAggregator(a.Registry, a.Cache, searchCfg, logger,
		search.WithMetrics(metrics),
		search.WithPublisher(a.Publisher),
	)

	return a
}

// Close stops the PMC lane and flushes the event publisher.
func (a *App) Close() error {
	if a.pmcLane != nil {
		a.pmcLane.Close()
	}
	return a.Publisher.Close()
}

func (a *App) registerPaperSources(cfg *config.Config, metrics *observability.Metrics, logger zerolog.Logger) {
	sources := cfg.PaperSources

	// arXiv.
	if sources.ArXiv.Enabled {
		axCfg := sources.ArXiv
		a.Registry.Register(arxiv.New(arxiv.Config{
			BaseURL:    axCfg.BaseURL,
			Timeout:    axCfg.Timeout,
			RateLimit:  axCfg.RateLimit,
			MaxRetries: axCfg.MaxRetries,
			Enabled:    true,
		}))
		logger.Info().Msg("registered paper source: arXiv")
	}

	// bioRxiv and medRxiv share the details API.
	for _, entry := range []struct {
		sourceType domain.SourceType
		cfg        config.PaperSourceConfig
	}{
		{domain.SourceTypeBioRxiv, sources.BioRxiv},
		{domain.SourceTypeMedRxiv, sources.MedRxiv},
	} {
		if !entry.cfg.Enabled {
			continue
		}
		client := biorxiv.New(biorxiv.Config{
			BaseURL:    entry.cfg.BaseURL,
			SourceType: entry.sourceType,
			Timeout:    entry.cfg.Timeout,
			RateLimit:  entry.cfg.RateLimit,
			MaxRetries: entry.cfg.MaxRetries,
			MaxPages:   entry.cfg.MaxPages,
			Enabled:    true,
		})
		a.Registry.Register(client)
		logger.Info().Msgf("registered paper source: %s", client.Name())
	}

	// PMC runs every E-utilities call through one shared lane.
	if sources.PMC.Enabled {
		pmcCfg := sources.PMC
		a.pmcLane = papersources.NewLane(&http.Client{Timeout: pmcTimeout(pmcCfg.Timeout)}, papersources.LaneConfig{
			Interval:   pmcCfg.MinInterval,
			MaxRetries: pmcCfg.MaxRetries,
			RetryDelay: pmcCfg.RetryDelay,
			Observer:   metrics,
		})
		a.Registry.Register(pmc.New(pmc.Config{
			BaseURL: pmcCfg.BaseURL,
			Tool:    pmcCfg.Tool,
			Email:   pmcCfg.Email,
			Enabled: true,
		}, a.pmcLane))
		logger.Info().Dur("min_interval", pmcCfg.MinInterval).Msg("registered paper source: PMC")
	}
}

func pmcTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}

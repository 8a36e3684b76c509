package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/ppiankov/dossier/internal/cache"
	"github.com/ppiankov/dossier/internal/catalog"
	"github.com/ppiankov/dossier/internal/extract"
	"github.com/ppiankov/dossier/internal/extract/adapters"
	"github.com/ppiankov/dossier/internal/llm"
	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/store"
	"github.com/ppiankov/dossier/internal/store/sqlite"
	"github.com/ppiankov/dossier/internal/worker"
)

// LoadCatalog loads the configured catalog, or the embedded default
func LoadCatalog(cfg *model.Config) (*catalog.Catalog, error) {
	if cfg.Catalog.Path == "" {
		return catalog.Default()
	}
	return catalog.Load(cfg.Catalog.Path)
}

// OpenStore opens the configured store backend
func OpenStore(cfg *model.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		return store.NewMemory(), nil
	case "sqlite", "":
		st, err := sqlite.Open(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

// NewRunner builds the extraction runner with the built-in adapters and,
// when configured, the LLM adapter
func NewRunner(cfg *model.Config, cat *catalog.Catalog, logger *slog.Logger) (*extract.Runner, error) {
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	limiter := worker.NewLimiter(cfg.Extraction.RequestsPerSecond, cfg.Extraction.BurstSize)
	return extract.NewRunner(cat, adapters.NewRegistry(provider), limiter, cfg.Extraction.Timeout, logger), nil
}

// FromConfig assembles a pipeline: catalog, store, extraction runner and cache
func FromConfig(cfg *model.Config, logger *slog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cat, err := LoadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	runner, err := NewRunner(cfg, cat, logger)
	if err != nil {
		return nil, err
	}

	st, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	var c cache.Cache
	if cfg.Cache.Enabled {
		c = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	floor := cfg.Analysis.ConfidenceFloor
	return New(cat, st, runner, c, Options{
		Floor:           &floor,
		Targets:         cfg.Analysis.Targets,
		FactLoadTimeout: cfg.Analysis.FactLoadTimeout,
		CacheTTL:        cfg.Cache.MemoryTTL,
		Logger:          logger,
	}), nil
}

// Close releases the store
func (p *Pipeline) Close() error {
	return p.store.Close()
}

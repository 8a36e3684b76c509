package model

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfidenceFloor is the extraction confidence below which a fact
// needs the applicant's confirmation
const DefaultConfidenceFloor = 0.75

// Config holds all Dossier settings
type Config struct {
	Catalog     CatalogConfig     `yaml:"catalog" mapstructure:"catalog"`
	Analysis    AnalysisConfig    `yaml:"analysis" mapstructure:"analysis"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Extraction  ExtractionConfig  `yaml:"extraction" mapstructure:"extraction"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// CatalogConfig points at the artifact registry
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // Empty uses the embedded default catalog
}

// AnalysisConfig tunes gap analysis
type AnalysisConfig struct {
	ConfidenceFloor float64       `yaml:"confidence_floor" mapstructure:"confidence_floor"`
	Targets         []string      `yaml:"targets" mapstructure:"targets"` // Empty means every artifact
	FactLoadTimeout time.Duration `yaml:"fact_load_timeout" mapstructure:"fact_load_timeout"`
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // sqlite, memory
	Path   string `yaml:"path" mapstructure:"path"`
}

// ExtractionConfig bounds calls to document extractors
type ExtractionConfig struct {
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size" mapstructure:"burst_size"`
}

// LLMConfig configures the optional LLM extraction adapter
type LLMConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"` // openai, ollama, "" (disabled)
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"-" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens  int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig controls questionnaire caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	Dir       string        `yaml:"dir,omitempty" mapstructure:"dir"` // Empty keeps the cache in memory only
}

// ConcurrencyConfig sizes worker pools
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
	Format  string `yaml:"format" mapstructure:"format"` // text, json
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			ConfidenceFloor: DefaultConfidenceFloor,
			FactLoadTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   filepath.Join(DefaultDataDir(), "dossier.db"),
		},
		Extraction: ExtractionConfig{
			Timeout:           30 * time.Second,
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 1500,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

// Validate rejects settings the analysis cannot run with
func (c *Config) Validate() error {
	if math.IsNaN(c.Analysis.ConfidenceFloor) || c.Analysis.ConfidenceFloor < 0 || c.Analysis.ConfidenceFloor > 1 {
		return fmt.Errorf("analysis.confidence_floor must be 0-1, got %f", c.Analysis.ConfidenceFloor)
	}
	if c.Analysis.FactLoadTimeout < 0 {
		return fmt.Errorf("analysis.fact_load_timeout must not be negative, got %v", c.Analysis.FactLoadTimeout)
	}
	if c.Extraction.Timeout < 0 {
		return fmt.Errorf("extraction.timeout must not be negative, got %v", c.Extraction.Timeout)
	}
	if c.Concurrency.Workers < 0 {
		return fmt.Errorf("concurrency.workers must not be negative, got %d", c.Concurrency.Workers)
	}
	switch c.Store.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("store.driver must be sqlite or memory, got %q", c.Store.Driver)
	}
	return nil
}

// DefaultDataDir returns the data directory following the XDG spec
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".local", "share", "dossier")
		}
		dataHome = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataHome, "dossier")
}

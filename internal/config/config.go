package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ChunkingStrategy selects how the chunker augments chunk text before embedding.
type ChunkingStrategy string

const (
	ChunkingNormal     ChunkingStrategy = "normal"
	ChunkingContextual ChunkingStrategy = "contextual"
)

// EmbeddingService selects the embedding backend.
type EmbeddingService string

const (
	EmbeddingServiceTransformers EmbeddingService = "transformers"
	EmbeddingServiceOllama       EmbeddingService = "ollama"
)

// KeywordBackend names a keyword/BM25 index implementation. The value is
// validated but does not switch anything: the vector store always builds
// both an SQLite FTS5 index (non-CJK text) and a Bleve index (CJK text).
type KeywordBackend string

const (
	KeywordBackendSQLite KeywordBackend = "sqlite"
	KeywordBackendBleve  KeywordBackend = "bleve"
)

// Config is the engine's full configuration, loaded from defaults, a user
// config file, a project config file, and environment variable overrides,
// in that order of increasing precedence. The field set matches the recognized options in
// spec.md section 6, plus the ambient logging/keyword-backend keys the
// engine additionally needs to run.
type Config struct {
	DocumentsDir string `yaml:"documents_dir" json:"documents_dir"`
	DataDir      string `yaml:"data_dir" json:"data_dir"`

	ChunkSize    int              `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int              `yaml:"chunk_overlap" json:"chunk_overlap"`
	ChunkingStrategy ChunkingStrategy `yaml:"chunking_strategy" json:"chunking_strategy"`

	SimilarityTopK        int     `yaml:"similarity_top_k" json:"similarity_top_k"`
	SimilarityThreshold   float64 `yaml:"similarity_threshold" json:"similarity_threshold"`

	EmbeddingService    EmbeddingService `yaml:"embedding_service" json:"embedding_service"`
	EmbeddingModel      string           `yaml:"embedding_model" json:"embedding_model"`
	EmbeddingDimensions int              `yaml:"embedding_dimensions" json:"embedding_dimensions"`
	EmbeddingBatchSize  int              `yaml:"embedding_batch_size" json:"embedding_batch_size"`

	HybridSemanticRatio             float64 `yaml:"hybrid_semantic_ratio" json:"hybrid_semantic_ratio"`
	HybridKeywordRatio              float64 `yaml:"hybrid_keyword_ratio" json:"hybrid_keyword_ratio"`
	HybridTotalResultsForReranking  int     `yaml:"hybrid_total_results_for_reranking" json:"hybrid_total_results_for_reranking"`
	EnableLLMReranking              bool    `yaml:"enable_llm_reranking" json:"enable_llm_reranking"`

	SyncInterval      string `yaml:"sync_interval" json:"sync_interval"`
	SyncDeepInterval  string `yaml:"sync_deep_interval" json:"sync_deep_interval"`
	SyncAutoFix       bool   `yaml:"sync_auto_fix" json:"sync_auto_fix"`

	SearchPipelineTimeoutMS int `yaml:"search_pipeline_timeout_ms" json:"search_pipeline_timeout_ms"`
	MaxConcurrentProcessing int `yaml:"max_concurrent_processing" json:"max_concurrent_processing"`
	MaxCacheSize            int `yaml:"max_cache_size" json:"max_cache_size"`

	// Ambient options: not part of spec.md's recognized set, but every
	// engine needs a log level/format and a keyword backend choice (§4.2
	// notes bleve as a CJK-capable alternative to the SQLite FTS5 default).
	LogLevel       string         `yaml:"log_level" json:"log_level"`
	LogFormat      string         `yaml:"log_format" json:"log_format"`
	KeywordBackend KeywordBackend `yaml:"keyword_backend" json:"keyword_backend"`
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{
		DocumentsDir: "./documents",
		DataDir:      "./.ragengine",

		ChunkSize:        1500,
		ChunkOverlap:     200,
		ChunkingStrategy: ChunkingNormal,

		SimilarityTopK:      10,
		SimilarityThreshold: 0.0,

		EmbeddingService:    EmbeddingServiceOllama,
		EmbeddingModel:      "embeddinggemma",
		EmbeddingDimensions: 0, // auto-detected from the embedder
		EmbeddingBatchSize:  32,

		HybridSemanticRatio:            0.6,
		HybridKeywordRatio:             0.4,
		HybridTotalResultsForReranking: 20,
		EnableLLMReranking:             false,

		SyncInterval:     "5m",
		SyncDeepInterval: "1h",
		SyncAutoFix:      false,

		SearchPipelineTimeoutMS: 10000,
		MaxConcurrentProcessing: runtime.NumCPU(),
		MaxCacheSize:            1000,

		LogLevel:       "info",
		LogFormat:      "text",
		KeywordBackend: KeywordBackendSQLite,
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/ragengine/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/ragengine/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ragengine", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "ragengine", "config.yaml")
	}
	return filepath.Join(home, ".config", "ragengine", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// A nil config and nil error means no user config is present, which is fine.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// Load loads configuration for the engine rooted at dir, applying
// configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/ragengine/config.yaml)
//  3. Project config (.ragengine.yaml in dir)
//  4. Environment variables (RAGENGINE_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads .ragengine.yaml or .ragengine.yml from dir, if present.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".ragengine.yaml")
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".ragengine.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.DocumentsDir != "" {
		c.DocumentsDir = other.DocumentsDir
	}
	if other.DataDir != "" {
		c.DataDir = other.DataDir
	}
	if other.ChunkSize != 0 {
		c.ChunkSize = other.ChunkSize
	}
	if other.ChunkOverlap != 0 {
		c.ChunkOverlap = other.ChunkOverlap
	}
	if other.ChunkingStrategy != "" {
		c.ChunkingStrategy = other.ChunkingStrategy
	}
	if other.SimilarityTopK != 0 {
		c.SimilarityTopK = other.SimilarityTopK
	}
	if other.SimilarityThreshold != 0 {
		c.SimilarityThreshold = other.SimilarityThreshold
	}
	if other.EmbeddingService != "" {
		c.EmbeddingService = other.EmbeddingService
	}
	if other.EmbeddingModel != "" {
		c.EmbeddingModel = other.EmbeddingModel
	}
	if other.EmbeddingDimensions != 0 {
		c.EmbeddingDimensions = other.EmbeddingDimensions
	}
	if other.EmbeddingBatchSize != 0 {
		c.EmbeddingBatchSize = other.EmbeddingBatchSize
	}
	if other.HybridSemanticRatio != 0 {
		c.HybridSemanticRatio = other.HybridSemanticRatio
	}
	if other.HybridKeywordRatio != 0 {
		c.HybridKeywordRatio = other.HybridKeywordRatio
	}
	if other.HybridTotalResultsForReranking != 0 {
		c.HybridTotalResultsForReranking = other.HybridTotalResultsForReranking
	}
	if other.EnableLLMReranking {
		c.EnableLLMReranking = other.EnableLLMReranking
	}
	if other.SyncInterval != "" {
		c.SyncInterval = other.SyncInterval
	}
	if other.SyncDeepInterval != "" {
		c.SyncDeepInterval = other.SyncDeepInterval
	}
	if other.SyncAutoFix {
		c.SyncAutoFix = other.SyncAutoFix
	}
	if other.SearchPipelineTimeoutMS != 0 {
		c.SearchPipelineTimeoutMS = other.SearchPipelineTimeoutMS
	}
	if other.MaxConcurrentProcessing != 0 {
		c.MaxConcurrentProcessing = other.MaxConcurrentProcessing
	}
	if other.MaxCacheSize != 0 {
		c.MaxCacheSize = other.MaxCacheSize
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.KeywordBackend != "" {
		c.KeywordBackend = other.KeywordBackend
	}
}

// applyEnvOverrides applies RAGENGINE_* environment variable overrides,
// the highest-precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RAGENGINE_DOCUMENTS_DIR"); v != "" {
		c.DocumentsDir = v
	}
	if v := os.Getenv("RAGENGINE_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("RAGENGINE_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ChunkSize = n
		}
	}
	if v := os.Getenv("RAGENGINE_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.ChunkOverlap = n
		}
	}
	if v := os.Getenv("RAGENGINE_CHUNKING_STRATEGY"); v != "" {
		c.ChunkingStrategy = ChunkingStrategy(strings.ToLower(v))
	}
	if v := os.Getenv("RAGENGINE_SIMILARITY_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.SimilarityTopK = n
		}
	}
	if v := os.Getenv("RAGENGINE_SIMILARITY_THRESHOLD"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			c.SimilarityThreshold = f
		}
	}
	if v := os.Getenv("RAGENGINE_EMBEDDING_SERVICE"); v != "" {
		c.EmbeddingService = EmbeddingService(strings.ToLower(v))
	}
	if v := os.Getenv("RAGENGINE_EMBEDDING_MODEL"); v != "" {
		c.EmbeddingModel = v
	}
	if v := os.Getenv("RAGENGINE_EMBEDDING_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.EmbeddingBatchSize = n
		}
	}
	if v := os.Getenv("RAGENGINE_HYBRID_SEMANTIC_RATIO"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			c.HybridSemanticRatio = f
		}
	}
	if v := os.Getenv("RAGENGINE_HYBRID_KEYWORD_RATIO"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			c.HybridKeywordRatio = f
		}
	}
	if v := os.Getenv("RAGENGINE_ENABLE_LLM_RERANKING"); v != "" {
		c.EnableLLMReranking = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("RAGENGINE_SYNC_INTERVAL"); v != "" {
		c.SyncInterval = v
	}
	if v := os.Getenv("RAGENGINE_SYNC_DEEP_INTERVAL"); v != "" {
		c.SyncDeepInterval = v
	}
	if v := os.Getenv("RAGENGINE_SYNC_AUTO_FIX"); v != "" {
		c.SyncAutoFix = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("RAGENGINE_SEARCH_PIPELINE_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.SearchPipelineTimeoutMS = n
		}
	}
	if v := os.Getenv("RAGENGINE_MAX_CONCURRENT_PROCESSING"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxConcurrentProcessing = n
		}
	}
	if v := os.Getenv("RAGENGINE_MAX_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxCacheSize = n
		}
	}
	if v := os.Getenv("RAGENGINE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("RAGENGINE_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("RAGENGINE_KEYWORD_BACKEND"); v != "" {
		c.KeywordBackend = KeywordBackend(strings.ToLower(v))
	}
}

// parseFloat64 parses a string to float64.
func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// fileExists reports whether path exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// Validate validates the configuration and returns an error describing the
// first invalid field it finds.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be non-negative and less than chunk_size, got %d", c.ChunkOverlap)
	}

	validStrategies := map[ChunkingStrategy]bool{ChunkingNormal: true, ChunkingContextual: true}
	if !validStrategies[c.ChunkingStrategy] {
		return fmt.Errorf("chunking_strategy must be 'normal' or 'contextual', got %s", c.ChunkingStrategy)
	}

	if c.SimilarityTopK <= 0 {
		return fmt.Errorf("similarity_top_k must be positive, got %d", c.SimilarityTopK)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be between 0 and 1, got %f", c.SimilarityThreshold)
	}

	validServices := map[EmbeddingService]bool{EmbeddingServiceTransformers: true, EmbeddingServiceOllama: true}
	if !validServices[c.EmbeddingService] {
		return fmt.Errorf("embedding_service must be 'transformers' or 'ollama', got %s", c.EmbeddingService)
	}

	if c.EmbeddingBatchSize <= 0 {
		return fmt.Errorf("embedding_batch_size must be positive, got %d", c.EmbeddingBatchSize)
	}

	if c.HybridSemanticRatio < 0 || c.HybridKeywordRatio < 0 {
		return fmt.Errorf("hybrid ratios must be non-negative, got semantic=%f keyword=%f", c.HybridSemanticRatio, c.HybridKeywordRatio)
	}
	if sum := c.HybridSemanticRatio + c.HybridKeywordRatio; math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("hybrid_semantic_ratio + hybrid_keyword_ratio must equal 1.0, got %.2f", sum)
	}
	if c.HybridTotalResultsForReranking <= 0 {
		return fmt.Errorf("hybrid_total_results_for_reranking must be positive, got %d", c.HybridTotalResultsForReranking)
	}

	if c.SearchPipelineTimeoutMS <= 0 {
		return fmt.Errorf("search_pipeline_timeout_ms must be positive, got %d", c.SearchPipelineTimeoutMS)
	}
	if c.MaxConcurrentProcessing <= 0 {
		return fmt.Errorf("max_concurrent_processing must be positive, got %d", c.MaxConcurrentProcessing)
	}
	if c.MaxCacheSize < 0 {
		return fmt.Errorf("max_cache_size must be non-negative, got %d", c.MaxCacheSize)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.LogLevel)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("log_format must be 'text' or 'json', got %s", c.LogFormat)
	}
	validBackends := map[KeywordBackend]bool{KeywordBackendSQLite: true, KeywordBackendBleve: true}
	if !validBackends[c.KeywordBackend] {
		return fmt.Errorf("keyword_backend must be 'sqlite' or 'bleve', got %s", c.KeywordBackend)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

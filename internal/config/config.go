package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	docerrors "github.com/Aman-CERP/docrank/internal/errors"
)

// Project config file names, in lookup order.
const (
	ProjectConfigFile    = ".docrank.yaml"
	projectConfigFileAlt = ".docrank.yml"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Full-text providers.
const (
	FullTextNone   = "none"
	FullTextBleve  = "bleve"
	FullTextSQLite = "sqlite"
)

// Config represents the complete docrank configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Analytics AnalyticsConfig `yaml:"analytics" json:"analytics"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// SearchConfig configures the hybrid search service.
type SearchConfig struct {
	// DefaultLimit applies when a request does not set a limit.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`

	// MaxLimit rejects requests asking for more results. 0 disables the check.
	MaxLimit int `yaml:"max_limit" json:"max_limit"`

	// Method is the default fusion method.
	Method string `yaml:"method" json:"method"`

	// Strategies run when a request names none.
	Strategies []string `yaml:"strategies" json:"strategies"`

	FuzzyThreshold float64 `yaml:"fuzzy_threshold" json:"fuzzy_threshold"`

	// Timeout bounds a whole search, e.g. "5s".
	Timeout string `yaml:"timeout" json:"timeout"`

	// CompareWorkers sizes the worker pool used by compare.
	CompareWorkers int `yaml:"compare_workers" json:"compare_workers"`

	// Weights override the weighted_sum defaults per strategy.
	Weights map[string]float64 `yaml:"weights" json:"weights"`
}

// StoreConfig configures the document store adapter.
type StoreConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend" json:"backend"`

	// Path is the SQLite database file.
	Path string `yaml:"path" json:"path"`

	// Corpus is a YAML or JSON document file loaded into the memory backend
	// and used by seed. Empty means the built-in corpus.
	Corpus string `yaml:"corpus" json:"corpus"`

	// FullText is "none", "bleve" or "sqlite".
	FullText string `yaml:"fulltext" json:"fulltext"`

	MaxFailures  int    `yaml:"max_failures" json:"max_failures"`
	ResetTimeout string `yaml:"reset_timeout" json:"reset_timeout"`
	Retries      int    `yaml:"retries" json:"retries"`
}

// AnalyticsConfig configures persisted search analytics.
type AnalyticsConfig struct {
	// Path is the analytics database. Empty keeps analytics in memory.
	Path string `yaml:"path" json:"path"`

	// TopQueries is how many popular queries stats reports.
	TopQueries int `yaml:"top_queries" json:"top_queries"`
}

// LoggingConfig configures file logging.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Search: SearchConfig{
			DefaultLimit:   10,
			MaxLimit:       100,
			Method:         "weighted_sum",
			Strategies:     []string{"lexical", "fulltext"},
			FuzzyThreshold: 0.6,
			Timeout:        "5s",
			CompareWorkers: 4,
		},
		Store: StoreConfig{
			Backend:      BackendMemory,
			Path:         filepath.Join(DataDir(), "docs.db"),
			FullText:     FullTextBleve,
			MaxFailures:  5,
			ResetTimeout: "30s",
			Retries:      2,
		},
		Analytics: AnalyticsConfig{
			Path:       filepath.Join(DataDir(), "analytics.db"),
			TopQueries: 10,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// DataDir returns ~/.docrank, falling back to the temp directory.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".docrank")
	}
	return filepath.Join(home, ".docrank")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/docrank/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/docrank/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docrank", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "docrank", "config.yaml")
	}
	return filepath.Join(home, ".config", "docrank", "config.yaml")
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
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

// Load loads configuration from the specified directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/docrank/config.yaml)
//  3. Project config (.docrank.yaml in dir)
//  4. Environment variables (DOCRANK_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, docerrors.ConfigError("failed to load user config", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, docerrors.ConfigError("failed to load project config", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, docerrors.ConfigError("invalid configuration", err).
			WithSuggestion("Fix " + ProjectConfigFile + " or unset the offending DOCRANK_* variable")
	}
	return cfg, nil
}

// loadFromFile loads .docrank.yaml, or .docrank.yml as a fallback.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{ProjectConfigFile, projectConfigFileAlt} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return c.loadYAML(path)
		}
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

// mergeWith merges non-zero values from other into c. Weights merge per
// strategy so a file can override one weight and keep the rest.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Search
	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Search.MaxLimit != 0 {
		c.Search.MaxLimit = other.Search.MaxLimit
	}
	if other.Search.Method != "" {
		c.Search.Method = other.Search.Method
	}
	if len(other.Search.Strategies) > 0 {
		c.Search.Strategies = other.Search.Strategies
	}
	if other.Search.FuzzyThreshold != 0 {
		c.Search.FuzzyThreshold = other.Search.FuzzyThreshold
	}
	if other.Search.Timeout != "" {
		c.Search.Timeout = other.Search.Timeout
	}
	if other.Search.CompareWorkers != 0 {
		c.Search.CompareWorkers = other.Search.CompareWorkers
	}
	if len(other.Search.Weights) > 0 {
		if c.Search.Weights == nil {
			c.Search.Weights = make(map[string]float64, len(other.Search.Weights))
		}
		for name, w := range other.Search.Weights {
			c.Search.Weights[name] = w
		}
	}

	// Store
	if other.Store.Backend != "" {
		c.Store.Backend = other.Store.Backend
	}
	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}
	if other.Store.Corpus != "" {
		c.Store.Corpus = other.Store.Corpus
	}
	if other.Store.FullText != "" {
		c.Store.FullText = other.Store.FullText
	}
	if other.Store.MaxFailures != 0 {
		c.Store.MaxFailures = other.Store.MaxFailures
	}
	if other.Store.ResetTimeout != "" {
		c.Store.ResetTimeout = other.Store.ResetTimeout
	}
	if other.Store.Retries != 0 {
		c.Store.Retries = other.Store.Retries
	}

	// Analytics
	if other.Analytics.Path != "" {
		c.Analytics.Path = other.Analytics.Path
	}
	if other.Analytics.TopQueries != 0 {
		c.Analytics.TopQueries = other.Analytics.TopQueries
	}

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// weightEnvPrefix prefixes per-strategy weight overrides, e.g.
// DOCRANK_WEIGHT_RULE_BASED=2.
const weightEnvPrefix = "DOCRANK_WEIGHT_"

// applyEnvOverrides applies DOCRANK_* environment variable overrides.
// Malformed numeric values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCRANK_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.DefaultLimit = n
		}
	}
	if v := os.Getenv("DOCRANK_METHOD"); v != "" {
		c.Search.Method = v
	}
	if v := os.Getenv("DOCRANK_STRATEGIES"); v != "" {
		c.Search.Strategies = splitList(v)
	}
	if v := os.Getenv("DOCRANK_FUZZY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			c.Search.FuzzyThreshold = f
		}
	}
	if v := os.Getenv("DOCRANK_TIMEOUT"); v != "" {
		c.Search.Timeout = v
	}

	if v := os.Getenv("DOCRANK_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("DOCRANK_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("DOCRANK_CORPUS"); v != "" {
		c.Store.Corpus = v
	}
	if v := os.Getenv("DOCRANK_FULLTEXT"); v != "" {
		c.Store.FullText = v
	}

	if v, ok := os.LookupEnv("DOCRANK_ANALYTICS_PATH"); ok {
		// Set but empty keeps analytics in memory.
		c.Analytics.Path = v
	}
	if v := os.Getenv("DOCRANK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	for _, kv := range os.Environ() {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, weightEnvPrefix) {
			continue
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			continue
		}
		if c.Search.Weights == nil {
			c.Search.Weights = make(map[string]float64)
		}
		c.Search.Weights[strings.ToLower(strings.TrimPrefix(key, weightEnvPrefix))] = w
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TimeoutDuration parses Search.Timeout. Validate guarantees it parses.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Search.Timeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// ResetTimeoutDuration parses Store.ResetTimeout.
func (c *Config) ResetTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Store.ResetTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < 0 {
		return fmt.Errorf("search.max_limit must be non-negative, got %d", c.Search.MaxLimit)
	}
	if c.Search.MaxLimit > 0 && c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit %d exceeds search.max_limit %d", c.Search.DefaultLimit, c.Search.MaxLimit)
	}

	validMethods := map[string]bool{"weighted_sum": true, "rank_fusion": true, "cascade": true, "vote": true}
	if !validMethods[strings.ToLower(c.Search.Method)] {
		return fmt.Errorf("search.method must be 'weighted_sum', 'rank_fusion', 'cascade' or 'vote', got %s", c.Search.Method)
	}

	if c.Search.FuzzyThreshold < 0 || c.Search.FuzzyThreshold > 1 {
		return fmt.Errorf("search.fuzzy_threshold must be between 0 and 1, got %f", c.Search.FuzzyThreshold)
	}
	if d, err := time.ParseDuration(c.Search.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("search.timeout must be a positive duration, got %q", c.Search.Timeout)
	}
	if c.Search.CompareWorkers <= 0 {
		return fmt.Errorf("search.compare_workers must be positive, got %d", c.Search.CompareWorkers)
	}
	for name, w := range c.Search.Weights {
		if w < 0 {
			return fmt.Errorf("search.weights.%s must be non-negative, got %f", name, w)
		}
	}

	validBackends := map[string]bool{BackendMemory: true, BackendSQLite: true}
	if !validBackends[strings.ToLower(c.Store.Backend)] {
		return fmt.Errorf("store.backend must be 'memory' or 'sqlite', got %s", c.Store.Backend)
	}
	if strings.EqualFold(c.Store.Backend, BackendSQLite) && c.Store.Path == "" {
		return fmt.Errorf("store.path is required for the sqlite backend")
	}
	validFullText := map[string]bool{FullTextNone: true, FullTextBleve: true, FullTextSQLite: true}
	if !validFullText[strings.ToLower(c.Store.FullText)] {
		return fmt.Errorf("store.fulltext must be 'none', 'bleve' or 'sqlite', got %s", c.Store.FullText)
	}
	if strings.EqualFold(c.Store.FullText, FullTextSQLite) && !strings.EqualFold(c.Store.Backend, BackendSQLite) {
		return fmt.Errorf("store.fulltext 'sqlite' requires the sqlite backend")
	}
	if c.Store.MaxFailures <= 0 {
		return fmt.Errorf("store.max_failures must be positive, got %d", c.Store.MaxFailures)
	}
	if _, err := time.ParseDuration(c.Store.ResetTimeout); err != nil {
		return fmt.Errorf("store.reset_timeout must be a duration, got %q", c.Store.ResetTimeout)
	}
	if c.Store.Retries < 0 {
		return fmt.Errorf("store.retries must be non-negative, got %d", c.Store.Retries)
	}

	if c.Analytics.TopQueries <= 0 {
		return fmt.Errorf("analytics.top_queries must be positive, got %d", c.Analytics.TopQueries)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxFiles < 0 {
		return fmt.Errorf("logging.max_size_mb and logging.max_files must be non-negative")
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

// FindProjectRoot walks up from startDir looking for a .git directory or a
// .docrank.yaml/.yml file. It returns startDir when neither is found.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) ||
			fileExists(filepath.Join(currentDir, ProjectConfigFile)) ||
			fileExists(filepath.Join(currentDir, projectConfigFileAlt)) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

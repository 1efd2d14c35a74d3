package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docerrors "github.com/Aman-CERP/docrank/internal/errors"
)

// isolate points the user config at an empty temp dir and clears DOCRANK_*
// variables for the duration of the test.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{
		"DOCRANK_LIMIT", "DOCRANK_METHOD", "DOCRANK_STRATEGIES", "DOCRANK_FUZZY_THRESHOLD",
		"DOCRANK_TIMEOUT", "DOCRANK_STORE_BACKEND", "DOCRANK_STORE_PATH", "DOCRANK_CORPUS",
		"DOCRANK_FULLTEXT", "DOCRANK_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	return t.TempDir()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// =============================================================================
// Defaults
// =============================================================================

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: all defaults should be applied
	require.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.Version)

	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 100, cfg.Search.MaxLimit)
	assert.Equal(t, "weighted_sum", cfg.Search.Method)
	assert.Equal(t, []string{"lexical", "fulltext"}, cfg.Search.Strategies)
	assert.Equal(t, 0.6, cfg.Search.FuzzyThreshold)
	assert.Equal(t, 5*time.Second, cfg.TimeoutDuration())
	assert.Equal(t, 4, cfg.Search.CompareWorkers)

	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, FullTextBleve, cfg.Store.FullText)
	assert.Equal(t, "docs.db", filepath.Base(cfg.Store.Path))
	assert.Equal(t, 5, cfg.Store.MaxFailures)
	assert.Equal(t, 30*time.Second, cfg.ResetTimeoutDuration())
	assert.Equal(t, 2, cfg.Store.Retries)

	assert.Equal(t, "analytics.db", filepath.Base(cfg.Analytics.Path))
	assert.Equal(t, 10, cfg.Analytics.TopQueries)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestGetUserConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	assert.Equal(t, filepath.Join("/tmp/xdg", "docrank", "config.yaml"), GetUserConfigPath())
}

// =============================================================================
// Loading and precedence
// =============================================================================

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, NewConfig().Search, cfg.Search)
}

func TestLoad_ProjectConfig(t *testing.T) {
	// Given: a project config overriding search and store settings
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".docrank.yaml"), `
search:
  default_limit: 25
  method: rank_fusion
  strategies: [lexical, bm25]
  timeout: 2s
  weights:
    lexical: 2.5
store:
  backend: sqlite
  path: /tmp/docs.db
  fulltext: sqlite
`)

	// When: loading
	cfg, err := Load(dir)

	// Then: file values win and unspecified values keep their defaults
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Search.DefaultLimit)
	assert.Equal(t, "rank_fusion", cfg.Search.Method)
	assert.Equal(t, []string{"lexical", "bm25"}, cfg.Search.Strategies)
	assert.Equal(t, 2*time.Second, cfg.TimeoutDuration())
	assert.Equal(t, 2.5, cfg.Search.Weights["lexical"])
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/docs.db", cfg.Store.Path)
	assert.Equal(t, 0.6, cfg.Search.FuzzyThreshold)
	assert.Equal(t, 100, cfg.Search.MaxLimit)
}

func TestLoad_YmlFallback(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".docrank.yml"), "search:\n  default_limit: 7\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.DefaultLimit)
}

func TestLoad_YamlTakesPrecedenceOverYml(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".docrank.yaml"), "search:\n  default_limit: 8\n")
	writeFile(t, filepath.Join(dir, ".docrank.yml"), "search:\n  default_limit: 9\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Search.DefaultLimit)
}

func TestLoad_UserThenProjectThenEnv(t *testing.T) {
	// Given: user, project and env layers each setting overlapping fields
	dir := isolate(t)
	writeFile(t, GetUserConfigPath(), `
search:
  default_limit: 20
  method: vote
  weights:
    lexical: 3
    bm25: 4
analytics:
  top_queries: 15
`)
	writeFile(t, filepath.Join(dir, ".docrank.yaml"), `
search:
  default_limit: 30
  weights:
    bm25: 5
`)
	t.Setenv("DOCRANK_METHOD", "cascade")
	t.Setenv("DOCRANK_WEIGHT_RULE_BASED", "1.7")

	// When: loading
	cfg, err := Load(dir)

	// Then: each layer overrides only what it sets
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Search.DefaultLimit)
	assert.Equal(t, "cascade", cfg.Search.Method)
	assert.Equal(t, 15, cfg.Analytics.TopQueries)
	assert.Equal(t, map[string]float64{"lexical": 3, "bm25": 5, "rule_based": 1.7}, cfg.Search.Weights)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := isolate(t)
	t.Setenv("DOCRANK_LIMIT", "3")
	t.Setenv("DOCRANK_STRATEGIES", "fuzzy, ngram,,")
	t.Setenv("DOCRANK_FUZZY_THRESHOLD", "0.8")
	t.Setenv("DOCRANK_TIMEOUT", "750ms")
	t.Setenv("DOCRANK_STORE_BACKEND", "sqlite")
	t.Setenv("DOCRANK_STORE_PATH", "/tmp/x.db")
	t.Setenv("DOCRANK_CORPUS", "/tmp/corpus.yaml")
	t.Setenv("DOCRANK_FULLTEXT", "none")
	t.Setenv("DOCRANK_ANALYTICS_PATH", "")
	t.Setenv("DOCRANK_LOG_LEVEL", "debug")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Search.DefaultLimit)
	assert.Equal(t, []string{"fuzzy", "ngram"}, cfg.Search.Strategies)
	assert.Equal(t, 0.8, cfg.Search.FuzzyThreshold)
	assert.Equal(t, 750*time.Millisecond, cfg.TimeoutDuration())
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/x.db", cfg.Store.Path)
	assert.Equal(t, "/tmp/corpus.yaml", cfg.Store.Corpus)
	assert.Equal(t, FullTextNone, cfg.Store.FullText)
	assert.Empty(t, cfg.Analytics.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_MalformedEnvNumbersIgnored(t *testing.T) {
	dir := isolate(t)
	t.Setenv("DOCRANK_LIMIT", "lots")
	t.Setenv("DOCRANK_WEIGHT_LEXICAL", "heavy")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.NotContains(t, cfg.Search.Weights, "lexical")
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".docrank.yaml"), "search: [unclosed\n")

	_, err := Load(dir)

	require.Error(t, err)
	assert.Equal(t, docerrors.ErrCodeConfigInvalid, docerrors.GetCode(err))
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".docrank.yaml"), "search:\n  method: borda\n")

	_, err := Load(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	cause := errors.Unwrap(err)
	require.NotNil(t, cause)
	assert.Contains(t, cause.Error(), "search.method")
}

// =============================================================================
// Validation
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"zero default limit", func(c *Config) { c.Search.DefaultLimit = 0 }, "search.default_limit"},
		{"default over max", func(c *Config) { c.Search.DefaultLimit = 200 }, "exceeds search.max_limit"},
		{"max limit disabled", func(c *Config) { c.Search.MaxLimit = 0; c.Search.DefaultLimit = 500 }, ""},
		{"method case-insensitive", func(c *Config) { c.Search.Method = "Rank_Fusion" }, ""},
		{"unknown method", func(c *Config) { c.Search.Method = "borda" }, "search.method"},
		{"threshold above one", func(c *Config) { c.Search.FuzzyThreshold = 1.2 }, "fuzzy_threshold"},
		{"bad timeout", func(c *Config) { c.Search.Timeout = "soon" }, "search.timeout"},
		{"zero timeout", func(c *Config) { c.Search.Timeout = "0s" }, "search.timeout"},
		{"zero workers", func(c *Config) { c.Search.CompareWorkers = 0 }, "compare_workers"},
		{"negative weight", func(c *Config) { c.Search.Weights = map[string]float64{"bm25": -1} }, "search.weights.bm25"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "postgres" }, "store.backend"},
		{"sqlite without path", func(c *Config) { c.Store.Backend = BackendSQLite; c.Store.Path = "" }, "store.path"},
		{"unknown fulltext", func(c *Config) { c.Store.FullText = "lucene" }, "store.fulltext"},
		{"sqlite fulltext on memory", func(c *Config) { c.Store.FullText = FullTextSQLite }, "requires the sqlite backend"},
		{"bad reset timeout", func(c *Config) { c.Store.ResetTimeout = "later" }, "reset_timeout"},
		{"negative retries", func(c *Config) { c.Store.Retries = -1 }, "store.retries"},
		{"zero top queries", func(c *Config) { c.Analytics.TopQueries = 0 }, "top_queries"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// =============================================================================
// Writing and project discovery
// =============================================================================

func TestWriteYAML_RoundTrip(t *testing.T) {
	dir := isolate(t)
	cfg := NewConfig()
	cfg.Search.Method = "vote"
	cfg.Search.Weights = map[string]float64{"graph": 1.5}

	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ".docrank.yaml")))
	loaded, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "vote", loaded.Search.Method)
	assert.Equal(t, 1.5, loaded.Search.Weights["graph"])
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".docrank.yaml"), "version: 1\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	got, err := FindProjectRoot(nested)

	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestFindProjectRoot_GitMarker(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))
	nested := filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(nested, 0755))

	got, err := FindProjectRoot(nested)

	require.NoError(t, err)
	assert.Equal(t, root, got)
}

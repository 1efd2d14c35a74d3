package cmd

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docerrors "github.com/Aman-CERP/docrank/internal/errors"
	"github.com/Aman-CERP/docrank/internal/search"
)

// decodedSearch mirrors searchOutput for decoding.
type decodedSearch struct {
	Query   string `json:"query"`
	Method  string `json:"method"`
	Count   int    `json:"count"`
	Advice  string `json:"advice"`
	Results []struct {
		Document struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"document"`
		Score      float64  `json:"score"`
		Strategies []string `json:"strategies"`
	} `json:"results"`
}

func TestSearchCmd_RequiresQuery(t *testing.T) {
	isolate(t)

	_, _, err := runCLI(t, "search")

	require.Error(t, err)
}

func TestSearchCmd_TextOutput(t *testing.T) {
	// Given: the built-in corpus in memory
	dir := isolate(t)

	// When: searching for a phrase only one document contains
	out, _, err := runCLI(t, "search", "composition", "--strategies", "lexical,bm25", "--config-dir", dir)

	// Then: the document is listed with its contributing strategies
	require.NoError(t, err)
	assert.Contains(t, out, `for "composition"`)
	assert.Contains(t, out, "1. Vue Composition API")
	assert.Contains(t, out, "[lexical, bm25]")
	assert.Contains(t, out, "Method: weighted_sum")
	assert.Contains(t, out, "Advice:")
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	dir := isolate(t)

	out, _, err := runCLI(t, "search", "event loop",
		"--strategies", "bm25,fulltext", "--method", "rank_fusion",
		"--format", "json", "--config-dir", dir)

	require.NoError(t, err)
	var got decodedSearch
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "event loop", got.Query)
	assert.Equal(t, "rank_fusion", got.Method)
	require.NotEmpty(t, got.Results)
	assert.Equal(t, got.Count, len(got.Results))
	assert.Equal(t, "Node.js Event Loop", got.Results[0].Document.Title)
}

func TestSearchCmd_Filters(t *testing.T) {
	dir := isolate(t)

	out, _, err := runCLI(t, "search", "components", "--strategies", "lexical",
		"--tech", "typescript", "--format", "json", "--config-dir", dir)

	require.NoError(t, err)
	var got decodedSearch
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Results, 1)
	assert.Equal(t, "3", got.Results[0].Document.ID)
}

func TestSearchCmd_NoResults(t *testing.T) {
	dir := isolate(t)

	out, _, err := runCLI(t, "search", "kubernetes", "--strategies", "lexical", "--config-dir", dir)

	require.NoError(t, err)
	assert.Contains(t, out, `No results found for "kubernetes"`)
	assert.Contains(t, out, "Try less specific terms")
}

func TestSearchCmd_Rejections(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"short query", []string{"search", "a"}, docerrors.ErrCodeInvalidOptions},
		{"unknown preset", []string{"search", "vue", "--preset", "deep"}, docerrors.ErrCodeInvalidOptions},
		{"unknown method", []string{"search", "vue", "--method", "borda"}, docerrors.ErrCodeInvalidOptions},
		{"bad weight", []string{"search", "vue", "--weight", "bm25=x"}, docerrors.ErrCodeInvalidOptions},
		{"negative limit", []string{"search", "vue", "--limit=-1"}, docerrors.ErrCodeInvalidOptions},
		{"threshold above one", []string{"search", "vue", "--threshold", "1.5"}, docerrors.ErrCodeInvalidOptions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)

			_, _, err := runCLI(t, append(tt.args, "--config-dir", dir)...)

			require.Error(t, err)
			assert.Equal(t, tt.code, docerrors.GetCode(err))
		})
	}
}

func TestSearchCmd_UnsupportedFormat(t *testing.T) {
	dir := isolate(t)

	_, _, err := runCLI(t, "search", "vue", "--format", "prometheus", "--config-dir", dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestSearchOptions_BuildRequest(t *testing.T) {
	isolate(t)
	root := &rootOptions{}

	t.Run("config defaults fill unset options", func(t *testing.T) {
		req, err := searchOptions{}.buildRequest(root)

		require.NoError(t, err)
		assert.Equal(t, 10, req.Limit)
		require.NotNil(t, req.FuzzyThreshold)
		assert.InDelta(t, 0.6, *req.FuzzyThreshold, 1e-9)
		assert.Empty(t, req.Strategies)
		assert.Empty(t, req.Method)
	})

	t.Run("preset with overrides", func(t *testing.T) {
		opts := searchOptions{preset: "semantic", graph: true, method: "vote"}
		opts.limit = 3

		req, err := opts.buildRequest(root)

		require.NoError(t, err)
		assert.Equal(t, []string{"bm25", "ngram", "graph"}, req.Strategies)
		assert.Equal(t, search.Vote, req.Method)
		assert.Equal(t, 3, req.Limit)
	})

	t.Run("explicit zero threshold is kept", func(t *testing.T) {
		var opts searchOptions
		require.NoError(t, opts.threshold.Set("0"))

		req, err := opts.buildRequest(root)

		require.NoError(t, err)
		require.NotNil(t, req.FuzzyThreshold)
		assert.Zero(t, *req.FuzzyThreshold)
	})

	t.Run("recommend only without explicit strategies", func(t *testing.T) {
		req, err := searchOptions{recommend: true}.buildRequest(root)
		require.NoError(t, err)
		assert.True(t, req.Recommend)

		req, err = searchOptions{recommend: true, strategies: []string{"bm25"}}.buildRequest(root)
		require.NoError(t, err)
		assert.False(t, req.Recommend)
	})

	t.Run("troubleshoot preset sets type", func(t *testing.T) {
		req, err := searchOptions{preset: "troubleshoot"}.buildRequest(root)

		require.NoError(t, err)
		assert.Equal(t, "issue", req.Type)
		assert.Equal(t, search.Vote, req.Method)
	})

	t.Run("config error propagates", func(t *testing.T) {
		broken := &rootOptions{cfgErr: docerrors.ConfigError("invalid configuration", errors.New("bad"))}

		_, err := searchOptions{}.buildRequest(broken)

		assert.Equal(t, docerrors.ErrCodeConfigInvalid, docerrors.GetCode(err))
	})
}

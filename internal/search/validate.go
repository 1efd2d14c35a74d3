package search

import (
	"fmt"
	"strings"
	"unicode/utf8"

	docerrors "github.com/Aman-CERP/docrank/internal/errors"
)

// MinQueryLength is the shortest query, in characters after trimming, that
// the service accepts.
const MinQueryLength = 2

// ValidateQuery rejects queries too short to match anything useful.
func ValidateQuery(query string) error {
	if utf8.RuneCountInString(strings.TrimSpace(query)) < MinQueryLength {
		return docerrors.InvalidOptions(fmt.Sprintf("query must be at least %d characters", MinQueryLength)).
			WithDetail("query", query).
			WithSuggestion("Use a longer, more specific query")
	}
	return nil
}

// validateRequest checks request options before any strategy runs. maxLimit
// <= 0 disables the upper bound on Limit.
func validateRequest(req Request, maxLimit int) error {
	if req.Limit < 0 {
		return docerrors.InvalidOptions(fmt.Sprintf("limit must not be negative, got %d", req.Limit))
	}
	if maxLimit > 0 && req.Limit > maxLimit {
		return docerrors.InvalidOptions(fmt.Sprintf("limit %d exceeds maximum %d", req.Limit, maxLimit)).
			WithSuggestion(fmt.Sprintf("Use --limit %d or lower", maxLimit))
	}
	if t := req.FuzzyThreshold; t != nil && (*t < 0 || *t > 1) {
		return docerrors.InvalidOptions(fmt.Sprintf("fuzzy threshold must be in [0, 1], got %g", *t))
	}
	if req.Method != "" {
		if _, err := ParseMethod(string(req.Method)); err != nil {
			return docerrors.InvalidOptions(err.Error()).
				WithSuggestion("Use one of: weighted_sum, rank_fusion, cascade, vote")
		}
	}
	for name, w := range req.Weights {
		if w < 0 {
			return docerrors.InvalidOptions(fmt.Sprintf("weight for %q must not be negative", name))
		}
	}
	return nil
}

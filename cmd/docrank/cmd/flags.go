package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrank/internal/config"
	"github.com/Aman-CERP/docrank/internal/strategy"
)

// queryFlags are the strategy options shared by search, strategy and compare.
type queryFlags struct {
	limit      int
	technology string
	docType    string
	threshold  optionalFloat
}

// optionalFloat is a float flag that remembers whether it was given, so an
// explicit zero differs from unset.
type optionalFloat struct {
	value float64
	set   bool
}

func (o *optionalFloat) String() string {
	if !o.set {
		return ""
	}
	return strconv.FormatFloat(o.value, 'g', -1, 64)
}

func (o *optionalFloat) Set(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return err
	}
	o.value, o.set = v, true
	return nil
}

func (o *optionalFloat) Type() string { return "float" }

func (f *queryFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVar(&f.technology, "tech", "", "Filter by technology (e.g., vue, nodejs)")
	cmd.Flags().StringVarP(&f.docType, "type", "t", "", "Filter by document type (e.g., documentation, issue)")
	cmd.Flags().Var(&f.threshold, "threshold", "Fuzzy similarity threshold in [0, 1] (default from config)")
}

// options resolves unset flags from the configuration.
func (f *queryFlags) options(cfg *config.Config) strategy.Options {
	opts := strategy.Options{
		Limit:          f.limit,
		Technology:     f.technology,
		Type:           f.docType,
		FuzzyThreshold: strategy.Threshold(cfg.Search.FuzzyThreshold),
	}
	if opts.Limit == 0 {
		opts.Limit = cfg.Search.DefaultLimit
	}
	if f.threshold.set {
		opts.FuzzyThreshold = strategy.Threshold(f.threshold.value)
	}
	return opts
}

// parseWeights turns name=value pairs into strategy weights.
func parseWeights(raw map[string]string) (map[string]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	weights := make(map[string]float64, len(raw))
	for name, value := range raw {
		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight for %s: %q", name, value)
		}
		weights[strings.ToLower(strings.TrimSpace(name))] = w
	}
	return weights, nil
}

// checkFormat rejects output formats a command does not support.
func checkFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return fmt.Errorf("unsupported format %q (want %s)", format, strings.Join(allowed, ", "))
}

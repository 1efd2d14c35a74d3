package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/docrank/internal/output"
	"github.com/Aman-CERP/docrank/internal/search"
	"github.com/Aman-CERP/docrank/internal/store"
	"github.com/Aman-CERP/docrank/internal/strategy"
)

const snippetLines = 2

func newWriter(w io.Writer, opts *rootOptions) *output.Writer {
	if opts.noColor {
		return output.NewWithColor(w, false)
	}
	return output.New(w)
}

// describeDocument prints "N. Title (score: x)" plus source and snippet.
func describeDocument(out *output.Writer, i int, d *store.Document, score float64, extra string) {
	line := fmt.Sprintf("%d. %s (score: %s)", i+1, out.Styles().Accent.Render(d.Title), out.Score(score))
	if extra != "" {
		line += " " + extra
	}
	out.Status("", line)

	var meta []string
	if d.Source != "" {
		meta = append(meta, d.Source)
	}
	if d.Technology != "" {
		meta = append(meta, d.Technology)
	}
	if d.Type != "" {
		meta = append(meta, d.Type)
	}
	if len(meta) > 0 {
		out.Status("", "   "+out.Styles().Label.Render(strings.Join(meta, " · ")))
	}
	out.Snippet(d.Content, snippetLines)
}

func renderFused(out *output.Writer, query string, results []search.FusedResult) {
	if len(results) == 0 {
		out.Status("", fmt.Sprintf("No results found for %q", query))
		return
	}

	out.Statusf("🔍", "Found %d results for %q:", len(results), query)
	out.Newline()
	for i, r := range results {
		extra := out.Styles().Dim.Render(fmt.Sprintf("[%s]", strings.Join(r.Strategies, ", ")))
		describeDocument(out, i, r.Document, r.Score, extra)
		out.Newline()
	}
}

func renderStrategyResults(out *output.Writer, name, query string, results []strategy.Result) {
	if len(results) == 0 {
		out.Status("", fmt.Sprintf("No %s results found for %q", name, query))
		return
	}

	out.Statusf("🔍", "%s found %d results for %q:", name, len(results), query)
	out.Newline()
	for i, r := range results {
		extra := out.Styles().Dim.Render("(" + r.MatchType + ")")
		describeDocument(out, i, r.Document, r.Score, extra)
		out.Newline()
	}
}

package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Aman-CERP/von/internal/search"
)

// ResultsRenderer prints search results one per line.
type ResultsRenderer struct {
	out    io.Writer
	styles Styles
}

// NewResultsRenderer creates a results renderer.
func NewResultsRenderer(out io.Writer, noColor bool) *ResultsRenderer {
	return &ResultsRenderer{out: out, styles: GetStyles(noColor)}
}

// Render writes key, source and the matched field. Full-text results also
// show their score.
func (r *ResultsRenderer) Render(results []search.Result, fulltext bool) error {
	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	for _, res := range results {
		e := res.Entry
		key := e.Key
		if e.Secret {
			key += "*"
		}
		line := []string{r.styles.Key.Render(key), e.Source, r.styles.Dim.Render(string(res.Field))}
		if fulltext {
			line = append(line, r.styles.Label.Render(fmt.Sprintf("%.3f", res.Score)))
		}
		if _, err := fmt.Fprintln(tw, strings.Join(line, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// RenderJSON writes results as a JSON array.
func (r *ResultsRenderer) RenderJSON(results []search.Result) error {
	if results == nil {
		results = []search.Result{}
	}
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

// Package report renders search results as the text payload that gets
// wrapped in the external-content boundary.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/segmentio/encoding/json"

	"github.com/Easy-Infra-Ltd/easy-web-search/src/errs"
	"github.com/Easy-Infra-Ltd/easy-web-search/src/search"
)

// Format selects a rendering.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ParseFormat maps a user supplied name to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatText:
		return FormatText, nil
	default:
		return "", errs.Errorf(errs.CodeReportRenderFailure, "unknown format %q (want json or text)", s)
	}
}

// Render renders results for query in the given format.
func Render(format Format, query string, results []search.Result) (string, error) {
	switch format {
	case FormatText:
		return Text(query, results), nil
	case FormatJSON, "":
		return JSON(query, results)
	default:
		return "", errs.Errorf(errs.CodeReportRenderFailure, "unknown format %q", format)
	}
}

// Text renders a numbered plain-text listing.
func Text(query string, results []search.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\n", query)

	if len(results) == 0 {
		b.WriteString("No results found.\n")
		return b.String()
	}

	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Title)
		fmt.Fprintf(&b, "   %s\n", r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.Snippet)
		}
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}

type jsonReport struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
	Count   int             `json:"count"`
}

// JSON renders {"query", "results", "count"} indented by two spaces. HTML
// escaping is off: escaping '<' would hide forged markers from the sanitizer
// while a model would still read them.
func JSON(query string, results []search.Result) (string, error) {
	if results == nil {
		results = []search.Result{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonReport{Query: query, Results: results, Count: len(results)}); err != nil {
		return "", errs.Wrap(err, errs.CodeReportRenderFailure, "encoding results")
	}

	return strings.TrimSuffix(buf.String(), "\n"), nil
}

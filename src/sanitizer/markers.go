package sanitizer

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
)

// Boundary markers and the placeholders that replace forged copies of them.
// Downstream consumers are told about these exact strings out of band
// (see ConsumerInstructions); they must not change independently.
const (
	StartMarker = "<<<EXTERNAL_UNTRUSTED_CONTENT>>>"
	EndMarker   = "<<<END_EXTERNAL_UNTRUSTED_CONTENT>>>"

	StartPlaceholder = "[[MARKER_SANITIZED]]"
	EndPlaceholder   = "[[END_MARKER_SANITIZED]]"
)

var (
	// markerFamily is the token both markers share. Content without it
	// cannot contain either marker.
	markerFamily = regexp.MustCompile(`(?i)external_untrusted_content`)

	markerPatterns = []struct {
		re          *regexp.Regexp
		replacement string
	}{
		{re: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(StartMarker)), replacement: StartPlaceholder},
		{re: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(EndMarker)), replacement: EndPlaceholder},
	}
)

// span is a [start, end) byte range of the raw text to be replaced.
type span struct {
	start, end  int
	replacement string
}

// SanitizeMarkers replaces every occurrence of StartMarker and EndMarker in
// raw, matched case-insensitively and including fullwidth lookalikes, with
// StartPlaceholder and EndPlaceholder. Everything outside a matched span is
// returned byte for byte.
func SanitizeMarkers(raw string) string {
	out, _ := neutralize(raw)
	return out
}

// neutralize is SanitizeMarkers that also reports how many markers were
// replaced.
func neutralize(raw string) (string, int) {
	view := newFoldedView(raw)
	if !markerFamily.MatchString(view.text) {
		return raw, 0
	}

	var spans []span
	for _, p := range markerPatterns {
		for _, loc := range p.re.FindAllStringIndex(view.text, -1) {
			start, end := view.rawSpan(loc[0], loc[1])
			spans = append(spans, span{start: start, end: end, replacement: p.replacement})
		}
	}
	if len(spans) == 0 {
		return raw, 0
	}

	return applySpans(raw, spans)
}

// applySpans splices replacements into raw left to right. A span starting
// before the end of an already applied span is dropped, so the earliest
// starting span of an overlapping group wins.
func applySpans(raw string, spans []span) (string, int) {
	slices.SortStableFunc(spans, func(a, b span) int {
		return cmp.Compare(a.start, b.start)
	})

	var b strings.Builder
	b.Grow(len(raw))

	cursor, applied := 0, 0
	for _, s := range spans {
		if s.start < cursor {
			continue
		}
		b.WriteString(raw[cursor:s.start])
		b.WriteString(s.replacement)
		cursor = s.end
		applied++
	}
	b.WriteString(raw[cursor:])

	return b.String(), applied
}

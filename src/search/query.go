// Package search queries DuckDuckGo's HTML endpoint and extracts organic
// results. Everything it returns is untrusted and is meant to be wrapped by
// the sanitizer before reaching a model.
package search

import (
	"net/url"
	"strings"

	"github.com/Easy-Infra-Ltd/easy-web-search/src/errs"
)

// DefaultCount is used when a query asks for zero or fewer results.
const DefaultCount = 10

// SafeLevel is DuckDuckGo's safe search setting.
type SafeLevel string

const (
	SafeOff      SafeLevel = "off"
	SafeModerate SafeLevel = "moderate"
	SafeStrict   SafeLevel = "strict"
)

// param returns the kp query value. Unknown levels fall back to moderate.
func (s SafeLevel) param() string {
	switch s {
	case SafeOff:
		return "-2"
	case SafeStrict:
		return "1"
	default:
		return "-1"
	}
}

// Query describes a single search.
type Query struct {
	Text   string
	Count  int
	Region string // e.g. "us-en"; empty lets DuckDuckGo choose
	Safe   SafeLevel
}

// Normalized returns q with surrounding whitespace trimmed and the
// count defaulted.
func (q Query) Normalized() Query {
	q.Text = strings.TrimSpace(q.Text)
	q.Region = strings.TrimSpace(q.Region)
	if q.Count <= 0 {
		q.Count = DefaultCount
	}
	if q.Safe == "" {
		q.Safe = SafeModerate
	}
	return q
}

// BuildURL returns the search URL for q against endpoint.
func BuildURL(endpoint string, q Query) (string, error) {
	if strings.TrimSpace(q.Text) == "" {
		return "", errs.New(errs.CodeSearchRequestInvalid, "query is empty")
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errs.Wrap(err, errs.CodeSearchRequestInvalid, "parsing endpoint", errs.Field("endpoint", endpoint))
	}

	params := u.Query()
	params.Set("q", q.Text)
	if q.Region != "" {
		params.Set("kl", q.Region)
	}
	params.Set("kp", q.Safe.param())
	u.RawQuery = params.Encode()

	return u.String(), nil
}

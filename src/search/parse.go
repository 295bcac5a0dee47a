package search

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"github.com/Easy-Infra-Ltd/easy-web-search/src/errs"
)

// redirectBase resolves DuckDuckGo's relative "/l/?uddg=" redirect links.
const redirectBase = "https://duckduckgo.com"

// Result is one organic search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// ParseResults extracts up to count organic results from a DuckDuckGo HTML
// results page, in document order. Ads and entries without a title or URL
// are skipped. A count of zero or less means DefaultCount.
func ParseResults(r io.Reader, count int) ([]Result, error) {
	if count <= 0 {
		count = DefaultCount
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeSearchParseFailure, "parsing results page")
	}

	results := make([]Result, 0, count)
	doc.Find(".result").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if len(results) >= count {
			return false
		}
		if el.HasClass("result--ad") {
			return true
		}

		link := el.Find(".result__title a, .result__a").First()
		title := cleanText(link.Text())
		href, _ := link.Attr("href")
		snippet := cleanText(el.Find(".result__snippet").Text())

		href = unwrapRedirect(href)
		if title == "" || href == "" {
			return true
		}

		results = append(results, Result{Title: title, URL: href, Snippet: snippet})
		return true
	})

	return results, nil
}

// unwrapRedirect returns the target of a DuckDuckGo redirect link, or href
// unchanged when it is not one or cannot be parsed.
func unwrapRedirect(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	base, _ := url.Parse(redirectBase)
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := base.ResolveReference(ref).Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

// cleanText trims extracted text and puts it in NFC. NFC leaves
// compatibility characters such as fullwidth letters alone.
func cleanText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

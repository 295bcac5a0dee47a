// Package gateway exposes web search and content wrapping as MCP tools,
// passing every untrusted payload through the sanitization pipeline.
package gateway

import (
	"context"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/segmentio/encoding/json"

	"github.com/Easy-Infra-Ltd/easy-web-search/src/config"
	"github.com/Easy-Infra-Ltd/easy-web-search/src/errs"
	"github.com/Easy-Infra-Ltd/easy-web-search/src/report"
	"github.com/Easy-Infra-Ltd/easy-web-search/src/sanitizer"
	"github.com/Easy-Infra-Ltd/easy-web-search/src/search"
	"github.com/Easy-Infra-Ltd/easy-web-search/src/transport"
)

const (
	ToolWebSearch = "web_search"
	ToolWrap      = "wrap_external_content"

	// DefaultWrapSource labels wrapped content that arrives without a source.
	DefaultWrapSource = "External Content"
)

// Searcher runs a web search. *search.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, q search.Query) ([]search.Result, error)
}

// Registry registers the MCP tools on an upstream server.
type Registry struct {
	upstream *transport.Upstream
	searcher Searcher
	cfg      config.Config
	logger   *slog.Logger
}

// NewRegistry creates a registry wired to the given upstream and searcher.
func NewRegistry(upstream *transport.Upstream, searcher Searcher, cfg config.Config, logger *slog.Logger) *Registry {
	return &Registry{
		upstream: upstream,
		searcher: searcher,
		cfg:      cfg,
		logger:   logger.With("area", "registry"),
	}
}

// Register adds every tool to the upstream server and returns how many
// were registered.
func (r *Registry) Register() int {
	r.upstream.Server.AddTool(webSearchTool(), r.handleWebSearch)
	r.upstream.Server.AddTool(wrapTool(), r.handleWrap)
	return 2
}

func webSearchTool() *mcp.Tool {
	return &mcp.Tool{
		Name: ToolWebSearch,
		Description: "Search the web with DuckDuckGo. Results are external, untrusted content " +
			"and are returned inside boundary markers.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"query"},
			"properties": map[string]any{
				"query":  map[string]any{"type": "string", "description": "Search terms"},
				"count":  map[string]any{"type": "integer", "description": "Number of results (default 10)"},
				"region": map[string]any{"type": "string", "description": "Region code, e.g. us-en, uk-en, de-de"},
				"safe": map[string]any{
					"type": "string", "enum": []string{"off", "moderate", "strict"},
					"description": "Safe search level (default moderate)",
				},
				"format": map[string]any{
					"type": "string", "enum": []string{"json", "text"},
					"description": "Rendering of the results (default json)",
				},
			},
		},
	}
}

func wrapTool() *mcp.Tool {
	return &mcp.Tool{
		Name: ToolWrap,
		Description: "Wrap untrusted text in external-content boundary markers, neutralizing " +
			"any forged markers it contains.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"content"},
			"properties": map[string]any{
				"content": map[string]any{"type": "string", "description": "Untrusted text"},
				"source":  map[string]any{"type": "string", "description": "Provenance label shown in the wrapper"},
			},
		},
	}
}

type webSearchArgs struct {
	Query  string `json:"query"`
	Count  int    `json:"count"`
	Region string `json:"region"`
	Safe   string `json:"safe"`
	Format string `json:"format"`
}

type wrapArgs struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

func (r *Registry) handleWebSearch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args webSearchArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err), nil
	}
	if strings.TrimSpace(args.Query) == "" {
		return errorResult(errs.New(errs.CodeToolArgumentsInvalid, "query is required")), nil
	}
	format, err := report.ParseFormat(args.Format)
	if err != nil {
		return errorResult(err), nil
	}

	q := search.Query{
		Text:   args.Query,
		Count:  args.Count,
		Region: args.Region,
		Safe:   search.SafeLevel(args.Safe),
	}
	if q.Count <= 0 {
		q.Count = r.cfg.Search.Count
	}
	if q.Region == "" {
		q.Region = r.cfg.Search.Region
	}
	if q.Safe == "" {
		q.Safe = search.SafeLevel(r.cfg.Search.Safe)
	}
	q = q.Normalized()

	results, err := r.searcher.Search(ctx, q)
	if err != nil {
		r.logger.Warn("search failed", "query", q.Text, "err", err)
		return errorResult(err), nil
	}

	body, err := report.Render(format, q.Text, results)
	if err != nil {
		return nil, err
	}

	return r.wrap(ctx, body, r.cfg.Boundary.SourceLabel())
}

func (r *Registry) handleWrap(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args wrapArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err), nil
	}
	return r.wrap(ctx, args.Content, CleanSource(args.Source))
}

// CleanSource makes a caller supplied provenance label safe to print on the
// Source line inside the boundary. Line breaks become spaces and forged
// markers are neutralized. A blank label becomes DefaultWrapSource.
func CleanSource(label string) string {
	label = strings.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', '\v', '\f', 0x85, 0x2028, 0x2029:
			return ' '
		}
		return r
	}, label)
	label = strings.TrimSpace(sanitizer.SanitizeMarkers(label))
	if label == "" {
		return DefaultWrapSource
	}
	return label
}

func (r *Registry) wrap(ctx context.Context, content, source string) (*mcp.CallToolResult, error) {
	pr, err := BuildPipeline(r.cfg.Boundary, source).Process(ctx, content)
	if err != nil {
		return nil, err
	}
	if len(pr.AllThreats) > 0 {
		r.logger.Warn("untrusted content rewritten", "source", source, "threats", pr.AllThreats)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: pr.FinalContent}},
	}, nil
}

// BuildPipeline constructs the pipeline applied to every untrusted payload.
// Scanner order: length -> boundary, so truncation never cuts the wrapper.
func BuildPipeline(cfg config.BoundaryConfig, source string) *sanitizer.Pipeline {
	var scanners []sanitizer.Scanner

	if limit := cfg.MaxChars(); limit > 0 {
		scanners = append(scanners, sanitizer.NewLengthScanner(limit))
	}
	scanners = append(scanners, sanitizer.NewBoundaryScanner(source))

	return sanitizer.NewPipeline(scanners...)
}

func decodeArgs(req *mcp.CallToolRequest, dst any) error {
	raw := req.Params.Arguments
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errs.Wrap(err, errs.CodeToolArgumentsInvalid, "decoding arguments")
	}
	return nil
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}

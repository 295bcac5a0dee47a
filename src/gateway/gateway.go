package gateway

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/Easy-Infra-Ltd/easy-web-search/src/config"
	"github.com/Easy-Infra-Ltd/easy-web-search/src/search"
	"github.com/Easy-Infra-Ltd/easy-web-search/src/transport"
)

// Gateway is the top-level orchestrator. It wires config, the search
// client, the tool registry and the upstream MCP server together.
type Gateway struct {
	cfg    config.Config
	logger *slog.Logger

	// searcher is injected for testing; nil builds a search.Client from cfg.
	searcher Searcher
}

// New creates a Gateway from the given config and logger.
func New(cfg config.Config, logger *slog.Logger) *Gateway {
	return &Gateway{cfg: cfg, logger: logger}
}

// NewWithSearcher creates a Gateway with a custom searcher (primarily for
// testing).
func NewWithSearcher(cfg config.Config, logger *slog.Logger, searcher Searcher) *Gateway {
	return &Gateway{cfg: cfg, logger: logger, searcher: searcher}
}

// Run registers the tools and serves the upstream transport. Blocks until
// SIGINT/SIGTERM or ctx cancellation.
func (g *Gateway) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g.logger.Info("starting gateway")

	searcher := g.searcher
	if searcher == nil {
		searcher = search.NewClient(g.cfg.Search, g.logger)
	}

	upstream := transport.NewUpstream(g.cfg.Upstream, g.logger)

	count := NewRegistry(upstream, searcher, g.cfg, g.logger).Register()
	g.logger.Info("tools registered", "total", count)

	g.logger.Info("upstream ready", "transport", g.cfg.Upstream.Transport)
	return upstream.Run(ctx)
}

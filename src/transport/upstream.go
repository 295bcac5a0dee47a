// Package transport serves the MCP protocol to LLM clients over stdio or
// streamable HTTP.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Easy-Infra-Ltd/easy-web-search/src/config"
	"github.com/Easy-Infra-Ltd/easy-web-search/src/sanitizer"
)

// ServerName is advertised to MCP clients during initialization.
const ServerName = "easy-web-search"

const shutdownTimeout = 5 * time.Second

// Upstream wraps the MCP server that faces LLM clients. Tools are registered
// on the underlying Server before calling Run.
type Upstream struct {
	Server *mcp.Server
	cfg    config.UpstreamConfig
	logger *slog.Logger
}

// NewUpstream creates an MCP server configured for the given transport.
// Clients receive sanitizer.ConsumerInstructions on initialization, which is
// how they learn what the boundary markers in tool results mean.
func NewUpstream(cfg config.UpstreamConfig, logger *slog.Logger) *Upstream {
	srv := mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: Version,
		},
		&mcp.ServerOptions{
			Logger:       logger,
			Instructions: sanitizer.ConsumerInstructions,
		},
	)
	return &Upstream{
		Server: srv,
		cfg:    cfg,
		logger: logger.With("area", "upstream"),
	}
}

// Run serves on the configured transport and blocks until ctx is cancelled
// or the transport closes.
func (u *Upstream) Run(ctx context.Context) error {
	switch u.cfg.Transport {
	case config.TransportStdio:
		u.logger.Info("starting stdio transport")
		return u.Server.Run(ctx, &mcp.StdioTransport{})
	case config.TransportHTTP:
		return u.runHTTP(ctx)
	default:
		return fmt.Errorf("unsupported upstream transport: %s", u.cfg.Transport)
	}
}

// Handler returns the streamable HTTP handler for this server.
func (u *Upstream) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return u.Server },
		&mcp.StreamableHTTPOptions{Logger: u.logger},
	)
}

func (u *Upstream) runHTTP(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(u.cfg.HTTP.Path, u.Handler())

	ln, err := net.Listen("tcp", u.cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", u.cfg.HTTP.Addr, err)
	}
	u.logger.Info("starting HTTP transport", "addr", ln.Addr(), "path", u.cfg.HTTP.Path)

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		u.logger.Info("shutting down HTTP transport")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

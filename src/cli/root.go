// Package cli is the easy-web-search command tree.
package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"

	"github.com/Easy-Infra-Ltd/easy-web-search/src/config"
	"github.com/Easy-Infra-Ltd/easy-web-search/src/errs"
	"github.com/Easy-Infra-Ltd/easy-web-search/src/transport"
)

// NewRootCmd creates the root command with all subcommands registered.
func NewRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "easy-web-search",
		Short:         "Web search with untrusted-content boundaries",
		Long:          "easy-web-search queries DuckDuckGo and returns results wrapped in external-content boundary markers, as a CLI or an MCP server.",
		Version:       transport.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().Int("max-chars", 0, "cap wrapped content at this many characters (0 disables)")

	root.AddCommand(
		newSearchCmd(logger),
		newWrapCmd(logger),
		newServeCmd(logger),
	)

	return root
}

// Run executes the command tree with the given arguments and streams and
// returns the process exit code. Errors are written to stderr as
// {"error": "<message>"}.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, logger *slog.Logger) int {
	root := NewRootCmd(logger)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		writeError(stderr, err)
		return 1
	}
	return 0
}

func writeError(w io.Writer, err error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(map[string]string{"error": err.Error()})
}

// loadConfig reads --config and overlays --max-chars when it was given.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if cmd.Flags().Changed("max-chars") {
		n, _ := cmd.Flags().GetInt("max-chars")
		if n < 0 {
			return config.Config{}, errs.Errorf(errs.CodeCLIInputInvalid, "--max-chars must not be negative (got %d)", n)
		}
		cfg.Boundary = config.Merge(&cfg.Boundary, &config.BoundaryConfig{MaxContentChars: &n})
	}

	return cfg, nil
}

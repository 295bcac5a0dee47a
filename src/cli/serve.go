package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Easy-Infra-Ltd/easy-web-search/src/gateway"
)

func newServeCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long:  "Serve the web_search and wrap_external_content tools over stdio or streamable HTTP, as set in the config file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return gateway.New(cfg, logger).Run(cmd.Context())
		},
	}
}

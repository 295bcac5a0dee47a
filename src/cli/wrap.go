package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Easy-Infra-Ltd/easy-web-search/src/errs"
	"github.com/Easy-Infra-Ltd/easy-web-search/src/gateway"
)

func newWrapCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wrap",
		Short: "Wrap stdin in external-content boundary markers",
		Long:  "Read untrusted text from stdin, neutralize forged boundary markers and print it inside a fresh boundary.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWrap(cmd, logger)
		},
	}

	cmd.Flags().String("source", gateway.DefaultWrapSource, "provenance label shown in the wrapper")

	return cmd
}

func runWrap(cmd *cobra.Command, logger *slog.Logger) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return errs.Wrap(err, errs.CodeCLIInputInvalid, "reading stdin")
	}

	source, _ := cmd.Flags().GetString("source")
	source = gateway.CleanSource(source)

	pr, err := gateway.BuildPipeline(cfg.Boundary, source).Process(cmd.Context(), string(data))
	if err != nil {
		return err
	}
	if len(pr.AllThreats) > 0 {
		logger.Warn("untrusted content rewritten", "source", source, "threats", pr.AllThreats)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), pr.FinalContent)
	return err
}

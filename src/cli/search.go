package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Easy-Infra-Ltd/easy-web-search/src/errs"
	"github.com/Easy-Infra-Ltd/easy-web-search/src/gateway"
	"github.com/Easy-Infra-Ltd/easy-web-search/src/report"
	"github.com/Easy-Infra-Ltd/easy-web-search/src/search"
)

func newSearchCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Run one search and print the wrapped results",
		Long:  "Search DuckDuckGo and print the results inside external-content boundary markers.",
		Example: `  easy-web-search search golang generics
  easy-web-search search -n 5 -r uk-en -s strict "weather london"
  easy-web-search search -t rust async`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args, logger)
		},
	}

	cmd.Flags().IntP("count", "n", 0, "number of results (default from config)")
	cmd.Flags().StringP("region", "r", "", "region code, e.g. us-en, uk-en, de-de")
	cmd.Flags().StringP("safe", "s", "", "safe search level: off, moderate or strict")
	cmd.Flags().BoolP("text", "t", false, "render results as plain text instead of JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string, logger *slog.Logger) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
		return errs.New(errs.CodeCLIInputInvalid, "query is required")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	q := search.Query{
		Text:   text,
		Count:  cfg.Search.Count,
		Region: cfg.Search.Region,
		Safe:   search.SafeLevel(cfg.Search.Safe),
	}
	if n, _ := cmd.Flags().GetInt("count"); n > 0 {
		q.Count = n
	}
	if r, _ := cmd.Flags().GetString("region"); r != "" {
		q.Region = r
	}
	if s, _ := cmd.Flags().GetString("safe"); s != "" {
		q.Safe = search.SafeLevel(strings.ToLower(s))
	}

	format := report.FormatJSON
	if asText, _ := cmd.Flags().GetBool("text"); asText {
		format = report.FormatText
	}

	client := search.NewClient(cfg.Search, logger)
	results, err := client.Search(cmd.Context(), q)
	if err != nil {
		return err
	}

	body, err := report.Render(format, q.Normalized().Text, results)
	if err != nil {
		return err
	}

	pr, err := gateway.BuildPipeline(cfg.Boundary, cfg.Boundary.SourceLabel()).Process(cmd.Context(), body)
	if err != nil {
		return err
	}
	if len(pr.AllThreats) > 0 {
		logger.Warn("untrusted content rewritten", "threats", pr.AllThreats)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), pr.FinalContent)
	return err
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/pbiscrape/models"
	"github.com/use-agent/pbiscrape/scraper"
)

func newScrapeCmd() *cobra.Command {
	var (
		output string
		render bool
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "open the dashboard, extract the table and write it as CSV.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closer, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			slog.Info("pbiscrape starting",
				"url", cfg.PowerBIURL,
				"columns", len(cfg.ColumnNames),
				"rowOffset", cfg.Scraper.RowOffset,
			)
			start := time.Now()

			sc := scraper.New(*cfg)
			defer sc.Cleanup()

			if err := sc.Initialize(ctx); err != nil {
				slog.Error("failed to initialise scraper", "error", err)
				return err
			}

			res := sc.ScrapeTable(ctx)
			path, err := sc.SaveData(res.Table, output)
			if err != nil {
				slog.Error("failed to save data", "error", err)
				return err
			}
			if render {
				res.Table.Render(cmd.OutOrStdout())
			}

			slog.Info("pbiscrape finished",
				"path", path,
				"rows", res.Table.Len(),
				"complete", res.Complete,
				"elapsed", time.Since(start).Round(time.Millisecond),
			)
			return scrapeExitError(res, strict)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "CSV file name under the output directory (default from config)")
	cmd.Flags().BoolVar(&render, "print", false, "render the extracted table to stdout")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when row extraction halted early")
	return cmd
}

// scrapeExitError decides whether a finished scrape should fail the command.
// A halted row loop still produced usable rows, so it only fails in strict
// mode; a table that was never reached always fails.
func scrapeExitError(res *scraper.TableResult, strict bool) error {
	if res.Err == nil {
		return nil
	}
	if models.HasCode(res.Err, models.ErrCodeExtractionHalt) && !strict {
		slog.Warn("row extraction halted early", "rows", res.Table.Len(), "error", res.Err)
		return nil
	}
	return fmt.Errorf("scrape incomplete: %w", res.Err)
}

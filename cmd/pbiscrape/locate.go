package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/use-agent/pbiscrape/dom"
	"github.com/use-agent/pbiscrape/scraper"
)

func newLocateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locate",
		Short: "print the relative XPath of the table's scroll container.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closer, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sc := scraper.New(*cfg)
			defer sc.Cleanup()

			if err := sc.Initialize(ctx); err != nil {
				slog.Error("failed to initialise scraper", "error", err)
				return err
			}

			found, err := sc.Locate(ctx)
			switch {
			case errors.Is(err, dom.ErrNoScrollableAncestor):
				fmt.Fprintln(cmd.OutOrStdout(), "no scrollable ancestor")
				return nil
			case err != nil:
				return err
			}

			if found.Locator == "" {
				return fmt.Errorf("scroll container found at depth %d but its locator could not be built", found.Depth)
			}
			fmt.Fprintln(cmd.OutOrStdout(), found.Locator)
			return nil
		},
	}
}

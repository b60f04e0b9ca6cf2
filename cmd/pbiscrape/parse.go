package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/pbiscrape/cleaner"
	"github.com/use-agent/pbiscrape/models"
)

func newParseCmd() *cobra.Command {
	var (
		row     int
		columns []string
	)

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "extract gridcell values from saved table markup (stdin when no file).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			raw, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read markup: %w", err)
			}
			markup := string(raw)

			if row > 0 {
				frag, ok := cleaner.RowMarkup(markup, row)
				if !ok {
					return fmt.Errorf("row %d not found", row)
				}
				markup = frag
			}

			values := cleaner.ExtractTableData(markup)
			return writeValues(cmd.OutOrStdout(), values, columns)
		},
	}

	cmd.Flags().IntVar(&row, "row", 0, "only extract the row with this index (aria-rowindex or position)")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "column names; values are written as one CSV row")
	return cmd
}

// writeValues prints one value per line, or a CSV table when columns are
// given.
func writeValues(w io.Writer, values []string, columns []string) error {
	if len(columns) == 0 {
		for _, v := range values {
			if _, err := fmt.Fprintln(w, v); err != nil {
				return err
			}
		}
		return nil
	}

	tbl := models.NewTable(columns)
	row, _ := tbl.Fit(values)
	if err := tbl.Append(row); err != nil {
		return err
	}
	return tbl.WriteCSV(w)
}

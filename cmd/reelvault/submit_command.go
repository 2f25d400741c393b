package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelvault/internal/logging"
	"reelvault/internal/services/sheets"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		date    string
		region  string
		country string
		name    string
	)

	cmd := &cobra.Command{
		Use:   "submit <category> <filename>",
		Short: "Register a new intake row",
		Long: "Appends a pending row to the metadata store so the next scan picks " +
			"the file up. The file itself must already sit in the category's " +
			"intake subfolder.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			category := args[0]
			store := buildStoreClient(cfg, logging.NewNop())
			row := sheets.Row{
				Date:    date,
				Region:  region,
				Country: country,
				Name:    name,
				File:    args[1],
			}
			if err := store.AppendRow(cmd.Context(), category, row); err != nil {
				return fmt.Errorf("append row: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s for %s\n", args[1], category)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Broadcast date (yymmdd or yyyymmdd)")
	cmd.Flags().StringVar(&region, "region", "", "Presenter region")
	cmd.Flags().StringVar(&country, "country", "", "Presenter country")
	cmd.Flags().StringVar(&name, "name", "", "Presenter name")
	return cmd
}

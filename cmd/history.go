package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/labelwatch/compliance-cli/internal/history"
	"github.com/labelwatch/compliance-cli/internal/model"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history <manufacturer>",
	Short: "List compliance history entries for a manufacturer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		key := history.NormalizeKey(args[0])
		entries, err := st.ListEntries(ctx, key, historyLimit)
		if err != nil {
			return err
		}

		if historyJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		for _, e := range entries {
			fmt.Printf("%s  %-20s  %.4f  %-9s  %s\n",
				e.RecordedAt.UTC().Format(time.RFC3339),
				e.ProductID,
				e.Score,
				model.ComplianceLevel(e.Score),
				e.CatalogueVersion,
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "max entries to list (0 = all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "emit JSON instead of text")
	rootCmd.AddCommand(historyCmd)
}

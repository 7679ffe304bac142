package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/labelwatch/compliance-cli/internal/report"
)

var manufacturersJSON bool

var manufacturersCmd = &cobra.Command{
	Use:   "manufacturers",
	Short: "List tracked manufacturers, most-scanned first",
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

		profiles, err := st.ListAggregates(ctx)
		if err != nil {
			return err
		}

		if manufacturersJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(profiles)
		}
		for i := range profiles {
			fmt.Println(report.ProfileSummary(&profiles[i]))
		}
		return nil
	},
}

var manufacturerShowCmd = &cobra.Command{
	Use:   "show <manufacturer>",
	Short: "Show the compliance profile for one manufacturer",
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

		profile, err := initTracker(st).Profile(ctx, args[0])
		if err != nil {
			return err
		}
		if profile == nil {
			fmt.Printf("no history for %q\n", args[0])
			return nil
		}

		if manufacturersJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(profile)
		}
		fmt.Println(report.ProfileSummary(profile))
		return nil
	},
}

func init() {
	manufacturersCmd.PersistentFlags().BoolVar(&manufacturersJSON, "json", false, "emit JSON instead of text")
	manufacturersCmd.AddCommand(manufacturerShowCmd)
	rootCmd.AddCommand(manufacturersCmd)
}

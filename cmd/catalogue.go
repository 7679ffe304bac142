package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/labelwatch/compliance-cli/internal/rules"
)

var catalogueCmd = &cobra.Command{
	Use:   "catalogue",
	Short: "Show the active compliance rule catalogue",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := initCatalogue()
		if err != nil {
			return err
		}
		fmt.Printf("version: %s\n", cat.Version)
		for _, r := range cat.Rules {
			fmt.Printf("  %-20s  %-8s  %s\n", r.Field, r.Requirement, r.ValidatorID)
		}
		return nil
	},
}

var catalogueValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a catalogue YAML file without activating it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := rules.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: ok (version %s, %d required, %d optional)\n",
			args[0], cat.Version, len(cat.RequiredFields()), len(cat.OptionalFields()))
		return nil
	},
}

func init() {
	catalogueCmd.AddCommand(catalogueValidateCmd)
	rootCmd.AddCommand(catalogueCmd)
}

package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/labelwatch/compliance-cli/internal/adapter"
)

var evaluateFile string

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate one product from a candidate-payload JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		raw, err := os.ReadFile(evaluateFile)
		if err != nil {
			return eris.Wrap(err, "read payload")
		}
		var payload adapter.Payload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return eris.Wrap(err, "parse payload")
		}

		ev, st, err := initEvaluator(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		result, err := ev.Evaluate(ctx, &payload)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	evaluateCmd.Flags().StringVarP(&evaluateFile, "file", "f", "", "path to candidate payload JSON (required)")
	_ = evaluateCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(evaluateCmd)
}

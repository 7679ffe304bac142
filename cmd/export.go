package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/labelwatch/compliance-cli/internal/history"
	"github.com/labelwatch/compliance-cli/internal/report"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <manufacturer>",
	Short: "Export a manufacturer's compliance history to CSV or XLSX",
	Long:  "Writes the full history for a manufacturer to the file given by --out. The format follows the file extension: .csv or .xlsx.",
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
		entries, err := st.ListEntries(ctx, key, 0)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return eris.Errorf("no history for %q", args[0])
		}

		out, err := os.Create(exportOut)
		if err != nil {
			return eris.Wrap(err, "create export file")
		}
		defer out.Close()

		switch filepath.Ext(exportOut) {
		case ".csv":
			err = report.WriteCSV(out, entries)
		case ".xlsx":
			err = report.WriteXLSX(out, entries)
		default:
			err = eris.Errorf("unsupported export extension: %s", filepath.Ext(exportOut))
		}
		if err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("manufacturer", key),
			zap.Int("entries", len(entries)),
			zap.String("path", exportOut),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path ending in .csv or .xlsx (required)")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}

// Package report renders manufacturer history for auditors: CSV for
// spreadsheets-adjacent tooling, XLSX for the enforcement teams that live in
// Excel.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/labelwatch/compliance-cli/internal/model"
)

var exportHeader = []string{
	"manufacturer_key", "product_id", "score", "level", "catalogue_version", "recorded_at",
}

// WriteCSV streams history entries as CSV with a header row.
func WriteCSV(w io.Writer, entries []model.HistoryEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for _, e := range entries {
		row := []string{
			e.ManufacturerKey,
			e.ProductID,
			strconv.FormatFloat(e.Score, 'f', 4, 64),
			model.ComplianceLevel(e.Score),
			e.CatalogueVersion,
			e.RecordedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush csv")
}

// WriteXLSX writes history entries as a single-sheet workbook.
func WriteXLSX(w io.Writer, entries []model.HistoryEntry) error {
	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet("History")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range exportHeader {
		header.AddCell().SetString(h)
	}

	for _, e := range entries {
		row := sheet.AddRow()
		row.AddCell().SetString(e.ManufacturerKey)
		row.AddCell().SetString(e.ProductID)
		row.AddCell().SetFloatWithFormat(e.Score, "0.0000")
		row.AddCell().SetString(model.ComplianceLevel(e.Score))
		row.AddCell().SetString(e.CatalogueVersion)
		row.AddCell().SetString(e.RecordedAt.UTC().Format(time.RFC3339))
	}

	return eris.Wrap(wb.Write(w), "report: write workbook")
}

// ProfileSummary renders a one-line human-readable profile digest.
func ProfileSummary(p *model.ManufacturerProfile) string {
	return fmt.Sprintf("%s: %d scans, mean %.2f (%s), trend %s",
		p.ManufacturerKey, p.EntryCount, p.MeanScore, p.Level, p.Trend)
}

package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/labelwatch/compliance-cli/internal/model"
)

func sampleEntries() []model.HistoryEntry {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	return []model.HistoryEntry{
		{ID: "e1", ManufacturerKey: "amul", ProductID: "P1", Score: 0.5, CatalogueVersion: "LM-2011.1", RecordedAt: base},
		{ID: "e2", ManufacturerKey: "amul", ProductID: "P2", Score: 1.0, CatalogueVersion: "LM-2011.1", RecordedAt: base.Add(time.Hour)},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleEntries()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, exportHeader, rows[0])
	assert.Equal(t, []string{"amul", "P1", "0.5000", "fair", "LM-2011.1", "2026-08-01T10:00:00Z"}, rows[1])
	assert.Equal(t, []string{"amul", "P2", "1.0000", "excellent", "LM-2011.1", "2026-08-01T11:00:00Z"}, rows[2])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleEntries()))

	wb, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 1)

	sheet := wb.Sheets[0]
	assert.Equal(t, "History", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "manufacturer_key", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "P1", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "excellent", sheet.Rows[2].Cells[3].String())
}

func TestProfileSummary(t *testing.T) {
	p := &model.ManufacturerProfile{
		ManufacturerKey: "amul",
		EntryCount:      12,
		MeanScore:       0.83,
		Trend:           model.TrendImproving,
		Level:           "good",
	}
	assert.Equal(t, "amul: 12 scans, mean 0.83 (good), trend improving", ProfileSummary(p))
}

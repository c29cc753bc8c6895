package services

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"supply-planning-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseRowsAggregatesByDay(t *testing.T) {
	svc := NewDemandImportService(nil)
	rows := [][]string{
		{"Date", "Orders", "Items", "Revenue"},
		{"2024-01-02", "1", "4", "40.5"},
		{"2024/01/01", "2", "6", "1,200"},
		{"2024-01-02", "1", "3", "10.25"},
		{"", "", "", ""},
		{"yesterday", "1", "1", "1"},
		{"2024-01-03", "x", "-5", "NaN"},
	}

	observations, stats, err := svc.ParseRows(rows)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.RowsRead)
	assert.Equal(t, 1, stats.RowsSkipped)
	assert.Equal(t, []models.DemandObservation{
		{Period: "2024-01-01", OrderCount: 2, ItemCount: 6, Revenue: 1200},
		{Period: "2024-01-02", OrderCount: 2, ItemCount: 7, Revenue: 50.75},
		{Period: "2024-01-03", OrderCount: 0, ItemCount: 0, Revenue: 0},
	}, observations)
}

func TestParseRowsJapaneseHeaders(t *testing.T) {
	svc := NewDemandImportService(nil)
	rows := [][]string{
		{"日付", "数量"},
		{"2024-05-01", "12"},
	}

	observations, _, err := svc.ParseRows(rows)
	require.NoError(t, err)
	require.Len(t, observations, 1)
	assert.Equal(t, int64(12), observations[0].ItemCount)
	assert.Equal(t, int64(0), observations[0].OrderCount)
}

func TestParseRowsErrors(t *testing.T) {
	svc := NewDemandImportService(nil)

	_, _, err := svc.ParseRows([][]string{{"period", "items"}})
	assert.ErrorIs(t, err, ErrNoData)

	_, _, err = svc.ParseRows([][]string{{"period", "orders"}, {"2024-01-01", "3"}})
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "items")
}

func TestImportFileCSV(t *testing.T) {
	svc := NewDemandImportService(nil)
	csvData := "period,orders,items,revenue\n2024-01-01,1,10,100\n2024-01-02,2,20,200\n"

	observations, stats, err := svc.ImportFile("demand.CSV", strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.RowsRead)
	require.Len(t, observations, 2)
	assert.Equal(t, int64(20), observations[1].ItemCount)
}

func TestImportFileXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"period", "orders", "items", "revenue"},
		{"2024-01-01", 3, 30, 300.5},
		{"2024-01-08", 1, 5, 50},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
	}

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	svc := NewDemandImportService(nil)
	observations, _, err := svc.ImportFile("demand.xlsx", &buf)
	require.NoError(t, err)

	assert.Equal(t, []models.DemandObservation{
		{Period: "2024-01-01", OrderCount: 3, ItemCount: 30, Revenue: 300.5},
		{Period: "2024-01-08", OrderCount: 1, ItemCount: 5, Revenue: 50},
	}, observations)
}

func TestImportFileUnsupported(t *testing.T) {
	svc := NewDemandImportService(nil)

	_, _, err := svc.ImportFile("demand.json", strings.NewReader("{}"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseRowsSaturatesHugeCounts(t *testing.T) {
	svc := NewDemandImportService(nil)
	rows := [][]string{
		{"period", "orders", "items"},
		{"2024-01-01", "1e19", "9e18"},
		{"2024-01-01", "1", "9e18"},
	}

	observations, _, err := svc.ParseRows(rows)
	require.NoError(t, err)
	require.Len(t, observations, 1)
	assert.Equal(t, int64(math.MaxInt64), observations[0].OrderCount)
	assert.Equal(t, int64(math.MaxInt64), observations[0].ItemCount)
}

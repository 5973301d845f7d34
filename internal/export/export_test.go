package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/airflowiq/hub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func fptr(v float64) *float64 { return &v }

func sptr(v string) *string { return &v }

func TestMultiSeriesXLSX(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ms := models.MultiSeries{
		DeviceIDs: []string{"dev-a", "dev-b"},
		Window:    models.LastHours(24),
		Series: map[string]models.Series{
			"dev-a": {
				DeviceIDs: []string{"dev-a"},
				Readings: []models.SensorReading{
					{DeviceID: "dev-a", RecordedAt: base, WindSpeed: fptr(2), TempC: fptr(20)},
					{DeviceID: "dev-a", RecordedAt: base.Add(time.Minute), WindSpeed: fptr(4), RFID: sptr("tag-1")},
				},
			},
			"dev-b": {DeviceIDs: []string{"dev-b"}, Readings: []models.SensorReading{}},
		},
		Failures: map[string]string{"dev-b": "transport"},
	}

	data, err := MultiSeriesXLSX(ms, map[string]string{"dev-a": "Attic: supply"})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"summary", "Attic_ supply", "dev-b"}, f.GetSheetList())

	rows, err := f.GetRows("Attic_ supply")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Recorded at (UTC)", rows[0][0])
	assert.Equal(t, "2026-03-01 12:00:00", rows[1][0])
	assert.Equal(t, "tag-1", rows[2][5])

	summary, err := f.GetRows("summary")
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, "dev-a", summary[1][0])
	assert.Equal(t, "2", summary[1][2])
	assert.Equal(t, "3", summary[1][10], "mean wind speed")
	assert.Equal(t, "tag-1", summary[1][11])
	assert.Equal(t, "transport", summary[2][6])
}

func TestUniqueSheetName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "Kitchen", uniqueSheetName("Kitchen", used))
	assert.Equal(t, "kitchen (2)", uniqueSheetName("kitchen", used), "case-insensitive clash keeps the caller's casing")
	assert.Equal(t, "KITCHEN (3)", uniqueSheetName("KITCHEN", used))
	assert.Equal(t, "device", uniqueSheetName("Summary", used))

	long := uniqueSheetName("a very long device name that excel rejects", used)
	assert.Len(t, long, maxSheetName)
}

func TestReceiptPDF(t *testing.T) {
	order := &models.Order{
		ID:            "order-1",
		Status:        models.OrderStatusPending,
		Currency:      "USD",
		SubtotalCents: 1999,
		TaxCents:      159,
		ShippingCents: models.FlatShippingCents,
		TotalCents:    3157,
		Notes:         "Leave at the door",
		CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Items:         []models.OrderItem{{ProductName: "Sensor Kit", Qty: 1, UnitPriceCents: 1999, LineTotalCents: 1999}},
		ShippingInfo:  models.ShippingInfo{Name: "Ada", Line1: "1 Main St", City: "Springfield", State: "IL", PostalCode: "62701"},
	}

	data, err := ReceiptPDF(order)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$9.99", Money(999))
	assert.Equal(t, "$0.05", Money(5))
	assert.Equal(t, "-$12.00", Money(-1200))
}

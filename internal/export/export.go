package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/airflowiq/hub/internal/fetcher"
	"github.com/airflowiq/hub/internal/models"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "summary"
	maxSheetName = 31
	timeLayout   = "2006-01-02 15:04:05"
)

var readingHeaders = []string{"Recorded at (UTC)", "Temperature (°C)", "Humidity (%)", "Pressure (Pa)", "Wind speed (m/s)", "RFID"}

// MultiSeriesXLSX writes one sheet per device plus a summary sheet with the
// per-device averages. labels maps device ids to display names and may be nil.
func MultiSeriesXLSX(ms models.MultiSeries, labels map[string]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", summarySheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	summaryHeaders := []string{"Device", "Sheet", "Samples", "From", "To", "Fallback", "Failure",
		"Avg temperature", "Avg humidity", "Avg pressure", "Avg wind speed", "Latest RFID"}
	if err := writeHeader(f, summarySheet, summaryHeaders, headerStyle); err != nil {
		return nil, err
	}
	_ = f.SetCellValue(summarySheet, "N1", "Window")
	_ = f.SetCellValue(summarySheet, "O1", ms.Window.String())

	used := make(map[string]bool, len(ms.DeviceIDs))
	for i, id := range ms.DeviceIDs {
		series := ms.Series[id]
		sheet := uniqueSheetName(label(labels, id), used)
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("failed to create sheet for %s: %w", id, err)
		}
		if err := writeReadings(f, sheet, series.Readings, headerStyle); err != nil {
			return nil, err
		}

		avg := fetcher.Average(series.Readings)
		row := i + 2
		values := []interface{}{
			id, sheet, avg.Samples, formatTime(avg.From), formatTime(avg.To), series.Fallback, ms.Failures[id],
			floatOrEmpty(avg.TempC), floatOrEmpty(avg.Humidity), floatOrEmpty(avg.PressurePa),
			floatOrEmpty(avg.WindSpeed), stringOrEmpty(avg.RFID),
		}
		for col, v := range values {
			if err := setCellValue(f, summarySheet, col+1, row, v); err != nil {
				return nil, err
			}
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "B", 38)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func writeReadings(f *excelize.File, sheet string, readings []models.SensorReading, style int) error {
	if err := writeHeader(f, sheet, readingHeaders, style); err != nil {
		return err
	}
	for i, r := range readings {
		row := i + 2
		values := []interface{}{
			r.RecordedAt.UTC().Format(timeLayout),
			floatOrEmpty(r.TempC), floatOrEmpty(r.Humidity), floatOrEmpty(r.PressurePa),
			floatOrEmpty(r.WindSpeed), stringOrEmpty(r.RFID),
		}
		for col, v := range values {
			if err := setCellValue(f, sheet, col+1, row, v); err != nil {
				return err
			}
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 22)
	_ = f.SetColWidth(sheet, "B", "F", 18)
	return nil
}

func setCellValue(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

func label(labels map[string]string, id string) string {
	if name := strings.TrimSpace(labels[id]); name != "" {
		return name
	}
	return id
}

// uniqueSheetName strips characters excel rejects and keeps names distinct
func uniqueSheetName(name string, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	if name == "" || strings.EqualFold(name, summarySheet) {
		name = "device"
	}
	base := truncate(name, maxSheetName)
	candidate := base
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func floatOrEmpty(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// ReceiptPDF renders an order receipt
func ReceiptPDF(order *models.Order) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "AirFlow IQ Order Receipt")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Order: %s", order.ID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Placed: %s", order.CreatedAt.UTC().Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", strings.ToUpper(order.Status)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, "Ship to")
	pdf.Ln(5)
	pdf.SetFont("Arial", "", 10)
	for _, line := range shippingLines(order.ShippingInfo) {
		pdf.Cell(0, 5, line)
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(80, 6, "Product", "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 6, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Unit price", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, "Line total", "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, item := range order.Items {
		name := item.ProductName
		if name == "" {
			name = item.ProductID
		}
		pdf.CellFormat(80, 6, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", item.Qty), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, Money(item.UnitPriceCents), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, Money(item.LineTotalCents), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	totals := []struct {
		label string
		cents int64
	}{
		{"Subtotal", order.SubtotalCents},
		{fmt.Sprintf("Tax (%.0f%%)", models.TaxRate*100), order.TaxCents},
		{"Shipping", order.ShippingCents},
		{"Total " + order.Currency, order.TotalCents},
	}
	for i, t := range totals {
		if i == len(totals)-1 {
			pdf.SetFont("Arial", "B", 10)
		}
		pdf.CellFormat(135, 6, t.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, Money(t.cents), "", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	if order.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, "Notes: "+order.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Money formats cents as a dollar amount
func Money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

func shippingLines(s models.ShippingInfo) []string {
	lines := []string{s.Name, s.Line1}
	if s.Line2 != "" {
		lines = append(lines, s.Line2)
	}
	lines = append(lines, fmt.Sprintf("%s, %s %s", s.City, s.State, s.PostalCode))
	if s.Country != "" {
		lines = append(lines, s.Country)
	}
	if s.Phone != "" {
		lines = append(lines, s.Phone)
	}
	return lines
}

package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/i474232898/weather-insights/internal/weather"
)

// SheetName is the worksheet holding the readings.
const SheetName = "Weather Readings"

// XLSX writes readings as an Excel workbook.
type XLSX struct{}

func (XLSX) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSX) Extension() string { return "xlsx" }

func (XLSX) Write(w io.Writer, readings []weather.Reading) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, r := range ascending(readings) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			formatTime(r.ObservedAt),
			r.Location,
			cellValue(r.Temperature),
			cellValue(r.Humidity),
			cellValue(r.WindSpeed),
			cellValue(r.RainProbability),
			formatString(r.Condition),
			r.Source,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// cellValue leaves absent values as empty cells.
func cellValue(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

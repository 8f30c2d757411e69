package export

import (
	"encoding/csv"
	"io"

	"github.com/i474232898/weather-insights/internal/weather"
)

// CSV writes readings as comma-separated values.
type CSV struct{}

func (CSV) ContentType() string { return "text/csv; charset=utf-8" }

func (CSV) Extension() string { return "csv" }

func (CSV) Write(w io.Writer, readings []weather.Reading) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range ascending(readings) {
		row := []string{
			formatTime(r.ObservedAt),
			r.Location,
			formatFloat(r.Temperature),
			formatFloat(r.Humidity),
			formatFloat(r.WindSpeed),
			formatFloat(r.RainProbability),
			formatString(r.Condition),
			r.Source,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

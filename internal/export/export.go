package export

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-insights/internal/weather"
)

// Columns is the header row shared by every format.
var Columns = []string{
	"observed_at", "location", "temperature", "humidity", "wind_speed", "rain_probability", "condition", "source",
}

// Exporter writes readings as a downloadable table.
type Exporter interface {
	ContentType() string
	Extension() string
	Write(w io.Writer, readings []weather.Reading) error
}

// ForFormat returns the exporter registered for format ("csv" or "xlsx").
func ForFormat(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "csv":
		return CSV{}, nil
	case "xlsx":
		return XLSX{}, nil
	default:
		return nil, &weather.ValidationError{Field: "format", Reason: fmt.Sprintf("unsupported export format %q", format)}
	}
}

// Filename builds the attachment name for an exporter.
func Filename(e Exporter) string {
	return "weather_readings." + e.Extension()
}

// ascending returns a copy of readings ordered oldest first.
func ascending(readings []weather.Reading) []weather.Reading {
	out := append([]weather.Reading(nil), readings...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ObservedAt.Equal(out[j].ObservedAt) {
			return out[i].ObservedAt.Before(out[j].ObservedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package insights

import (
	"fmt"
	"strings"

	"github.com/i474232898/weather-insights/internal/weather"
)

// Threshold remarks, emitted in this order.
const (
	RemarkHeat         = "The period was predominantly hot; stay hydrated and limit time in direct sun."
	RemarkCold         = "Temperatures were mild to cold; watch for incoming cold fronts."
	RemarkLowHumidity  = "Low humidity may cause respiratory discomfort; a humidifier can help indoors."
	RemarkHighHumidity = "High humidity makes it feel muggy and raises the chance of mold indoors."
	RemarkRain         = "There is a strong tendency for rain; plan outdoor activities with caution."
	RemarkDry          = "Rain probability is low; the period is relatively dry."
)

const (
	heatThreshold         = 30.0
	coldThreshold         = 18.0
	lowHumidityThreshold  = 40.0
	highHumidityThreshold = 80.0
	rainThreshold         = 60.0
	dryThreshold          = 20.0
)

// NoDataText is the fixed sentence rendered for an empty window.
func NoDataText(location string) string {
	if location == "" {
		return "There is not enough data yet to generate weather insights."
	}
	return fmt.Sprintf("There is not enough data yet to generate weather insights for %s.", location)
}

// Render turns an aggregate into narrative text. It is a pure function of its arguments.
func Render(agg weather.AggregateResult, hours int, location string) string {
	if agg.Empty() {
		return NoDataText(location)
	}

	var sentences []string

	noun := "readings were"
	if agg.Count == 1 {
		noun = "reading was"
	}
	if location != "" {
		sentences = append(sentences, fmt.Sprintf("In the last %dh, %d %s collected for %s.", hours, agg.Count, noun, location))
	} else {
		sentences = append(sentences, fmt.Sprintf("In the last %dh, %d %s collected.", hours, agg.Count, noun))
	}

	if t := agg.Temperature; t != nil {
		sentences = append(sentences, fmt.Sprintf("Average temperature: %.1f°C (max %.1f°C, min %.1f°C).", t.Avg, t.Max, t.Min))
	} else {
		sentences = append(sentences, "No temperature values were reported.")
	}
	if agg.HumidityAvg != nil {
		sentences = append(sentences, fmt.Sprintf("Average humidity: %.0f%%.", *agg.HumidityAvg))
	}

	if agg.MostRecent != nil {
		sentences = append(sentences, closing(*agg.MostRecent, location))
	}

	sentences = append(sentences, remarks(agg)...)
	return strings.Join(sentences, " ")
}

func remarks(agg weather.AggregateResult) []string {
	var out []string
	if t := agg.Temperature; t != nil {
		switch {
		case t.Avg >= heatThreshold:
			out = append(out, RemarkHeat)
		case t.Avg <= coldThreshold:
			out = append(out, RemarkCold)
		}
	}
	h := agg.HumidityMean
	if h == nil {
		h = agg.HumidityAvg
	}
	if h != nil {
		switch {
		case *h < lowHumidityThreshold:
			out = append(out, RemarkLowHumidity)
		case *h > highHumidityThreshold:
			out = append(out, RemarkHighHumidity)
		}
	}
	if r := agg.RainProbabilityAvg; r != nil {
		switch {
		case *r > rainThreshold:
			out = append(out, RemarkRain)
		case *r < dryThreshold:
			out = append(out, RemarkDry)
		}
	}
	return out
}

func closing(r weather.Reading, location string) string {
	place := r.Location
	if place == "" {
		place = location
	}
	if place == "" {
		place = "the monitored area"
	}

	condition := "unknown conditions"
	if r.Condition != nil && *r.Condition != "" {
		condition = *r.Condition
	}

	var details []string
	if r.Temperature != nil {
		details = append(details, fmt.Sprintf("%.1f°C", *r.Temperature))
	}
	if r.WindSpeed != nil {
		details = append(details, fmt.Sprintf("wind of %.1f m/s", *r.WindSpeed))
	}

	s := fmt.Sprintf("Most recent conditions in %s: %s", place, condition)
	if len(details) > 0 {
		s += " with " + strings.Join(details, " and ")
	}
	return s + "."
}

package weather

import (
	"math"
)

// Stats holds mean, minimum and maximum of one numeric field.
type Stats struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// AggregateResult summarizes a window of readings. Temperature, wind and rain
// statistics are rounded to one decimal, the humidity average to whole percent.
// HumidityMean keeps one decimal for threshold checks. A nil field means no
// reading in the window carried a value for it.
type AggregateResult struct {
	Count              int      `json:"count"`
	Temperature        *Stats   `json:"temperature,omitempty"`
	HumidityAvg        *float64 `json:"humidity_avg,omitempty"`
	HumidityMean       *float64 `json:"humidity_mean,omitempty"`
	WindSpeedAvg       *float64 `json:"wind_speed_avg,omitempty"`
	RainProbabilityAvg *float64 `json:"rain_probability_avg,omitempty"`
	MostRecent         *Reading `json:"most_recent,omitempty"`
}

// Empty reports whether the window held no readings.
func (a AggregateResult) Empty() bool {
	return a.Count == 0
}

// accumulator tracks one field; readings missing the field are skipped only here.
type accumulator struct {
	n        int
	sum      float64
	min, max float64
}

func (a *accumulator) add(v *float64) {
	if v == nil {
		return
	}
	if a.n == 0 || *v < a.min {
		a.min = *v
	}
	if a.n == 0 || *v > a.max {
		a.max = *v
	}
	a.sum += *v
	a.n++
}

func (a *accumulator) mean() (float64, bool) {
	if a.n == 0 {
		return 0, false
	}
	return a.sum / float64(a.n), true
}

// Aggregate computes summary statistics over readings. It is a pure function of
// its input; order does not matter.
func Aggregate(readings []Reading) AggregateResult {
	if len(readings) == 0 {
		return AggregateResult{}
	}

	var temp, hum, wind, rain accumulator
	var recent *Reading

	for i := range readings {
		r := &readings[i]
		temp.add(r.Temperature)
		hum.add(r.Humidity)
		wind.add(r.WindSpeed)
		rain.add(r.RainProbability)

		if recent == nil || newer(r, recent) {
			recent = r
		}
	}

	res := AggregateResult{Count: len(readings)}
	if avg, ok := temp.mean(); ok {
		res.Temperature = &Stats{
			Avg: round(avg, 1),
			Min: round(temp.min, 1),
			Max: round(temp.max, 1),
		}
	}
	if avg, ok := hum.mean(); ok {
		res.HumidityAvg = Float(round(avg, 0))
		res.HumidityMean = Float(round(avg, 1))
	}
	if avg, ok := wind.mean(); ok {
		res.WindSpeedAvg = Float(round(avg, 1))
	}
	if avg, ok := rain.mean(); ok {
		res.RainProbabilityAvg = Float(round(avg, 1))
	}

	mr := *recent
	res.MostRecent = &mr
	return res
}

// newer orders by observation time, then by the higher ID.
func newer(a, b *Reading) bool {
	if !a.ObservedAt.Equal(b.ObservedAt) {
		return a.ObservedAt.After(b.ObservedAt)
	}
	return a.ID > b.ID
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

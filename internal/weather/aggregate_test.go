package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func reading(id uint, at time.Time, temp, hum *float64) Reading {
	return Reading{ID: id, ObservedAt: at, Temperature: temp, Humidity: hum, Source: "test"}
}

func TestAggregate_Empty(t *testing.T) {
	res := Aggregate(nil)
	assert.True(t, res.Empty())
	assert.Zero(t, res.Count)
	assert.Nil(t, res.Temperature)
	assert.Nil(t, res.HumidityAvg)
	assert.Nil(t, res.WindSpeedAvg)
	assert.Nil(t, res.RainProbabilityAvg)
	assert.Nil(t, res.MostRecent)
}

func TestAggregate_Stats(t *testing.T) {
	readings := []Reading{
		reading(1, t0, Float(20), Float(50)),
		reading(2, t0.Add(time.Hour), Float(22), Float(55)),
		reading(3, t0.Add(2*time.Hour), Float(24), Float(60)),
	}
	readings[0].WindSpeed = Float(2)
	readings[1].WindSpeed = Float(3)
	readings[2].RainProbability = Float(40)

	res := Aggregate(readings)
	require.Equal(t, 3, res.Count)
	require.NotNil(t, res.Temperature)
	assert.Equal(t, Stats{Avg: 22, Min: 20, Max: 24}, *res.Temperature)
	assert.Equal(t, 55.0, *res.HumidityAvg)
	assert.Equal(t, 2.5, *res.WindSpeedAvg)
	assert.Equal(t, 40.0, *res.RainProbabilityAvg)
	require.NotNil(t, res.MostRecent)
	assert.Equal(t, uint(3), res.MostRecent.ID)

	assert.LessOrEqual(t, res.Temperature.Min, res.Temperature.Avg)
	assert.LessOrEqual(t, res.Temperature.Avg, res.Temperature.Max)
}

func TestAggregate_MissingFieldOnlySkipsThatField(t *testing.T) {
	readings := []Reading{
		reading(1, t0, Float(10), nil),
		reading(2, t0.Add(time.Hour), nil, Float(80)),
		reading(3, t0.Add(2*time.Hour), Float(20), Float(40)),
	}

	res := Aggregate(readings)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, 15.0, res.Temperature.Avg)
	assert.Equal(t, 60.0, *res.HumidityAvg)
	assert.Nil(t, res.WindSpeedAvg)
}

func TestAggregate_NoTemperatureAnywhere(t *testing.T) {
	res := Aggregate([]Reading{reading(1, t0, nil, Float(30))})
	assert.Equal(t, 1, res.Count)
	assert.Nil(t, res.Temperature)
	assert.Equal(t, 30.0, *res.HumidityAvg)
	assert.False(t, res.Empty())
}

func TestAggregate_Rounding(t *testing.T) {
	readings := []Reading{
		reading(1, t0, Float(20.04), Float(50.4)),
		reading(2, t0, Float(20.14), Float(51.2)),
	}
	res := Aggregate(readings)
	// temperature mean 20.09, humidity mean 50.8
	assert.Equal(t, 20.1, res.Temperature.Avg)
	assert.Equal(t, 20.0, res.Temperature.Min)
	assert.Equal(t, 20.1, res.Temperature.Max)
	assert.Equal(t, 51.0, *res.HumidityAvg)
	assert.Equal(t, 50.8, *res.HumidityMean)
}

func TestAggregate_MostRecentTieBreak(t *testing.T) {
	readings := []Reading{
		reading(7, t0, Float(1), nil),
		reading(9, t0, Float(2), nil),
		reading(8, t0, Float(3), nil),
		reading(10, t0.Add(-time.Minute), Float(4), nil),
	}
	res := Aggregate(readings)
	assert.Equal(t, uint(9), res.MostRecent.ID)
}

func TestAggregate_OrderIndependent(t *testing.T) {
	a := []Reading{
		reading(1, t0, Float(11.3), Float(40)),
		reading(2, t0.Add(time.Hour), Float(17.9), Float(90)),
		reading(3, t0.Add(-time.Hour), Float(13.1), nil),
	}
	b := []Reading{a[2], a[0], a[1]}
	assert.Equal(t, Aggregate(a), Aggregate(b))
}

func TestAggregate_DoesNotRetainInput(t *testing.T) {
	readings := []Reading{reading(1, t0, Float(5), nil)}
	res := Aggregate(readings)
	readings[0].ID = 99
	assert.Equal(t, uint(1), res.MostRecent.ID)
}

package providers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-insights/internal/weather"
)

type countingGeocoder struct {
	calls int
	err   error
}

func (c *countingGeocoder) Name() string { return "counting" }

func (c *countingGeocoder) Geocode(_ context.Context, place, country string) (weather.Site, error) {
	c.calls++
	if c.err != nil {
		return weather.Site{}, c.err
	}
	return weather.Site{Name: place, Country: country, Latitude: 1, Longitude: 2}, nil
}

func TestCachedGeocoder(t *testing.T) {
	t.Run("hits are served from cache regardless of case", func(t *testing.T) {
		next := &countingGeocoder{}
		c := NewCachedGeocoder(next, time.Minute)

		_, err := c.Geocode(t.Context(), "Lisbon", "pt")
		require.NoError(t, err)
		site, err := c.Geocode(t.Context(), " lisbon ", "PT")
		require.NoError(t, err)

		assert.Equal(t, 1, next.calls)
		assert.Equal(t, "Lisbon", site.Name)
		assert.Equal(t, 1, c.Len())
		assert.Equal(t, "counting", c.Name())
	})

	t.Run("misses are not cached", func(t *testing.T) {
		next := &countingGeocoder{err: &weather.NotFoundError{Query: "Atlantis"}}
		c := NewCachedGeocoder(next, time.Minute)

		_, err := c.Geocode(t.Context(), "Atlantis", "")
		require.Error(t, err)
		_, err = c.Geocode(t.Context(), "Atlantis", "")
		require.Error(t, err)

		assert.Equal(t, 2, next.calls)
		assert.Zero(t, c.Len())
	})
}

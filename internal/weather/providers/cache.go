package providers

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/i474232898/weather-insights/internal/weather"
)

// CachedGeocoder remembers successful lookups of the wrapped geocoder for a TTL.
// Misses and failures are not cached.
type CachedGeocoder struct {
	next  weather.Geocoder
	cache *cache.Cache
}

func NewCachedGeocoder(next weather.Geocoder, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{
		next:  next,
		cache: cache.New(ttl, ttl*2),
	}
}

func (c *CachedGeocoder) Name() string {
	return c.next.Name()
}

func (c *CachedGeocoder) Geocode(ctx context.Context, place, countryHint string) (weather.Site, error) {
	key := strings.ToLower(strings.TrimSpace(place)) + "|" + strings.ToUpper(strings.TrimSpace(countryHint))
	if cached, found := c.cache.Get(key); found {
		if site, ok := cached.(weather.Site); ok {
			return site, nil
		}
	}

	site, err := c.next.Geocode(ctx, place, countryHint)
	if err != nil {
		return weather.Site{}, err
	}
	c.cache.Set(key, site, cache.DefaultExpiration)
	return site, nil
}

// Len returns the number of cached entries.
func (c *CachedGeocoder) Len() int {
	return c.cache.ItemCount()
}

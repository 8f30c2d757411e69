package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/weather-insights/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	readings []weather.Reading
	insights []weather.Insight

	nextReadingID uint
	nextInsightID uint

	// retention configuration, both off when zero
	maxHistory int           // max number of readings per location
	maxAge     time.Duration // max age of readings by observation time

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory or maxAge is <= 0, that limit is not applied.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// PutReading appends a copy of r, assigns its ID and enforces retention.
func (s *MemoryStore) PutReading(ctx context.Context, r *weather.Reading) (uint, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextReadingID++
	r.ID = s.nextReadingID
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}

	cp := *r
	cp.RawPayload = append(weather.RawPayload(nil), r.RawPayload...)
	s.readings = append(s.readings, cp)
	s.enforceRetention(cp.Location)

	return r.ID, nil
}

func (s *MemoryStore) enforceRetention(location string) {
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		kept := s.readings[:0]
		for _, r := range s.readings {
			if !r.ObservedAt.Before(cutoff) {
				kept = append(kept, r)
			}
		}
		s.readings = kept
	}

	if s.maxHistory > 0 {
		var idx []int
		for i, r := range s.readings {
			if strings.EqualFold(r.Location, location) {
				idx = append(idx, i)
			}
		}
		if over := len(idx) - s.maxHistory; over > 0 {
			// drop the oldest readings of this location
			sort.Slice(idx, func(a, b int) bool {
				ra, rb := s.readings[idx[a]], s.readings[idx[b]]
				if !ra.ObservedAt.Equal(rb.ObservedAt) {
					return ra.ObservedAt.Before(rb.ObservedAt)
				}
				return ra.ID < rb.ID
			})
			drop := make(map[int]struct{}, over)
			for _, i := range idx[:over] {
				drop[i] = struct{}{}
			}
			kept := s.readings[:0]
			for i, r := range s.readings {
				if _, ok := drop[i]; !ok {
					kept = append(kept, r)
				}
			}
			s.readings = kept
		}
	}
}

// QueryReadings returns readings observed at or after since, newest first.
func (s *MemoryStore) QueryReadings(ctx context.Context, since time.Time, location string) ([]weather.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]weather.Reading, 0)
	for _, r := range s.readings {
		if r.ObservedAt.Before(since) {
			continue
		}
		if location != "" && !strings.EqualFold(r.Location, location) {
			continue
		}
		out = append(out, r)
	}
	sortReadingsDesc(out)
	return out, nil
}

// LatestReading returns the most recently observed reading, optionally for one location.
func (s *MemoryStore) LatestReading(ctx context.Context, location string) (weather.Reading, error) {
	readings, err := s.QueryReadings(ctx, time.Time{}, location)
	if err != nil {
		return weather.Reading{}, err
	}
	if len(readings) == 0 {
		return weather.Reading{}, weather.ErrNotFound
	}
	return readings[0], nil
}

// PutInsight appends a copy of in and assigns its ID.
func (s *MemoryStore) PutInsight(ctx context.Context, in *weather.Insight) (uint, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextInsightID++
	in.ID = s.nextInsightID
	if in.GeneratedAt.IsZero() {
		in.GeneratedAt = s.now()
	}
	s.insights = append(s.insights, *in)
	return in.ID, nil
}

// LatestInsight returns the most recently generated insight.
func (s *MemoryStore) LatestInsight(ctx context.Context) (weather.Insight, error) {
	list, err := s.ListInsights(ctx, 1)
	if err != nil {
		return weather.Insight{}, err
	}
	if len(list) == 0 {
		return weather.Insight{}, weather.ErrNotFound
	}
	return list[0], nil
}

// ListInsights returns up to limit insights, newest first. A limit <= 0 returns all.
func (s *MemoryStore) ListInsights(ctx context.Context, limit int) ([]weather.Insight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := append([]weather.Insight(nil), s.insights...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].GeneratedAt.Equal(out[j].GeneratedAt) {
			return out[i].GeneratedAt.After(out[j].GeneratedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []weather.Insight{}
	}
	return out, nil
}

func sortReadingsDesc(rs []weather.Reading) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].ObservedAt.Equal(rs[j].ObservedAt) {
			return rs[i].ObservedAt.After(rs[j].ObservedAt)
		}
		return rs[i].ID > rs[j].ID
	})
}

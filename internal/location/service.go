package location

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/expense-tracker/internal/core/cache"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultCacheTTL = 5 * time.Minute
)

// Service completes client-captured locations with a street address. It never
// fails: lookups that error or time out leave the address unavailable.
type Service struct {
	geocoder Geocoder
	cache    *cache.LRU[string]
	timeout  time.Duration
	logger   *slog.Logger
}

func NewService(geocoder Geocoder, timeout, cacheTTL time.Duration, cacheSize int, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	if cacheSize <= 0 {
		cacheSize = 256
	}
	return &Service{
		geocoder: geocoder,
		cache:    cache.NewLRU[string](cacheSize, cacheTTL),
		timeout:  timeout,
		logger:   logger,
	}
}

// WithClock swaps the cache clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.cache.WithClock(now)
	return s
}

func (s *Service) Resolve(ctx context.Context, in *Location) Location {
	if in == nil || !in.HasCoordinates() || !in.valid() {
		return Unavailable()
	}

	out := *in
	if out.Timestamp.IsZero() {
		out.Timestamp = time.Now()
	}
	if out.Address != "" && out.Address != UnavailableAddress {
		return out
	}
	if s.geocoder == nil {
		out.Address = UnavailableAddress
		return out
	}

	// ~11m grid, so nearby captures share one lookup
	key := fmt.Sprintf("%.4f,%.4f", out.Latitude, out.Longitude)
	if address, ok := s.cache.Get(key); ok {
		out.Address = address
		return out
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	address, err := s.geocoder.Reverse(lookupCtx, out.Latitude, out.Longitude)
	if err != nil {
		s.logger.Warn("reverse geocoding failed", "error", err, "lat", out.Latitude, "lon", out.Longitude)
		out.Address = UnavailableAddress
		return out
	}

	s.cache.Set(key, address)
	out.Address = address
	return out
}

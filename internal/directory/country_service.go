package directory

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/recordsdir/directory-backend/internal/db/interfaces"
	"github.com/recordsdir/directory-backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	countriesCacheKey = "dir:countries:all"
	defaultCacheTTL   = 30 * time.Second
)

// CountryService owns the country lifecycle. Concurrent list loads share one
// store scan.
type CountryService struct {
	store    CountryStore
	cache    Cache
	cacheTTL time.Duration
	logger   *zap.SugaredLogger

	loads singleflight.Group
	// generation advances on every write; a load only fills the cache if no
	// write happened while it ran
	generation atomic.Uint64
}

type CountryOption func(*CountryService)

// WithCountryCache caches the country list used for listings and joins.
// The entry is dropped whenever a country is added.
func WithCountryCache(cache Cache, ttl time.Duration) CountryOption {
	return func(s *CountryService) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func WithCountryLogger(logger *zap.SugaredLogger) CountryOption {
	return func(s *CountryService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewCountryService(store CountryStore, opts ...CountryOption) *CountryService {
	s := &CountryService{
		store:    store,
		cacheTTL: defaultCacheTTL,
		logger:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddCountry stores a new country. Names are unique, compared case-sensitively.
func (s *CountryService) AddCountry(ctx context.Context, req *models.CountryAddRequest) (*models.CountryView, error) {
	if req == nil {
		return nil, ErrNullRequest
	}
	if req.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "Country Name can't be blank"}
	}

	existing, err := s.store.FindByName(ctx, req.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up country: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: country %q already exists", ErrDuplicateKey, req.Name)
	}

	stored, err := s.store.Insert(ctx, models.Country{
		ID:   uuid.New(),
		Name: req.Name,
	})
	if err != nil {
		if errors.Is(err, interfaces.ErrUniqueConstraint) {
			return nil, fmt.Errorf("%w: country %q already exists", ErrDuplicateKey, req.Name)
		}
		return nil, fmt.Errorf("failed to store country: %w", err)
	}

	s.generation.Add(1)
	s.loads.Forget(countriesCacheKey)
	s.invalidate(context.WithoutCancel(ctx))

	view := stored.ToView()
	return &view, nil
}

// GetAllCountries returns every stored country
func (s *CountryService) GetAllCountries(ctx context.Context) ([]models.CountryView, error) {
	countries, err := s.countries(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]models.CountryView, len(countries))
	for i, c := range countries {
		views[i] = c.ToView()
	}
	return views, nil
}

// GetCountryByID returns nil when id is unset or unknown
func (s *CountryService) GetCountryByID(ctx context.Context, id uuid.UUID) (*models.CountryView, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get country: %w", err)
	}
	if c == nil {
		return nil, nil
	}
	view := c.ToView()
	return &view, nil
}

// countryIndex is the country set persons are joined against
func (s *CountryService) countryIndex(ctx context.Context) (map[uuid.UUID]models.Country, error) {
	countries, err := s.countries(ctx)
	if err != nil {
		return nil, err
	}
	return models.IndexCountries(countries), nil
}

func (s *CountryService) countries(ctx context.Context) ([]models.Country, error) {
	if s.cache != nil {
		var cached []models.Country
		if err := s.cache.Get(ctx, countriesCacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	// The load is shared, so one caller going away must not fail the others
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := s.loads.Do(countriesCacheKey, func() (interface{}, error) {
		generation := s.generation.Load()
		countries, err := s.store.ScanAll(loadCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to list countries: %w", err)
		}
		if s.cache == nil || s.generation.Load() != generation {
			return countries, nil
		}
		if err := s.cache.Set(loadCtx, countriesCacheKey, countries, s.cacheTTL); err != nil {
			s.logger.Warnw("Failed to cache country list", "error", err)
			return countries, nil
		}
		// A write that landed between the check and Set may have cleared the
		// entry before it was written
		if s.generation.Load() != generation {
			s.invalidate(loadCtx)
		}
		return countries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Country), nil
}

func (s *CountryService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, countriesCacheKey); err != nil {
		s.logger.Errorw("Failed to invalidate country list cache", "key", countriesCacheKey, "error", err)
	}
}

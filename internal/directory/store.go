package directory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/recordsdir/directory-backend/internal/models"
)

// CountryStore is the keyed storage the country directory persists through.
// Get and FindByName return nil without error when nothing matches.
type CountryStore interface {
	Insert(ctx context.Context, c models.Country) (models.Country, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Country, error)
	FindByName(ctx context.Context, name string) (*models.Country, error)
	ScanAll(ctx context.Context) ([]models.Country, error)
}

// PersonStore is the keyed storage the person directory persists through.
// Delete reports false when nothing was removed.
type PersonStore interface {
	Insert(ctx context.Context, p models.Person) (models.Person, error)
	Update(ctx context.Context, p models.Person) (models.Person, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Person, error)
	ScanAll(ctx context.Context) ([]models.Person, error)
}

// Cache holds derived read results between requests
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/recordsdir/directory-backend/internal/models"
	"github.com/recordsdir/directory-backend/internal/search"
)

// PersonService owns the person lifecycle and resolves each person's country
// through the country directory on every read.
type PersonService struct {
	store     PersonStore
	countries *CountryService
	validator *Validator
	now       func() time.Time
}

type PersonOption func(*PersonService)

// WithClock overrides the time source used for age calculation
func WithClock(now func() time.Time) PersonOption {
	return func(s *PersonService) {
		s.now = now
	}
}

func NewPersonService(store PersonStore, countries *CountryService, opts ...PersonOption) *PersonService {
	s := &PersonService{
		store:     store,
		countries: countries,
		validator: NewValidator(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PersonService) AddPerson(ctx context.Context, req *models.PersonAddRequest) (*models.PersonView, error) {
	if req == nil {
		return nil, ErrNullRequest
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	person := req.ToPerson()
	person.ID = uuid.New()

	stored, err := s.store.Insert(ctx, person)
	if err != nil {
		return nil, fmt.Errorf("failed to store person: %w", err)
	}
	return s.resolve(ctx, stored)
}

// GetPersonByID returns nil when id is unset or unknown
func (s *PersonService) GetPersonByID(ctx context.Context, id uuid.UUID) (*models.PersonView, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	if p == nil {
		return nil, nil
	}
	return s.resolve(ctx, *p)
}

func (s *PersonService) GetAllPersons(ctx context.Context) ([]models.PersonView, error) {
	persons, err := s.store.ScanAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}
	countries, err := s.countries.countryIndex(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]models.PersonView, len(persons))
	for i, p := range persons {
		views[i] = models.NewPersonView(p, countries, now)
	}
	return views, nil
}

// GetFilteredPersons lists every person and keeps those matching text on field
func (s *PersonService) GetFilteredPersons(ctx context.Context, field search.Field, text string) ([]models.PersonView, error) {
	all, err := s.GetAllPersons(ctx)
	if err != nil {
		return nil, err
	}
	return search.Filter(all, field, text), nil
}

func (s *PersonService) GetSortedPersons(persons []models.PersonView, field search.Field, order search.Order) []models.PersonView {
	return search.Sort(persons, field, order)
}

// UpdatePerson applies the mutable fields of req to an existing person. An
// unknown id fails with ErrNotFound before the payload is validated.
func (s *PersonService) UpdatePerson(ctx context.Context, req *models.PersonUpdateRequest) (*models.PersonView, error) {
	if req == nil {
		return nil, ErrNullRequest
	}

	existing, err := s.store.Get(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: person %s", ErrNotFound, req.ID)
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	req.Apply(existing)
	stored, err := s.store.Update(ctx, *existing)
	if err != nil {
		return nil, fmt.Errorf("failed to update person: %w", err)
	}
	return s.resolve(ctx, stored)
}

// DeletePerson removes the person with id and reports whether one existed
func (s *PersonService) DeletePerson(ctx context.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, ErrNullArgument
	}
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete person: %w", err)
	}
	return deleted, nil
}

func (s *PersonService) resolve(ctx context.Context, p models.Person) (*models.PersonView, error) {
	countries, err := s.countries.countryIndex(ctx)
	if err != nil {
		return nil, err
	}
	view := models.NewPersonView(p, countries, s.now())
	return &view, nil
}

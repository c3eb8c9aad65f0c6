package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/recordsdir/directory-backend/internal/db"
	"github.com/recordsdir/directory-backend/internal/db/entities"
	"github.com/recordsdir/directory-backend/internal/models"
	"github.com/recordsdir/directory-backend/internal/search"
)

var fixedNow = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	countries *CountryService
	persons   *PersonService
	cache     *mapCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	database := db.NewInMemoryDatabase()
	require.NoError(t, db.ConnectAndMigrate(ctx, database, db.AllSchemas()))
	t.Cleanup(func() { database.Disconnect(ctx) })

	cache := newMapCache()
	countries := NewCountryService(
		NewCountryRepository(database.Repository(entities.CountrySchema)),
		WithCountryCache(cache, time.Minute),
	)
	persons := NewPersonService(
		NewPersonRepository(database.Repository(entities.PersonSchema)),
		countries,
		WithClock(func() time.Time { return fixedNow }),
	)
	return &fixture{countries: countries, persons: persons, cache: cache}
}

func (f *fixture) addCountry(t *testing.T, name string) models.CountryView {
	t.Helper()
	c, err := f.countries.AddCountry(context.Background(), &models.CountryAddRequest{Name: name})
	require.NoError(t, err)
	return *c
}

func (f *fixture) addPerson(t *testing.T, name, email string, countryID uuid.UUID) models.PersonView {
	t.Helper()
	p, err := f.persons.AddPerson(context.Background(), &models.PersonAddRequest{
		Name:      name,
		Email:     email,
		Gender:    models.GenderMale,
		CountryID: &countryID,
	})
	require.NoError(t, err)
	return *p
}

func TestAddCountry(t *testing.T) {
	ctx := context.Background()

	t.Run("nil request", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.countries.AddCountry(ctx, nil)
		assert.ErrorIs(t, err, ErrNullRequest)
	})

	t.Run("blank name", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.countries.AddCountry(ctx, &models.CountryAddRequest{})
		assert.ErrorIs(t, err, ErrInvalidArgument)

		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "name", ve.Field)
	})

	t.Run("duplicate name", func(t *testing.T) {
		f := newFixture(t)
		f.addCountry(t, "Egypt")
		_, err := f.countries.AddCountry(ctx, &models.CountryAddRequest{Name: "Egypt"})
		assert.ErrorIs(t, err, ErrDuplicateKey)

		all, err := f.countries.GetAllCountries(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("names are case-sensitive", func(t *testing.T) {
		f := newFixture(t)
		f.addCountry(t, "Egypt")
		_, err := f.countries.AddCountry(ctx, &models.CountryAddRequest{Name: "egypt"})
		assert.NoError(t, err)
	})

	t.Run("stored and retrievable", func(t *testing.T) {
		f := newFixture(t)
		added := f.addCountry(t, "Japan")
		assert.NotEqual(t, uuid.Nil, added.ID)

		got, err := f.countries.GetCountryByID(ctx, added.ID)
		require.NoError(t, err)
		assert.Equal(t, &added, got)
	})
}

func TestGetAllCountries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	empty, err := f.countries.GetAllCountries(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	egypt := f.addCountry(t, "Egypt")
	cairo := f.addCountry(t, "Cairo")

	all, err := f.countries.GetAllCountries(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.CountryView{egypt, cairo}, all)

	again, err := f.countries.GetAllCountries(ctx)
	require.NoError(t, err)
	assert.Equal(t, all, again, "listing is stable for an unchanged store")
}

func TestCountryCacheInvalidatedOnAdd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.addCountry(t, "Egypt")
	_, err := f.countries.GetAllCountries(ctx)
	require.NoError(t, err)
	assert.True(t, f.cache.has(countriesCacheKey))

	f.addCountry(t, "USA")
	assert.False(t, f.cache.has(countriesCacheKey))

	all, err := f.countries.GetAllCountries(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGetCountryByIDAbsent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	got, err := f.countries.GetCountryByID(ctx, uuid.Nil)
	assert.NoError(t, err)
	assert.Nil(t, got)

	got, err = f.countries.GetCountryByID(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestAddPerson(t *testing.T) {
	ctx := context.Background()

	t.Run("nil request", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.persons.AddPerson(ctx, nil)
		assert.ErrorIs(t, err, ErrNullRequest)
	})

	t.Run("blank name", func(t *testing.T) {
		f := newFixture(t)
		countryID := f.addCountry(t, "Egypt").ID
		_, err := f.persons.AddPerson(ctx, &models.PersonAddRequest{
			Email: "test@test.com", Gender: models.GenderMale, CountryID: &countryID,
		})
		require.ErrorIs(t, err, ErrInvalidArgument)

		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "name", ve.Field)
		assert.Equal(t, "Person Name can't be blank", ve.Message)

		all, err := f.persons.GetAllPersons(ctx)
		require.NoError(t, err)
		assert.Empty(t, all, "nothing is stored when validation fails")
	})

	t.Run("invalid email", func(t *testing.T) {
		f := newFixture(t)
		countryID := f.addCountry(t, "Egypt").ID
		_, err := f.persons.AddPerson(ctx, &models.PersonAddRequest{
			Name: "test", Email: "not-an-email", Gender: models.GenderMale, CountryID: &countryID,
		})
		var ves ValidationErrors
		require.True(t, errors.As(err, &ves))
		assert.Equal(t, "Email value should be a valid email", ves.First().Message)
	})

	t.Run("missing gender and country", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.persons.AddPerson(ctx, &models.PersonAddRequest{Name: "test", Email: "test@test.com"})
		var ves ValidationErrors
		require.True(t, errors.As(err, &ves))
		fields := []string{}
		for _, ve := range ves {
			fields = append(fields, ve.Field)
		}
		assert.Equal(t, []string{"gender", "countryId"}, fields)
	})

	t.Run("stored and retrievable", func(t *testing.T) {
		f := newFixture(t)
		egypt := f.addCountry(t, "Egypt")
		dob := models.NewDate(1994, time.June, 1)

		added, err := f.persons.AddPerson(ctx, &models.PersonAddRequest{
			Name:               "test",
			Email:              "test@test.com",
			DateOfBirth:        &dob,
			Gender:             models.GenderMale,
			CountryID:          &egypt.ID,
			Address:            "Cairo",
			ReceiveNewsletters: true,
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, added.ID)
		require.NotNil(t, added.CountryName)
		assert.Equal(t, "Egypt", *added.CountryName)
		require.NotNil(t, added.Age)
		assert.Equal(t, 30, *added.Age)

		got, err := f.persons.GetPersonByID(ctx, added.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, added.Equal(*got))
	})
}

func TestDateOfBirthKeepsCalendarDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	egypt := f.addCountry(t, "Egypt")

	var req models.PersonAddRequest
	require.NoError(t, json.Unmarshal([]byte(fmt.Sprintf(
		`{"name":"eslam","email":"eslam@example.com","dateOfBirth":"2000-01-01T00:00:00+02:00","gender":"Male","countryId":%q}`,
		egypt.ID)), &req))

	added, err := f.persons.AddPerson(ctx, &req)
	require.NoError(t, err)

	got, err := f.persons.GetPersonByID(ctx, added.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DateOfBirth)
	assert.Equal(t, "01 January 2000", got.DateOfBirth.Format(models.DateLayout))
	require.NotNil(t, got.Age)
	assert.Equal(t, 24, *got.Age)

	matches, err := f.persons.GetFilteredPersons(ctx, search.FieldDateOfBirth, "01 January 2000")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, added.ID, matches[0].ID)
}

func TestDirectoryOnSQLite(t *testing.T) {
	ctx := context.Background()
	database, err := db.NewDatabase(&db.Config{
		Type: "sqlite",
		DSN:  filepath.Join(t.TempDir(), "directory.db"),
	}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	require.NoError(t, db.ConnectAndMigrate(ctx, database, db.AllSchemas()))
	t.Cleanup(func() { database.Disconnect(ctx) })

	countries := NewCountryService(NewCountryRepository(database.Repository(entities.CountrySchema)))
	persons := NewPersonService(
		NewPersonRepository(database.Repository(entities.PersonSchema)),
		countries,
		WithClock(func() time.Time { return fixedNow }),
	)

	egypt, err := countries.AddCountry(ctx, &models.CountryAddRequest{Name: "Egypt"})
	require.NoError(t, err)
	_, err = countries.AddCountry(ctx, &models.CountryAddRequest{Name: "Egypt"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
	_, err = countries.AddCountry(ctx, &models.CountryAddRequest{Name: "egypt"})
	assert.NoError(t, err)

	dob, err := models.ParseDate("2000-01-01T00:00:00+02:00")
	require.NoError(t, err)
	added, err := persons.AddPerson(ctx, &models.PersonAddRequest{
		Name:        "eslam",
		Email:       "eslam@example.com",
		DateOfBirth: &dob,
		Gender:      models.GenderMale,
		CountryID:   &egypt.ID,
	})
	require.NoError(t, err)

	got, err := persons.GetPersonByID(ctx, added.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DateOfBirth)
	assert.Equal(t, "2000-01-01", got.DateOfBirth.String())
	require.NotNil(t, got.CountryName)
	assert.Equal(t, "Egypt", *got.CountryName)
}

func TestGetPersonByIDAbsent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	got, err := f.persons.GetPersonByID(ctx, uuid.Nil)
	assert.NoError(t, err)
	assert.Nil(t, got)

	got, err = f.persons.GetPersonByID(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetAllPersons(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	empty, err := f.persons.GetAllPersons(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	egypt := f.addCountry(t, "Egypt")
	cairo := f.addCountry(t, "Cairo")
	added := []models.PersonView{
		f.addPerson(t, "test", "test@test.com", egypt.ID),
		f.addPerson(t, "test2", "test2@test.com", cairo.ID),
	}

	all, err := f.persons.GetAllPersons(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, want := range added {
		found := false
		for _, got := range all {
			if want.Equal(got) {
				found = true
			}
		}
		assert.True(t, found, "person %s missing from listing", want.Name)
	}
}

func TestDanglingCountryResolvesToNil(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	unknown := uuid.New()
	p := f.addPerson(t, "lost", "lost@example.com", unknown)
	assert.Nil(t, p.CountryName)
	assert.Equal(t, &unknown, p.CountryID)

	got, err := f.persons.GetPersonByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CountryName)
}

func TestGetFilteredPersons(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	egypt := f.addCountry(t, "Egypt")
	cairo := f.addCountry(t, "Cairo")
	f.addPerson(t, "eslam", "test@test.com", egypt.ID)
	f.addPerson(t, "solom", "test2@test.com", cairo.ID)

	got, err := f.persons.GetFilteredPersons(ctx, search.FieldName, "es")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "eslam", got[0].Name)

	got, err = f.persons.GetFilteredPersons(ctx, search.FieldName, "")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = f.persons.GetFilteredPersons(ctx, search.FieldCountry, "cai")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "solom", got[0].Name)
}

func TestGetSortedPersons(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	egypt := f.addCountry(t, "Egypt")
	f.addPerson(t, "eslam", "test@test.com", egypt.ID)
	f.addPerson(t, "solom", "test2@test.com", egypt.ID)

	all, err := f.persons.GetAllPersons(ctx)
	require.NoError(t, err)

	sorted := f.persons.GetSortedPersons(all, search.FieldName, search.Descending)
	require.Len(t, sorted, 2)
	assert.Equal(t, "solom", sorted[0].Name)
	assert.Equal(t, "eslam", sorted[1].Name)
}

func TestUpdatePerson(t *testing.T) {
	ctx := context.Background()

	t.Run("nil request", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.persons.UpdatePerson(ctx, nil)
		assert.ErrorIs(t, err, ErrNullRequest)
	})

	t.Run("unknown id fails regardless of payload", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.persons.UpdatePerson(ctx, &models.PersonUpdateRequest{ID: uuid.New()})
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = f.persons.UpdatePerson(ctx, &models.PersonUpdateRequest{
			ID: uuid.New(), Name: "valid", Email: "valid@example.com",
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("blank name", func(t *testing.T) {
		f := newFixture(t)
		egypt := f.addCountry(t, "Egypt")
		p := f.addPerson(t, "eslam", "test@test.com", egypt.ID)

		req := p.ToUpdateRequest()
		req.Name = ""
		_, err := f.persons.UpdatePerson(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidArgument)

		got, err := f.persons.GetPersonByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "eslam", got.Name, "failed update leaves the record untouched")
	})

	t.Run("applies mutable fields", func(t *testing.T) {
		f := newFixture(t)
		egypt := f.addCountry(t, "Egypt")
		usa := f.addCountry(t, "USA")
		p := f.addPerson(t, "eslam", "test@test.com", egypt.ID)

		req := p.ToUpdateRequest()
		req.Name = "William"
		req.Email = "william@example.com"
		req.CountryID = &usa.ID
		req.Address = "New York"
		req.ReceiveNewsletters = true
		req.Gender = models.GenderOther

		updated, err := f.persons.UpdatePerson(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "William", updated.Name)
		assert.Equal(t, "william@example.com", updated.Email)
		require.NotNil(t, updated.CountryName)
		assert.Equal(t, "USA", *updated.CountryName)
		assert.Equal(t, "New York", updated.Address)
		assert.True(t, updated.ReceiveNewsletters)
		assert.Equal(t, "Male", updated.Gender, "gender is not mutated by update")

		got, err := f.persons.GetPersonByID(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, updated.Equal(*got))
	})
}

func TestDeletePerson(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.persons.DeletePerson(ctx, uuid.Nil)
	assert.ErrorIs(t, err, ErrNullArgument)

	egypt := f.addCountry(t, "Egypt")
	keep := f.addPerson(t, "keep", "keep@example.com", egypt.ID)
	drop := f.addPerson(t, "drop", "drop@example.com", egypt.ID)

	deleted, err := f.persons.DeletePerson(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = f.persons.DeletePerson(ctx, drop.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = f.persons.DeletePerson(ctx, drop.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	all, err := f.persons.GetAllPersons(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, keep.ID, all[0].ID)
}

func TestCountryListServedFromCache(t *testing.T) {
	ctx := context.Background()
	database := db.NewInMemoryDatabase()
	require.NoError(t, db.ConnectAndMigrate(ctx, database, db.AllSchemas()))

	store := &countingCountryStore{CountryStore: NewCountryRepository(database.Repository(entities.CountrySchema))}
	countries := NewCountryService(store, WithCountryCache(newMapCache(), time.Minute))

	_, err := countries.AddCountry(ctx, &models.CountryAddRequest{Name: "Egypt"})
	require.NoError(t, err)
	scansAfterAdd := store.scans.Load()

	for i := 0; i < 3; i++ {
		all, err := countries.GetAllCountries(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	}
	assert.Equal(t, scansAfterAdd+1, store.scans.Load(), "only the first listing reaches the store")
}

func TestConcurrentCountryListing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addCountry(t, "Egypt")
	f.addCountry(t, "Japan")

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			all, err := f.countries.GetAllCountries(ctx)
			if err == nil && len(all) != 2 {
				err = fmt.Errorf("got %d countries", len(all))
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestCountryListLoadOutlivesCaller(t *testing.T) {
	ctx := context.Background()
	database := db.NewInMemoryDatabase()
	require.NoError(t, db.ConnectAndMigrate(ctx, database, db.AllSchemas()))

	store := &ctxCheckingCountryStore{CountryStore: NewCountryRepository(database.Repository(entities.CountrySchema))}
	countries := NewCountryService(store, WithCountryCache(newMapCache(), time.Minute))
	_, err := countries.AddCountry(ctx, &models.CountryAddRequest{Name: "Egypt"})
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	all, err := countries.GetAllCountries(cancelled)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAddDuringCacheFillIsNotHidden(t *testing.T) {
	ctx := context.Background()
	database := db.NewInMemoryDatabase()
	require.NoError(t, db.ConnectAndMigrate(ctx, database, db.AllSchemas()))

	cache := &racingCache{mapCache: newMapCache()}
	countries := NewCountryService(
		NewCountryRepository(database.Repository(entities.CountrySchema)),
		WithCountryCache(cache, time.Minute),
	)
	_, err := countries.AddCountry(ctx, &models.CountryAddRequest{Name: "Egypt"})
	require.NoError(t, err)

	// Japan is added after the load passed its generation check but before
	// the stale list is written
	cache.beforeSet = func() {
		_, err := countries.AddCountry(ctx, &models.CountryAddRequest{Name: "Japan"})
		require.NoError(t, err)
	}

	first, err := countries.GetAllCountries(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 1)
	assert.False(t, cache.has(countriesCacheKey), "stale list must not stay cached")

	second, err := countries.GetAllCountries(ctx)
	require.NoError(t, err)
	assert.Len(t, second, 2)
}

func TestFailedInvalidationIsLogged(t *testing.T) {
	ctx := context.Background()
	database := db.NewInMemoryDatabase()
	require.NoError(t, db.ConnectAndMigrate(ctx, database, db.AllSchemas()))

	core, logs := observer.New(zap.WarnLevel)
	countries := NewCountryService(
		NewCountryRepository(database.Repository(entities.CountrySchema)),
		WithCountryCache(&brokenDeleteCache{mapCache: newMapCache()}, time.Minute),
		WithCountryLogger(zap.New(core).Sugar()),
	)

	_, err := countries.AddCountry(ctx, &models.CountryAddRequest{Name: "Egypt"})
	require.NoError(t, err)

	entries := logs.FilterMessage("Failed to invalidate country list cache").All()
	require.Len(t, entries, 1)
	assert.Equal(t, countriesCacheKey, entries[0].ContextMap()["key"])
}

type ctxCheckingCountryStore struct {
	CountryStore
}

func (s *ctxCheckingCountryStore) ScanAll(ctx context.Context) ([]models.Country, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.CountryStore.ScanAll(ctx)
}

type racingCache struct {
	*mapCache
	once      sync.Once
	beforeSet func()
}

func (c *racingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.beforeSet != nil {
		c.once.Do(c.beforeSet)
	}
	return c.mapCache.Set(ctx, key, value, ttl)
}

type brokenDeleteCache struct {
	*mapCache
}

func (c *brokenDeleteCache) Delete(ctx context.Context, keys ...string) error {
	return errors.New("connection reset")
}

type countingCountryStore struct {
	CountryStore
	scans atomic.Int64
}

func (s *countingCountryStore) ScanAll(ctx context.Context) ([]models.Country, error) {
	s.scans.Add(1)
	return s.CountryStore.ScanAll(ctx)
}

// mapCache is an in-process Cache that round-trips values through JSON
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	data, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return errors.New("miss")
	}
	return json.Unmarshal(data, dest)
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[key] = data
	c.mu.Unlock()
	return nil
}

func (c *mapCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *mapCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

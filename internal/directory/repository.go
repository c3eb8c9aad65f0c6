package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/recordsdir/directory-backend/internal/db/interfaces"
	"github.com/recordsdir/directory-backend/internal/models"
)

// CountryRepository adapts a generic repository over the countries schema
type CountryRepository struct {
	repo interfaces.Repository
}

func NewCountryRepository(repo interfaces.Repository) *CountryRepository {
	return &CountryRepository{repo: repo}
}

func (r *CountryRepository) Insert(ctx context.Context, c models.Country) (models.Country, error) {
	record, err := r.repo.Create(ctx, map[string]interface{}{
		"id":   c.ID.String(),
		"name": c.Name,
	})
	if err != nil {
		return models.Country{}, err
	}
	return countryFromRecord(record)
}

func (r *CountryRepository) Get(ctx context.Context, id uuid.UUID) (*models.Country, error) {
	record, err := r.repo.GetByID(ctx, interfaces.StringID(id.String()))
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c, err := countryFromRecord(record)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByName matches the name exactly, case included
func (r *CountryRepository) FindByName(ctx context.Context, name string) (*models.Country, error) {
	record, err := r.repo.FindOne(ctx, &interfaces.Query{
		Where: &interfaces.Filters{
			Conditions: []interfaces.Filter{{Field: "name", Value: name}},
		},
	})
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c, err := countryFromRecord(record)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CountryRepository) ScanAll(ctx context.Context) ([]models.Country, error) {
	page, err := r.repo.FindMany(ctx, nil)
	if err != nil {
		return nil, err
	}
	countries := make([]models.Country, 0, len(page.Data))
	for _, record := range page.Data {
		c, err := countryFromRecord(record)
		if err != nil {
			return nil, err
		}
		countries = append(countries, c)
	}
	return countries, nil
}

// PersonRepository adapts a generic repository over the persons schema
type PersonRepository struct {
	repo interfaces.Repository
}

func NewPersonRepository(repo interfaces.Repository) *PersonRepository {
	return &PersonRepository{repo: repo}
}

func (r *PersonRepository) Insert(ctx context.Context, p models.Person) (models.Person, error) {
	record, err := r.repo.Create(ctx, personToRecord(p))
	if err != nil {
		return models.Person{}, err
	}
	return personFromRecord(record)
}

func (r *PersonRepository) Update(ctx context.Context, p models.Person) (models.Person, error) {
	data := personToRecord(p)
	delete(data, "id")
	record, err := r.repo.Update(ctx, interfaces.StringID(p.ID.String()), data)
	if err != nil {
		return models.Person{}, err
	}
	return personFromRecord(record)
}

func (r *PersonRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	err := r.repo.Delete(ctx, interfaces.StringID(id.String()))
	if errors.Is(err, interfaces.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *PersonRepository) Get(ctx context.Context, id uuid.UUID) (*models.Person, error) {
	record, err := r.repo.GetByID(ctx, interfaces.StringID(id.String()))
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p, err := personFromRecord(record)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PersonRepository) ScanAll(ctx context.Context) ([]models.Person, error) {
	page, err := r.repo.FindMany(ctx, nil)
	if err != nil {
		return nil, err
	}
	persons := make([]models.Person, 0, len(page.Data))
	for _, record := range page.Data {
		p, err := personFromRecord(record)
		if err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	return persons, nil
}

func personToRecord(p models.Person) map[string]interface{} {
	record := map[string]interface{}{
		"id":                  p.ID.String(),
		"name":                p.Name,
		"email":               p.Email,
		"date_of_birth":       nil,
		"gender":              nil,
		"country_id":          nil,
		"address":             nil,
		"receive_newsletters": p.ReceiveNewsletters,
	}
	if p.DateOfBirth != nil {
		record["date_of_birth"] = p.DateOfBirth.Time()
	}
	if p.Gender != "" {
		record["gender"] = p.Gender
	}
	if p.CountryID != nil {
		record["country_id"] = p.CountryID.String()
	}
	if p.Address != "" {
		record["address"] = p.Address
	}
	return record
}

func countryFromRecord(record map[string]interface{}) (models.Country, error) {
	id, err := uuidField(record, "id")
	if err != nil {
		return models.Country{}, err
	}
	return models.Country{
		ID:   id,
		Name: stringField(record, "name"),
	}, nil
}

func personFromRecord(record map[string]interface{}) (models.Person, error) {
	id, err := uuidField(record, "id")
	if err != nil {
		return models.Person{}, err
	}

	p := models.Person{
		ID:                 id,
		Name:               stringField(record, "name"),
		Email:              stringField(record, "email"),
		Gender:             stringField(record, "gender"),
		Address:            stringField(record, "address"),
		ReceiveNewsletters: boolField(record, "receive_newsletters"),
	}

	if v, ok := record["date_of_birth"].(time.Time); ok {
		dob := models.DateOf(v)
		p.DateOfBirth = &dob
	}
	if s := stringField(record, "country_id"); s != "" {
		countryID, err := uuid.Parse(s)
		if err != nil {
			return models.Person{}, fmt.Errorf("person %s: invalid country_id %q: %w", id, s, err)
		}
		p.CountryID = &countryID
	}
	return p, nil
}

func uuidField(record map[string]interface{}, key string) (uuid.UUID, error) {
	s := stringField(record, key)
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return id, nil
}

func stringField(record map[string]interface{}, key string) string {
	if s, ok := record[key].(string); ok {
		return s
	}
	return ""
}

func boolField(record map[string]interface{}, key string) bool {
	if b, ok := record[key].(bool); ok {
		return b
	}
	return false
}

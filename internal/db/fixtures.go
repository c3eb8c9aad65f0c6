package db

import (
	"time"

	"github.com/recordsdir/directory-backend/internal/db/entities"
	"github.com/recordsdir/directory-backend/internal/db/interfaces"
)

// CountryFixtures provides sample country data for seeding
var CountryFixtures = []map[string]interface{}{
	{"id": "7e0f5a2c-3d4b-4a61-9a0e-2f4c8b1d6e01", "name": "Egypt"},
	{"id": "1b9c6d3e-8f2a-4c57-b6d1-0e3a5f7c9b02", "name": "USA"},
	{"id": "4d2e8a1f-6b3c-4e95-a7f0-5c1b9d3e2a03", "name": "Germany"},
	{"id": "9a5f3c7e-2d1b-4f86-8c4a-6e0d2b8f1c04", "name": "India"},
	{"id": "2c8b4e6a-1f9d-4a32-9e5c-3b7f0a6d8e05", "name": "Japan"},
}

// PersonFixtures provides sample person data for seeding.
// countryIDs maps country name to the id it was stored under.
func PersonFixtures(countryIDs map[string]string) []map[string]interface{} {
	country := func(name string) interface{} {
		if id, ok := countryIDs[name]; ok {
			return id
		}
		return nil
	}
	dob := func(year int, month time.Month, day int) time.Time {
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	}

	return []map[string]interface{}{
		{
			"name":                "Eslam Mohamed",
			"email":               "eslam@example.com",
			"date_of_birth":       dob(1995, time.March, 14),
			"gender":              "Male",
			"country_id":          country("Egypt"),
			"address":             "12 Nile Street, Cairo",
			"receive_newsletters": true,
		},
		{
			"name":                "Sara Lindqvist",
			"email":               "sara@example.com",
			"date_of_birth":       dob(1988, time.November, 2),
			"gender":              "Female",
			"country_id":          country("Germany"),
			"address":             "Hauptstrasse 4, Berlin",
			"receive_newsletters": false,
		},
		{
			"name":                "Marcus Hale",
			"email":               "marcus@example.com",
			"date_of_birth":       dob(2001, time.July, 23),
			"gender":              "Male",
			"country_id":          country("USA"),
			"address":             "500 Market Street, San Francisco",
			"receive_newsletters": true,
		},
		{
			"name":                "Priya Raman",
			"email":               "priya@example.com",
			"gender":              "Female",
			"country_id":          country("India"),
			"receive_newsletters": false,
			// date_of_birth and address are omitted (null)
		},
		{
			"name":                "Kai Nakamura",
			"email":               "kai@example.com",
			"date_of_birth":       dob(1979, time.January, 30),
			"gender":              "Other",
			"country_id":          country("Japan"),
			"address":             "3-1 Marunouchi, Tokyo",
			"receive_newsletters": true,
		},
	}
}

// AllSchemas returns all entity schemas for migration
func AllSchemas() []*interfaces.Schema {
	return []*interfaces.Schema{
		entities.CountrySchema,
		entities.PersonSchema,
	}
}

package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgeAt(t *testing.T) {
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		dob  time.Time
		want int
	}{
		{"exact years", time.Date(2000, time.June, 1, 0, 0, 0, 0, time.UTC), 24},
		{"rounds up past half year", time.Date(2000, time.October, 1, 0, 0, 0, 0, time.UTC), 24},
		{"rounds down before half year", time.Date(2000, time.December, 31, 0, 0, 0, 0, time.UTC), 23},
		{"newborn", now, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AgeAt(tt.dob, now))
		})
	}
}

func TestNewPersonView(t *testing.T) {
	egypt := Country{ID: uuid.New(), Name: "Egypt"}
	countries := IndexCountries([]Country{egypt})
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	dob := NewDate(1994, time.June, 1)

	t.Run("resolves country and age", func(t *testing.T) {
		p := Person{ID: uuid.New(), Name: "eslam", CountryID: &egypt.ID, DateOfBirth: &dob}
		v := NewPersonView(p, countries, now)

		require.NotNil(t, v.CountryName)
		assert.Equal(t, "Egypt", *v.CountryName)
		require.NotNil(t, v.Age)
		assert.Equal(t, 30, *v.Age)
	})

	t.Run("dangling country resolves to nil", func(t *testing.T) {
		missing := uuid.New()
		v := NewPersonView(Person{ID: uuid.New(), CountryID: &missing}, countries, now)
		assert.Nil(t, v.CountryName)
		assert.Equal(t, &missing, v.CountryID)
	})

	t.Run("unset fields stay nil", func(t *testing.T) {
		v := NewPersonView(Person{ID: uuid.New()}, countries, now)
		assert.Nil(t, v.CountryName)
		assert.Nil(t, v.Age)
	})
}

func TestPersonViewEqualIgnoresAge(t *testing.T) {
	dob := NewDate(1990, time.January, 2)
	p := Person{ID: uuid.New(), Name: "solom", Email: "s@example.com", DateOfBirth: &dob, Gender: "Male"}

	a := NewPersonView(p, nil, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	b := NewPersonView(p, nil, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, a.Equal(b))

	b.Address = "elsewhere"
	assert.False(t, a.Equal(b))

	sameDay := DateOf(time.Date(1990, time.January, 2, 23, 30, 0, 0, time.FixedZone("EET", 2*3600)))
	c := a
	c.DateOfBirth = &sameDay
	assert.True(t, a.Equal(c))
}

func TestToUpdateRequestRoundTrip(t *testing.T) {
	countryID := uuid.New()
	dob := NewDate(1990, time.January, 2)
	v := PersonView{
		ID:                 uuid.New(),
		Name:               "eslam",
		Email:              "eslam@example.com",
		DateOfBirth:        &dob,
		Gender:             string(GenderMale),
		CountryID:          &countryID,
		Address:            "Cairo",
		ReceiveNewsletters: true,
	}

	req := v.ToUpdateRequest()
	assert.Equal(t, v.ID, req.ID)
	assert.Equal(t, GenderMale, req.Gender)

	var p Person
	req.Apply(&p)
	assert.Equal(t, "eslam", p.Name)
	assert.Equal(t, "eslam@example.com", p.Email)
	assert.Equal(t, &countryID, p.CountryID)
	assert.Equal(t, "Cairo", p.Address)
	assert.True(t, p.ReceiveNewsletters)
	assert.Nil(t, p.DateOfBirth, "date of birth is not applied by updates")
	assert.Empty(t, p.Gender, "gender is not applied by updates")
}

func TestPersonViewString(t *testing.T) {
	dob := NewDate(1990, time.January, 2)
	name := "Egypt"
	v := PersonView{ID: uuid.Nil, Name: "eslam", DateOfBirth: &dob, CountryName: &name}

	s := v.String()
	assert.Contains(t, s, "Person Name: eslam")
	assert.Contains(t, s, "Date of Birth: 02 Jan 1990")
	assert.Contains(t, s, "Country: Egypt")
}

func TestAddRequestToPerson(t *testing.T) {
	countryID := uuid.New()
	req := &PersonAddRequest{Name: "n", Email: "e@example.com", Gender: GenderOther, CountryID: &countryID}

	p := req.ToPerson()
	assert.Equal(t, uuid.Nil, p.ID)
	assert.Equal(t, "Other", p.Gender)
	assert.Equal(t, &countryID, p.CountryID)
	assert.Nil(t, p.DateOfBirth)

	blank := Date{}
	req.DateOfBirth = &blank
	assert.Nil(t, req.ToPerson().DateOfBirth, "a zero date is stored as absent")
}

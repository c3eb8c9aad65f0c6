package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Gender is stored as its textual representation
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// DateLayout is the human-readable rendering used for date of birth search and display
const DateLayout = "02 January 2006"

const daysPerYear = 365.25

// Person is the stored person record
type Person struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	DateOfBirth        *Date      `json:"dateOfBirth,omitempty"`
	Gender             string     `json:"gender,omitempty"`
	CountryID          *uuid.UUID `json:"countryId,omitempty"`
	Address            string     `json:"address,omitempty"`
	ReceiveNewsletters bool       `json:"receiveNewsletters"`
}

// PersonView is a read-only projection of a Person with its country resolved
type PersonView struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	DateOfBirth        *Date      `json:"dateOfBirth,omitempty"`
	Gender             string     `json:"gender,omitempty"`
	CountryID          *uuid.UUID `json:"countryId,omitempty"`
	CountryName        *string    `json:"countryName,omitempty"`
	Address            string     `json:"address,omitempty"`
	ReceiveNewsletters bool       `json:"receiveNewsletters"`
	Age                *int       `json:"age,omitempty"`
}

// NewPersonView joins a person with the country set at read time. A missing or
// dangling country reference leaves CountryName nil.
func NewPersonView(p Person, countries map[uuid.UUID]Country, now time.Time) PersonView {
	view := PersonView{
		ID:                 p.ID,
		Name:               p.Name,
		Email:              p.Email,
		DateOfBirth:        p.DateOfBirth,
		Gender:             p.Gender,
		CountryID:          p.CountryID,
		Address:            p.Address,
		ReceiveNewsletters: p.ReceiveNewsletters,
	}

	if p.CountryID != nil {
		if c, ok := countries[*p.CountryID]; ok {
			name := c.Name
			view.CountryName = &name
		}
	}

	if p.DateOfBirth != nil {
		age := AgeAt(p.DateOfBirth.Time(), now)
		view.Age = &age
	}

	return view
}

// AgeAt returns the age in whole years, rounding elapsed days over 365.25-day years
func AgeAt(dob, now time.Time) int {
	days := now.Sub(dob).Hours() / 24
	return int(math.Round(days / daysPerYear))
}

// Equal compares every field except Age, which depends on the current time
func (v PersonView) Equal(other PersonView) bool {
	return v.ID == other.ID &&
		v.Name == other.Name &&
		v.Email == other.Email &&
		datePtrEqual(v.DateOfBirth, other.DateOfBirth) &&
		v.Gender == other.Gender &&
		stringPtrEqual(v.CountryName, other.CountryName) &&
		uuidPtrEqual(v.CountryID, other.CountryID) &&
		v.Address == other.Address &&
		v.ReceiveNewsletters == other.ReceiveNewsletters
}

func (v PersonView) String() string {
	dob := ""
	if v.DateOfBirth != nil {
		dob = v.DateOfBirth.Format("02 Jan 2006")
	}
	countryID := ""
	if v.CountryID != nil {
		countryID = v.CountryID.String()
	}
	country := ""
	if v.CountryName != nil {
		country = *v.CountryName
	}
	return fmt.Sprintf("Person ID: %s, Person Name: %s, Email: %s, Date of Birth: %s, Gender: %s, Country ID: %s, Country: %s, Address: %s, Receive News Letters: %t",
		v.ID, v.Name, v.Email, dob, v.Gender, countryID, country, v.Address, v.ReceiveNewsletters)
}

// ToUpdateRequest prefills an edit form from the current view
func (v PersonView) ToUpdateRequest() *PersonUpdateRequest {
	return &PersonUpdateRequest{
		ID:                 v.ID,
		Name:               v.Name,
		Email:              v.Email,
		DateOfBirth:        v.DateOfBirth,
		Gender:             Gender(v.Gender),
		CountryID:          v.CountryID,
		Address:            v.Address,
		ReceiveNewsletters: v.ReceiveNewsletters,
	}
}

func datePtrEqual(a, b *Date) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

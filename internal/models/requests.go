package models

import (
	"github.com/google/uuid"
)

// PersonAddRequest carries the fields of a new person
type PersonAddRequest struct {
	Name               string     `json:"name" validate:"required"`
	Email              string     `json:"email" validate:"required,email"`
	DateOfBirth        *Date      `json:"dateOfBirth,omitempty"`
	Gender             Gender     `json:"gender" validate:"required,oneof=Male Female Other"`
	CountryID          *uuid.UUID `json:"countryId" validate:"required"`
	Address            string     `json:"address,omitempty"`
	ReceiveNewsletters bool       `json:"receiveNewsletters"`
}

// ToPerson builds the person record; the caller assigns the ID
func (r *PersonAddRequest) ToPerson() Person {
	return Person{
		Name:               r.Name,
		Email:              r.Email,
		DateOfBirth:        optionalDate(r.DateOfBirth),
		Gender:             string(r.Gender),
		CountryID:          r.CountryID,
		Address:            r.Address,
		ReceiveNewsletters: r.ReceiveNewsletters,
	}
}

// PersonUpdateRequest carries the editable fields of an existing person.
// DateOfBirth and Gender round-trip through edit forms but are not applied.
type PersonUpdateRequest struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name" validate:"required"`
	Email              string     `json:"email" validate:"required,email"`
	DateOfBirth        *Date      `json:"dateOfBirth,omitempty"`
	Gender             Gender     `json:"gender,omitempty" validate:"omitempty,oneof=Male Female Other"`
	CountryID          *uuid.UUID `json:"countryId,omitempty"`
	Address            string     `json:"address,omitempty"`
	ReceiveNewsletters bool       `json:"receiveNewsletters"`
}

// Apply copies the mutable fields onto p
func (r *PersonUpdateRequest) Apply(p *Person) {
	p.Name = r.Name
	p.Email = r.Email
	p.CountryID = r.CountryID
	p.Address = r.Address
	p.ReceiveNewsletters = r.ReceiveNewsletters
}

// CountryAddRequest carries the name of a new country
type CountryAddRequest struct {
	Name string `json:"name"`
}

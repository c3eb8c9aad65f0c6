package models

import "github.com/google/uuid"

// Country is the stored country record
type Country struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// CountryView is the country shape handed to callers
type CountryView struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (c Country) ToView() CountryView {
	return CountryView{ID: c.ID, Name: c.Name}
}

// IndexCountries keys countries by ID for read-time joins
func IndexCountries(countries []Country) map[uuid.UUID]Country {
	idx := make(map[uuid.UUID]Country, len(countries))
	for _, c := range countries {
		idx[c.ID] = c
	}
	return idx
}

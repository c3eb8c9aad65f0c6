package api

import (
	"github.com/recordsdir/directory-backend/internal/directory"
	"github.com/recordsdir/directory-backend/internal/models"
)

// PersonListDTO is the listing page: the applied search and sort state, the
// matching records and the fields a client may search on
type PersonListDTO struct {
	SearchBy     string              `json:"searchBy"`
	SearchString string              `json:"searchString"`
	SortBy       string              `json:"sortBy"`
	SortOrder    string              `json:"sortOrder"`
	Persons      []models.PersonView `json:"persons"`
	SearchFields []SearchFieldDTO    `json:"searchFields"`
}

type SearchFieldDTO struct {
	Field string `json:"field"`
	Label string `json:"label"`
}

type CountryListDTO struct {
	Countries []models.CountryView `json:"countries"`
}

type DeleteDTO struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

type ErrorResponse struct {
	Code    string                       `json:"code"`
	Message string                       `json:"message"`
	Details string                       `json:"details,omitempty"`
	Fields  []*directory.ValidationError `json:"fields,omitempty"`
}

// Query parameters for the person listing
type PersonListRequest struct {
	SearchBy     string `form:"searchBy"`
	SearchString string `form:"searchString"`
	SortBy       string `form:"sortBy"`
	SortOrder    string `form:"sortOrder"`
}

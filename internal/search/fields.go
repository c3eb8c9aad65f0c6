package search

import (
	"strings"

	"github.com/recordsdir/directory-backend/internal/models"
)

// Field identifies a searchable or sortable PersonView field
type Field int

const (
	FieldNone Field = iota
	FieldName
	FieldEmail
	FieldDateOfBirth
	FieldAge
	FieldGender
	FieldCountry
	FieldAddress
	FieldReceiveNewsletters
)

var fieldNames = map[Field]string{
	FieldName:               "name",
	FieldEmail:              "email",
	FieldDateOfBirth:        "dateOfBirth",
	FieldAge:                "age",
	FieldGender:             "gender",
	FieldCountry:            "country",
	FieldAddress:            "address",
	FieldReceiveNewsletters: "receiveNewsletters",
}

// aliases accepted by ParseField, lower-cased. Includes the names used by
// older listing clients.
var fieldAliases = map[string]Field{
	"name":               FieldName,
	"personname":         FieldName,
	"email":              FieldEmail,
	"dateofbirth":        FieldDateOfBirth,
	"dob":                FieldDateOfBirth,
	"age":                FieldAge,
	"gender":             FieldGender,
	"country":            FieldCountry,
	"countryname":        FieldCountry,
	"countryid":          FieldCountry,
	"address":            FieldAddress,
	"receivenewsletters": FieldReceiveNewsletters,
	"receivenewletters":  FieldReceiveNewsletters,
}

// ParseField maps a field name to its tag. Unknown or empty names yield FieldNone.
func ParseField(name string) Field {
	if f, ok := fieldAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return f
	}
	return FieldNone
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return ""
}

// SearchField describes a field offered for searching
type SearchField struct {
	Field Field
	Label string
}

// SearchFields lists the filterable fields in display order
var SearchFields = []SearchField{
	{FieldName, "Person Name"},
	{FieldEmail, "Email"},
	{FieldDateOfBirth, "Date Of Birth"},
	{FieldGender, "Gender"},
	{FieldCountry, "Country"},
	{FieldAddress, "Address"},
}

// extractor returns the searchable text of a field and whether it is set
type extractor func(models.PersonView) (string, bool)

// comparer orders two views ascending on one field
type comparer func(a, b models.PersonView) int

type fieldOps struct {
	extract extractor
	compare comparer
}

var fieldTable = map[Field]fieldOps{
	FieldName: {
		extract: stringExtractor(func(v models.PersonView) string { return v.Name }),
		compare: func(a, b models.PersonView) int { return compareFold(a.Name, b.Name) },
	},
	FieldEmail: {
		extract: stringExtractor(func(v models.PersonView) string { return v.Email }),
		compare: func(a, b models.PersonView) int { return compareFold(a.Email, b.Email) },
	},
	FieldDateOfBirth: {
		extract: func(v models.PersonView) (string, bool) {
			if v.DateOfBirth == nil {
				return "", false
			}
			return v.DateOfBirth.Format(models.DateLayout), true
		},
		compare: func(a, b models.PersonView) int { return compareDates(a.DateOfBirth, b.DateOfBirth) },
	},
	FieldAge: {
		compare: func(a, b models.PersonView) int { return compareInts(a.Age, b.Age) },
	},
	FieldGender: {
		extract: stringExtractor(func(v models.PersonView) string { return v.Gender }),
		compare: func(a, b models.PersonView) int { return compareFold(a.Gender, b.Gender) },
	},
	FieldCountry: {
		extract: func(v models.PersonView) (string, bool) {
			if v.CountryName == nil || *v.CountryName == "" {
				return "", false
			}
			return *v.CountryName, true
		},
		compare: func(a, b models.PersonView) int { return compareOptionalFold(a.CountryName, b.CountryName) },
	},
	FieldAddress: {
		extract: stringExtractor(func(v models.PersonView) string { return v.Address }),
		compare: func(a, b models.PersonView) int { return compareFold(a.Address, b.Address) },
	},
	FieldReceiveNewsletters: {
		compare: func(a, b models.PersonView) int { return compareBools(a.ReceiveNewsletters, b.ReceiveNewsletters) },
	},
}

func stringExtractor(get func(models.PersonView) string) extractor {
	return func(v models.PersonView) (string, bool) {
		s := get(v)
		return s, s != ""
	}
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareOptionalFold(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return compareFold(*a, *b)
}

func compareDates(a, b *models.Date) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func compareInts(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

package directory

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// messages keyed by field then rule tag
var ruleMessages = map[string]map[string]string{
	"name": {
		"required": "Person Name can't be blank",
	},
	"email": {
		"required": "Email can't be blank",
		"email":    "Email value should be a valid email",
	},
	"gender": {
		"required": "Gender can't be blank",
		"oneof":    "Gender should be one of Male, Female, Other",
	},
	"countryId": {
		"required": "Please select a country",
	},
}

// Validator checks request structs against their validate tags
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate returns nil or ValidationErrors. It has no side effects.
func (v *Validator) Validate(req any) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, &ValidationError{
			Field:   fe.Field(),
			Message: messageFor(fe.Field(), fe.Tag()),
		})
	}
	return out
}

func messageFor(field, tag string) string {
	if msgs, ok := ruleMessages[field]; ok {
		if msg, ok := msgs[tag]; ok {
			return msg
		}
	}
	return field + " failed " + tag + " rule"
}

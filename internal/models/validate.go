package models

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

/*
RegisterWithValidator registers the custom draft validations.

	notblank    - string must contain something other than whitespace
	application - string must name a known Application
*/
func RegisterWithValidator(v *validator.Validate) error {
	if err := v.RegisterValidation("notblank", validateNotBlank); err != nil {
		return err
	}

	if err := v.RegisterValidation("application", validateApplication); err != nil {
		return err
	}

	// report json field names instead of Go ones
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return nil
}

// NewValidator returns a validator with the draft validations registered.
func NewValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterWithValidator(v); err != nil {
		return nil, err
	}
	return v, nil
}

func validateNotBlank(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateApplication(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	_, ok := ParseApplication(fl.Field().String())
	return ok
}

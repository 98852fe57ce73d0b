package utils

import (
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// GetValidator returns the shared validator with the project's custom tags
// registered. "farmid" checks the CC_YYYY_<uuid> farm identifier format.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("farmid", func(fl validator.FieldLevel) bool {
			return IsValidFarmId(fl.Field().String())
		})
	})
	return validate
}

func ValidateStruct(s any) error {
	return GetValidator().Struct(s)
}

// ProcessValidationErrors flattens validator errors into field -> failed tag.
// Non-validation errors yield a nil map.
func ProcessValidationErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

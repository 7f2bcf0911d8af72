package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"hydrosnap/internal/types"
)

// Validator checks request DTOs with go-playground struct tags and maps the
// first failure to a validation_* AppError.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator that reports JSON field names.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// ValidateStruct returns nil or a *types.AppError describing the first
// failing field.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return types.NewAppError(types.ErrCodeValidationMissingField, "invalid request", err)
	}

	fe := verrs[0]
	details := map[string]any{"field": fe.Field()}
	switch fe.Tag() {
	case "required":
		return types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
			fmt.Sprintf("%s is required", fe.Field()), nil, details)
	case "latitude":
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidLat,
			"latitude must be within [-90, 90]", nil, details)
	case "longitude":
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidLon,
			"longitude must be within [-180, 180]", nil, details)
	case "max":
		if fe.Kind() == reflect.Slice {
			return types.NewAppErrorWithDetails(types.ErrCodeValidationBatchSize,
				fmt.Sprintf("%s accepts at most %s items", fe.Field(), fe.Param()), nil, details)
		}
	}
	return types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
		fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()), nil, details)
}

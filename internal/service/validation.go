package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gaming-library/internal/auth"
	"github.com/gaming-library/internal/domain"
	"github.com/go-playground/validator/v10"
)

var collectionNamePattern = regexp.MustCompile(`^[A-Za-z0-9 ]+$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report JSON field names
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = validate.RegisterValidation("collection_name", func(fl validator.FieldLevel) bool {
			return collectionNamePattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("password_bytes", func(fl validator.FieldLevel) bool {
			return len(fl.Field().String()) <= auth.MaxPasswordBytes
		})
	})
	return validate
}

// validateRequest checks s against its struct tags and reports the first
// failing field as a *domain.ValidationError.
func validateRequest(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &domain.ValidationError{Reason: err.Error()}
	}
	fe := fieldErrs[0]
	return &domain.ValidationError{Field: fe.Field(), Reason: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "collection_name":
		return "may only contain letters, digits and spaces"
	case "password_bytes":
		return fmt.Sprintf("must be at most %d bytes", auth.MaxPasswordBytes)
	}
	return "failed " + fe.Tag() + " validation"
}

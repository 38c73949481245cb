// Package validation holds the validator shared by every form struct, with the RUT and
// catalog rules registered.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
)

const birthdateLayout = "2006-01-02"

var (
	once     sync.Once
	instance *validator.Validate
)

func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		mustRegister(v, "rut", func(fl validator.FieldLevel) bool {
			return ValidRUT(fl.Field().String())
		})
		mustRegister(v, "category", func(fl validator.FieldLevel) bool {
			return domain.Category(fl.Field().String()).Valid()
		})
		mustRegister(v, "adult", func(fl validator.FieldLevel) bool {
			return IsAdult(fl.Field().String(), time.Now())
		})
		instance = v
	})
	return instance
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Struct validates s and reports the first failing field as a *domain.ValidationError.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	return &domain.ValidationError{Field: fe.Field(), Message: message(fe)}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "email":
		return "must be a valid email"
	case "rut":
		return "must be a valid RUT"
	case "adult":
		return "must be at least 18 years old"
	case "category":
		return "must be a known category"
	case "eqfield":
		return "must match " + strings.ToLower(fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	}
	return "is invalid"
}

// IsAdult reports whether a YYYY-MM-DD birthdate is at least 18 years before now.
func IsAdult(birthdate string, now time.Time) bool {
	born, err := time.Parse(birthdateLayout, birthdate)
	if err != nil {
		return false
	}
	return !born.AddDate(18, 0, 0).After(now)
}

// Package validation wraps go-playground/validator with the project's
// error type and JSON field naming.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	pkgerrors "strategy-editor/pkg/errors"
)

// Validator validates structs by their `validate` tags
type Validator struct {
	validate *validator.Validate
}

var (
	instance *Validator
	once     sync.Once
)

// GetValidator returns the shared validator instance
func GetValidator() *Validator {
	once.Do(func() {
		instance = NewValidator()
	})
	return instance
}

// NewValidator creates a validator that reports JSON field names
func NewValidator() *Validator {
	v := &Validator{validate: validator.New()}
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.validate.RegisterValidation("operator", operatorValidator)
	_ = v.validate.RegisterValidation("timeframe", timeframeValidator)
	return v
}

// Validate checks i and returns a validation AppError listing every failed
// field in its details.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.NewValidationError(err.Error())
	}

	messages := make([]string, 0, len(verrs))
	appErr := pkgerrors.NewValidationError("")
	for _, e := range verrs {
		msg := fmt.Sprintf("%s: %s", e.Field(), message(e.Tag(), e.Param()))
		messages = append(messages, msg)
		appErr.WithDetail(e.Field(), message(e.Tag(), e.Param()))
	}
	appErr.Message = strings.Join(messages, "; ")
	return appErr
}

// Var validates a single value against tag
func (v *Validator) Var(field interface{}, tag string) error {
	if err := v.validate.Var(field, tag); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func message(tag, param string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "min":
		return fmt.Sprintf("must be at least %s", param)
	case "max":
		return fmt.Sprintf("must be at most %s", param)
	case "gt":
		return fmt.Sprintf("must be greater than %s", param)
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", param)
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", param)
	case "ltfield":
		return fmt.Sprintf("must be less than %s", param)
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(param, " ", ", "))
	case "operator":
		return "must be one of: >, <, >=, <=, ==, !="
	case "timeframe":
		return "must be one of: 1m, 5m, 15m, 1h, 4h, 1d"
	case "uuid":
		return "must be a valid UUID"
	default:
		return fmt.Sprintf("failed %s validation", tag)
	}
}

var operators = map[string]bool{">": true, "<": true, ">=": true, "<=": true, "==": true, "!=": true}

func operatorValidator(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || operators[s]
}

var timeframes = map[string]bool{"1m": true, "5m": true, "15m": true, "1h": true, "4h": true, "1d": true}

func timeframeValidator(fl validator.FieldLevel) bool {
	return timeframes[fl.Field().String()]
}

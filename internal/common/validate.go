package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	validator "github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator. Field errors are reported with their JSON names.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// FieldDetail is one field level rejection.
type FieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DecodeJSON reads a size limited JSON body into dst and validates it.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, limit int64) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(dst); err != nil {
		return NewAppError("INVALID_JSON", "request body is not valid JSON", http.StatusBadRequest, err)
	}
	return ValidateStruct(dst)
}

// ValidateStruct runs the shared validator and converts failures into a validation AppError.
func ValidateStruct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewAppError("VALIDATION_ERROR", "invalid request", http.StatusUnprocessableEntity, err)
	}
	details := make([]FieldDetail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, FieldDetail{Field: fieldPath(fe), Message: describe(fe)})
	}
	return NewValidationError("invalid request", details)
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "uuid", "uuid4":
		return "must be a valid UUID"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

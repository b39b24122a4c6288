package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// FieldError is one field-level violation in a 400 response body.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormatBindingError turns a Gin binding failure into the machine-readable
// per-field violation list. Malformed JSON and type mismatches collapse into a
// single body-level entry.
func FormatBindingError(err error) []FieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, FieldError{
				Field:   fieldName(fe),
				Message: messageFor(fe),
			})
		}
		return out
	}

	var jsonErr *json.UnmarshalTypeError
	if errors.As(err, &jsonErr) {
		return []FieldError{{
			Field:   jsonErr.Field,
			Message: fmt.Sprintf("must be of type %s", jsonErr.Type.String()),
		}}
	}

	return []FieldError{{Field: "body", Message: "invalid request body"}}
}

func fieldName(fe validator.FieldError) string {
	// StructNamespace is Request.Field; drop the struct prefix and use the
	// snake_case form clients sent.
	name := fe.Field()
	return toSnake(name)
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.Join(strings.Fields(fe.Param()), ", "))
	case "uuid":
		return "must be a valid identifier"
	case "email":
		return "must be a valid email address"
	case "datetime":
		return "must be a valid date-time string"
	default:
		return fmt.Sprintf("failed validation on %q", fe.Tag())
	}
}

// ParseOptionalUUID parses an optional string identifier. Empty input yields
// nil without error.
func ParseOptionalUUID(field, value string) (*uuid.UUID, []FieldError) {
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, []FieldError{{Field: field, Message: "must be a valid identifier"}}
	}
	return &id, nil
}

// ParseUUID parses a required string identifier.
func ParseUUID(field, value string) (uuid.UUID, []FieldError) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, []FieldError{{Field: field, Message: "must be a valid identifier"}}
	}
	return id, nil
}

package stick

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValidationError is returned by Validate and collects a message per invalid
// field. Validation errors are safe to be presented to the client.
type ValidationError struct {
	Fields map[string]string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	// sort fields
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	// join messages
	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}

	return strings.Join(messages, "; ")
}

// AsValidationError will return the validation error from an error chain.
func AsValidationError(err error) *ValidationError {
	var valErr *ValidationError
	errors.As(err, &valErr)
	return valErr
}

// Invalid is a short-hand to construct a validation error for a single field.
func Invalid(field, message string) error {
	return &ValidationError{
		Fields: map[string]string{
			field: message,
		},
	}
}

// Rule checks a value and returns a message if the value is invalid.
type Rule func(value interface{}) string

// Validator collects field errors.
type Validator struct {
	fields map[string]string
}

// Value will run the provided rules against the value and record the first
// failing rule for the field.
func (v *Validator) Value(field string, value interface{}, rules ...Rule) {
	// skip already failed fields
	if _, ok := v.fields[field]; ok {
		return
	}

	// run rules
	for _, rule := range rules {
		msg := rule(value)
		if msg != "" {
			v.Report(field, msg)
			return
		}
	}
}

// Report will record a message for the provided field.
func (v *Validator) Report(field, message string) {
	v.fields[field] = message
}

// Validate will run the provided function with a validator and return a
// validation error if any field has been reported.
func Validate(fn func(v *Validator)) error {
	// prepare validator
	v := &Validator{
		fields: map[string]string{},
	}

	// run validation
	fn(v)

	// check fields
	if len(v.fields) > 0 {
		return &ValidationError{
			Fields: v.fields,
		}
	}

	return nil
}

// IsNotZero checks that the value is not the zero value of its type.
func IsNotZero(value interface{}) string {
	if value == nil || reflect.ValueOf(value).IsZero() {
		return "missing"
	}

	return ""
}

// IsMinLen checks that a string has at least the specified number of
// characters.
func IsMinLen(min int) Rule {
	return func(value interface{}) string {
		if utf8.RuneCountInString(str(value)) < min {
			return fmt.Sprintf("must have at least %d characters", min)
		}

		return ""
	}
}

// IsMaxLen checks that a string has at most the specified number of
// characters.
func IsMaxLen(max int) Rule {
	return func(value interface{}) string {
		if utf8.RuneCountInString(str(value)) > max {
			return fmt.Sprintf("must have at most %d characters", max)
		}

		return ""
	}
}

// IsEmail checks that a string is a valid email address.
func IsEmail(value interface{}) string {
	if !govalidator.IsEmail(str(value)) {
		return "invalid email format"
	}

	return ""
}

// IsURL checks that a non-empty string is a valid URL or absolute path.
func IsURL(value interface{}) string {
	s := str(value)
	if s != "" && !strings.HasPrefix(s, "/") && !govalidator.IsURL(s) {
		return "invalid url"
	}

	return ""
}

// IsHex checks that a string is a valid hex encoded object id.
func IsHex(value interface{}) string {
	if _, err := primitive.ObjectIDFromHex(str(value)); err != nil {
		return "invalid id"
	}

	return ""
}

func str(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case *string:
		if v != nil {
			return *v
		}
	}

	return ""
}

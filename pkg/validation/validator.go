package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// MaxIDLength bounds element ids accepted from untrusted input
	MaxIDLength = 256

	// Element ids in net files never contain whitespace or quotes
	idPattern = regexp.MustCompile(`^[^\s"'<>&]+$`)
)

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("elementid", func(fl validator.FieldLevel) bool {
		return ValidateElementID(fl.Field().String()) == nil
	})
}

// Struct validates a value using its `validate` struct tags and returns
// the first failure in a user-friendly format.
func Struct(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	return formatValidationError(validate.Struct(v))
}

// ValidateElementID validates a junction, edge or signal id
func ValidateElementID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("id '%s' exceeds maximum length of %d characters", id, MaxIDLength)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("id '%s' contains whitespace, quotes or markup characters", id)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Namespace()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min", "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max", "lte":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s], got %v", field, param, e.Value())
		case "elementid":
			return fmt.Errorf("%s: invalid element id %q", field, e.Value())
		case "gtefield":
			return fmt.Errorf("%s: must not be below %s", field, param)
		case "ltefield":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}

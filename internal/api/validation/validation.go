// Package validation provides request validation and custom validators.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"

	"github.com/tablebite/ordering/internal/api/response"
	"github.com/tablebite/ordering/internal/huberrors"
	"github.com/tablebite/ordering/internal/models"
)

const (
	phoneDigits   = 10
	minCardDigits = 13
	maxCardDigits = 16
)

var (
	// validate and decoder are safe for concurrent use once init has finished
	// registering validators. Never register anything after init.
	validate *validator.Validate
	decoder  *form.Decoder
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	decoder = form.NewDecoder()

	// Report JSON names ("firstName") rather than Go field names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		if name == "" {
			name, _, _ = strings.Cut(f.Tag.Get("form"), ",")
		}

		return name
	})

	for tag, fn := range map[string]validator.Func{
		"no_null_bytes": validateNoNullBytes,
		"phone_digits":  validatePhoneDigits,
		"card_digits":   validateCardDigits,
	} {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			slog.Error("Failed to register validator", "tag", tag, "error", err)
		}
	}
}

// ValidateStruct validates a struct using go-playground/validator.
func ValidateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationErrors(err)
	}

	return nil
}

// validationFailure keeps the field errors behind a readable message.
type validationFailure struct {
	fields validator.ValidationErrors
}

func (e *validationFailure) Error() string {
	messages := make([]string, 0, len(e.fields))
	for _, fieldError := range e.fields {
		messages = append(messages, formatFieldError(fieldError))
	}

	return "validation failed: " + strings.Join(messages, "; ")
}

func (e *validationFailure) Unwrap() error { return e.fields }

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return &validationFailure{fields: validationErrors}
	}

	return err
}

func formatFieldError(fieldError validator.FieldError) string {
	field := fieldPath(fieldError)

	switch fieldError.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fieldError.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fieldError.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fieldError.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fieldError.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fieldError.Param())
	case "phone_digits":
		return fmt.Sprintf("%s must contain exactly %d digits", field, phoneDigits)
	case "card_digits":
		return fmt.Sprintf("%s must contain %d to %d digits", field, minCardDigits, maxCardDigits)
	case "no_null_bytes":
		return field + " must not contain NULL bytes"
	default:
		return field + " is invalid"
	}
}

// fieldPath drops the top-level struct name: "CreateOrderRequest.items[0].quantity" -> "items[0].quantity".
func fieldPath(fieldError validator.FieldError) string {
	ns := fieldError.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}

	return fieldError.Field()
}

// GetValidationErrorDetails extracts field-level error details for Problem Details.
func GetValidationErrorDetails(err error) []response.ErrorDetail {
	var details []response.ErrorDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldError := range validationErrors {
			detail := response.ErrorDetail{
				Location: fieldPath(fieldError),
				Message:  formatFieldError(fieldError),
			}

			// Card numbers are never echoed back.
			if fieldError.Tag() != "card_digits" {
				detail.Value = fieldError.Value()
			}

			details = append(details, detail)
		}

		return details
	}

	var vErr *huberrors.ValidationError
	if errors.As(err, &vErr) {
		details = append(details, response.ErrorDetail{Location: vErr.Field, Message: vErr.Message})
	}

	return details
}

// RespondValidationError writes a 400 with field details. It accepts validator
// errors and *huberrors.ValidationError.
func RespondValidationError(w http.ResponseWriter, err error) {
	response.RespondProblem(w, response.ProblemDetails{
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: err.Error(),
		Errors: GetValidationErrorDetails(err),
	})
}

// ErrEmptyBody is returned by DecodeJSON when the request has no body.
var ErrEmptyBody = errors.New("request body is empty")

// DecodeJSON decodes a JSON request body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}

		return fmt.Errorf("invalid request body: %w", err)
	}

	return nil
}

// DecodeAndValidateJSON decodes a JSON body and validates it in one step.
func DecodeAndValidateJSON(r *http.Request, dst any) error {
	if err := DecodeJSON(r, dst); err != nil {
		return err
	}

	return ValidateStruct(dst)
}

// DecodeQueryParams decodes URL query parameters into a struct.
func DecodeQueryParams(r *http.Request, dst any) error {
	if err := decoder.Decode(dst, r.URL.Query()); err != nil {
		return fmt.Errorf("failed to decode query parameters: %w", err)
	}

	return nil
}

// ValidateAndDecodeQueryParams decodes and validates query parameters in one step.
func ValidateAndDecodeQueryParams(r *http.Request, dst any) error {
	if err := DecodeQueryParams(r, dst); err != nil {
		return err
	}

	return ValidateStruct(dst)
}

// IsValidationError reports whether err came from struct validation.
func IsValidationError(err error) bool {
	var validationErrors validator.ValidationErrors

	return errors.As(err, &validationErrors) || errors.Is(err, huberrors.ErrValidation)
}

// validateNoNullBytes checks that a string or *string does not contain NULL bytes.
func validateNoNullBytes(fl validator.FieldLevel) bool {
	field := fl.Field()

	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return true
		}

		field = field.Elem()
	}

	if field.Kind() != reflect.String {
		return true
	}

	return !strings.Contains(field.String(), "\x00")
}

func validatePhoneDigits(fl validator.FieldLevel) bool {
	digits, ok := models.StripPhoneOrCardSeparators(fl.Field().String())

	return ok && len(digits) == phoneDigits
}

func validateCardDigits(fl validator.FieldLevel) bool {
	digits, ok := models.StripPhoneOrCardSeparators(fl.Field().String())

	return ok && len(digits) >= minCardDigits && len(digits) <= maxCardDigits
}

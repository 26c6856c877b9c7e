package metadata

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field names used in ValidationErrors.
const (
	FieldName       = "name"
	FieldParent     = "parent"
	FieldVisibility = "visibility"
	FieldContent    = "content"
)

// Field error codes.
const (
	CodeBlank         = "blank"
	CodeTooLong       = "too-long"
	CodeInvalid       = "invalid"
	CodeAlreadyExists = "already-exists"
	CodeTooLarge      = "too-large"
	CodeNotPermitted  = "not-permitted"
)

// MaxNameLength is the longest node name accepted, in characters.
const MaxNameLength = 256

// reservedNameChars may not appear in folder or file names.
const reservedNameChars = `/:*?"<>|`

// FieldError is a single problem attached to an input field.
type FieldError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationErrors collects field-tagged problems for one request. It is
// returned as an error only when at least one problem was recorded.
type ValidationErrors struct {
	fields map[string][]FieldError
}

// NewValidationErrors returns an empty collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{fields: make(map[string][]FieldError)}
}

// Add records a problem for field.
func (v *ValidationErrors) Add(field, code, message string) {
	if v.fields == nil {
		v.fields = make(map[string][]FieldError)
	}
	v.fields[field] = append(v.fields[field], FieldError{Code: code, Message: message})
}

// Merge copies every problem of other into v.
func (v *ValidationErrors) Merge(other *ValidationErrors) {
	if other == nil {
		return
	}
	for field, errs := range other.fields {
		for _, e := range errs {
			v.Add(field, e.Code, e.Message)
		}
	}
}

func (v *ValidationErrors) IsEmpty() bool {
	return v == nil || len(v.fields) == 0
}

// Has reports whether field carries a problem with the given code.
func (v *ValidationErrors) Has(field, code string) bool {
	if v == nil {
		return false
	}
	for _, e := range v.fields[field] {
		if e.Code == code {
			return true
		}
	}
	return false
}

// Fields returns a copy of the problems keyed by field.
func (v *ValidationErrors) Fields() map[string][]FieldError {
	out := make(map[string][]FieldError, len(v.fields))
	for field, errs := range v.fields {
		out[field] = append([]FieldError(nil), errs...)
	}
	return out
}

// OrNil returns v as an error, or nil when nothing was recorded.
func (v *ValidationErrors) OrNil() error {
	if v.IsEmpty() {
		return nil
	}
	return v
}

func (v *ValidationErrors) Error() string {
	names := make([]string, 0, len(v.fields))
	for field := range v.fields {
		names = append(names, field)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, field := range names {
		for _, e := range v.fields[field] {
			parts = append(parts, fmt.Sprintf("%s: %s", field, e.Code))
		}
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// AsValidationErrors extracts a *ValidationErrors from err.
func AsValidationErrors(err error) (*ValidationErrors, bool) {
	var v *ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// ============================================================================
// Name validation
// ============================================================================

var validate *validator.Validate

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("nodename", validateNodeName); err != nil {
		panic(fmt.Sprintf("failed to register nodename validator: %v", err))
	}
}

func validateNodeName(fl validator.FieldLevel) bool {
	return !strings.ContainsAny(fl.Field().String(), reservedNameChars)
}

// ValidateName checks a folder or file name and records problems under
// FieldName. It returns true when the name is acceptable.
func ValidateName(name string, errs *ValidationErrors) bool {
	err := validate.Var(name, fmt.Sprintf("required,max=%d,nodename", MaxNameLength))
	if err == nil {
		return true
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		errs.Add(FieldName, CodeInvalid, "Is invalid")
		return false
	}

	switch fieldErrs[0].Tag() {
	case "required":
		errs.Add(FieldName, CodeBlank, "Can't be blank")
	case "max":
		errs.Add(FieldName, CodeTooLong, fmt.Sprintf("Must be at most %d characters", MaxNameLength))
	default:
		errs.Add(FieldName, CodeInvalid, "Is invalid")
	}
	return false
}

// NamesCollide reports whether two node names occupy the same slot in a
// folder's namespace.
func NamesCollide(a, b string) bool {
	return strings.EqualFold(a, b)
}

package domain

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Candidate field names as reported in a ValidationError.
const (
	FieldName        = "name"
	FieldType        = "type"
	FieldInstitution = "institution"
	FieldPermissions = "permissions"
	FieldEmail       = "email"
)

var requiredMessages = map[string]string{
	FieldName:        "Nome é obrigatório",
	FieldType:        "Tipo é obrigatório",
	FieldInstitution: "Instituição é obrigatória",
	FieldPermissions: "Permissões são obrigatórias",
	FieldEmail:       "Email é obrigatório",
}

// ValidationError maps a candidate field name to the message shown next to it.
type ValidationError map[string]string

func (ve ValidationError) Error() string {
	keys := make([]string, 0, len(ve))
	for k := range ve {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+ve[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsValidationError extracts the field map from err, if err carries one.
func AsValidationError(err error) (ValidationError, bool) {
	var ve ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

var presence = newPresenceValidator()

func newPresenceValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// option rejects a selection outside its option list; Valid reports that.
	if err := v.RegisterValidation("option", func(fl validator.FieldLevel) bool {
		sel, ok := fl.Field().Interface().(interface{ Valid() bool })
		return ok && sel.Valid()
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks that every field of c is present. Only presence is checked:
// a non-empty string for text fields and a made selection for type and
// permissions. A selection outside the option list counts as none made.
// The returned map is empty when c is valid.
func Validate(c Candidate) ValidationError {
	errs := ValidationError{}

	err := presence.Struct(c)
	if err == nil {
		return errs
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errs
	}
	for _, fe := range fieldErrs {
		if msg, ok := requiredMessages[fe.Field()]; ok {
			errs[fe.Field()] = msg
		}
	}
	return errs
}

package services

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"alumni-server/utils/errors"

	"github.com/go-playground/validator/v10"
)

// validate caches struct metadata, so a single instance is shared.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names, which is what clients send.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

var fieldMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email",
}

// validateInput runs struct validation and folds failures into ErrValidation.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.ErrValidation
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := fieldMessages[fe.Tag()]
		switch {
		case ok:
		case fe.Tag() == "min" || fe.Tag() == "max":
			msg = fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
		default:
			msg = "is invalid"
		}
		parts = append(parts, fmt.Sprintf("%s %s", fe.Field(), msg))
	}
	return errors.ErrValidation.WithMessage(strings.Join(parts, "; "))
}

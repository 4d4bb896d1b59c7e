// AngelaMos | 2026
// validation.go

package core

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// EmailPattern is the account email shape: word characters separated by
// single dots or dashes, an @, then dot-separated domain labels ending in
// one or more 2-3 character segments.
var EmailPattern = regexp.MustCompile(
	`^\w+([\.-]?\w+)*@\w+([\.-]?\w+)*(\.\w{2,3})+$`,
)

func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	//nolint:errcheck // tag name is static and the func is non-nil
	_ = v.RegisterValidation("emailpattern", func(fl validator.FieldLevel) bool {
		return EmailPattern.MatchString(fl.Field().String())
	})

	//nolint:errcheck // tag name is static and the func is non-nil
	_ = v.RegisterValidation("passwordbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxPasswordBytes
	})

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

func FormatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}

	return strings.Join(msgs, "; ")
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email", "emailpattern":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	case "passwordbytes":
		return passwordTooLong(field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func passwordTooLong(field string) string {
	return fmt.Sprintf("%s must be at most %d bytes long", field, MaxPasswordBytes)
}

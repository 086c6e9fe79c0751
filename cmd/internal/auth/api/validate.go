package authapi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"pedeai/cmd/identity"
)

// newValidator reports field errors by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registered once on a fresh instance; the error only reports an empty tag.
	_ = v.RegisterValidation("cpf_cnpj", func(fl validator.FieldLevel) bool {
		return identity.ValidCPFCNPJ(fl.Field().String())
	})
	return v
}

// validationMessage turns the first field error into a short client-facing message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "cpf_cnpj":
		return fmt.Sprintf("%s must be a valid CPF or CNPJ", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

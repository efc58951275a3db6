package customer

import (
	"reflect"
	"strings"

	pkgerrors "github.com/angelmondragon/asala-storefront/pkg/errors"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Validate enforces the submission rules: name, contact and a YYYY-MM-DD
// delivery date are required. Whitespace-only values count as missing.
func Validate(details Details) error {
	trimmed := Details{
		Name:         strings.TrimSpace(details.Name),
		Contact:      strings.TrimSpace(details.Contact),
		DeliveryDate: strings.TrimSpace(details.DeliveryDate),
		Notes:        details.Notes,
	}
	err := validate.Struct(trimmed)
	if err == nil {
		return nil
	}
	if errs, ok := err.(validator.ValidationErrors); ok {
		fields := map[string]string{}
		for _, fe := range errs {
			fields[fe.Field()] = validationMessage(fe)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "customer details incomplete").WithDetails(fields)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "customer details incomplete")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "datetime":
		return "must be a date formatted " + fe.Param()
	}
	return "is invalid"
}

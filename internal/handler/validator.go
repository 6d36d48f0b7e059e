package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10" // struct tag validation for request bodies
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/donation-identity/internal/service"
	"github.com/iliyamo/donation-identity/internal/utils"
)

// RequestValidator plugs go-playground/validator into echo. Besides the
// built-in tags it understands "phone" (09XXXXXXXXX) and "nationalid"
// (ten digits). Failures come back as *service.ValidationError so the
// error mapper answers 400.
type RequestValidator struct {
	v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	// report json names, not Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return utils.ValidPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("nationalid", func(fl validator.FieldLevel) bool {
		return utils.ValidNationalID(fl.Field().String())
	})
	return &RequestValidator{v: v}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		return &service.ValidationError{Reason: describe(fields[0])}
	}
	return &service.ValidationError{Reason: err.Error()}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "phone":
		return fe.Field() + " must match 09XXXXXXXXX"
	case "nationalid":
		return fe.Field() + " must be 10 digits"
	case "email":
		return fe.Field() + " must be a valid email"
	case "datetime":
		return fe.Field() + " must be formatted " + fe.Param()
	case "len":
		return fmt.Sprintf("%s must be %s characters", fe.Field(), fe.Param())
	case "gt", "gte":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	}
	return fe.Field() + " is invalid"
}

// bind decodes the body into req and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return &service.ValidationError{Reason: "invalid body"}
	}
	return c.Validate(req)
}

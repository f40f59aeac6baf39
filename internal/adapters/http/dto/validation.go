package dto

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Request problems. HTTP handlers answer ErrBinding with BAD_REQUEST and
// ErrValidation with VALIDATION_ERROR plus field details.
var (
	ErrValidation = errors.New("validation failed")
	ErrBinding    = errors.New("binding failed")
)

// quoteIDPattern accepts corpus ids such as "q001", "qt-abc123" and "default".
var quoteIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]{0,127}$`)

// Validator returns the shared validator. Fields are reported by their json
// name, falling back to the form name for query structs.
var Validator = sync.OnceValue(func() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"json", "form"} {
			name, _, _ := strings.Cut(f.Tag.Get(key), ",")
			if name == "-" {
				return ""
			}

			if name != "" {
				return name
			}
		}

		return f.Name
	})

	_ = v.RegisterValidation("quoteid", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || quoteIDPattern.MatchString(s)
	})

	return v
})

// Validate runs the validate tags of v.
func Validate(v any) error {
	if err := Validator().Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return nil
}

// BindAndValidate decodes the JSON body into v and validates it.
func BindAndValidate(c *gin.Context, v any) error {
	return bind(c, binding.JSON, v)
}

// BindQueryAndValidate decodes the query string into v and validates it.
func BindQueryAndValidate(c *gin.Context, v any) error {
	return bind(c, binding.Query, v)
}

func bind(c *gin.Context, b binding.Binding, v any) error {
	if err := c.ShouldBindWith(v, b); err != nil {
		return fmt.Errorf("%w: %w", ErrBinding, err)
	}

	return Validate(v)
}

// ValidationErrors maps each failing field to a message. It is empty when
// err carries no field errors.
func ValidationErrors(err error) map[string]string {
	out := map[string]string{}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return out
	}

	for _, fe := range fieldErrs {
		out[fe.Field()] = validationMessage(fe)
	}

	return out
}

// IsValidationError reports whether err carries field errors.
func IsValidationError(err error) bool {
	var fieldErrs validator.ValidationErrors
	return errors.As(err, &fieldErrs)
}

func validationMessage(fe validator.FieldError) string {
	p := fe.Param()

	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "quoteid":
		return "must be a valid quote id"
	case "oneof":
		return "must be one of: " + p
	case "min", "max":
		return minMaxMessage(fe.Tag(), p, fe.Kind())
	case "gte":
		return "must be greater than or equal to " + p
	case "lte":
		return "must be less than or equal to " + p
	default:
		return "failed validation: " + fe.Tag()
	}
}

// minMaxMessage counts characters for strings and compares values otherwise.
func minMaxMessage(tag, param string, kind reflect.Kind) string {
	bound := "at least "
	if tag == "max" {
		bound = "at most "
	}

	if kind == reflect.String {
		return "must be " + bound + param + " characters"
	}

	return "must be " + bound + param
}

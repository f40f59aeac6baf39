package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their koanf keys so messages match the
// names used in YAML files and environment variables.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}

		return name
	})

	v.RegisterStructValidation(validateStorage, StorageConfig{})
	v.RegisterStructValidation(validateCache, CacheConfig{})

	return v
}

// Validate checks tags, cross-field rules and the selector time zone.
// All problems are reported together.
func (c *Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}

		for _, fe := range fieldErrs {
			problems = append(problems, describe(fe))
		}
	}

	if _, err := c.Selector.Location(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) == 0 {
		return nil
	}

	return fmt.Errorf("config validation failed:\n  %s", strings.Join(problems, "\n  "))
}

// validateStorage rejects a redis URL paired with a non-redis driver, which
// usually means the driver override was forgotten.
func validateStorage(sl validator.StructLevel) {
	s, _ := sl.Current().Interface().(StorageConfig)
	if s.RedisURL != "" && s.Driver != "redis" {
		sl.ReportError(s.RedisURL, "redis_url", "RedisURL", "redis_driver", s.Driver)
	}
}

// validateCache rejects a negative TTL.
func validateCache(sl validator.StructLevel) {
	c, _ := sl.Current().Interface().(CacheConfig)
	if c.TTL < 0 {
		sl.ReportError(c.TTL, "ttl", "TTL", "nonnegative", "")
	}
}

func describe(fe validator.FieldError) string {
	field := keyPath(fe.Namespace())
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, conditionKey(param))
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "url":
		return field + " must be a valid URL"
	case "datetime":
		return fmt.Sprintf("%s must match the layout %s", field, param)
	case "redis_driver":
		return fmt.Sprintf("%s is only used with storage.driver=redis (got %q)", field, param)
	case "nonnegative":
		return field + " must not be negative"
	default:
		return fmt.Sprintf("%s failed %q", field, fe.Tag())
	}
}

// keyPath turns "Config.storage.redis_url" into "storage.redis_url".
func keyPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}

	return namespace
}

// conditionKey renders a required_if param such as "Enabled true" as
// "enabled=true".
func conditionKey(param string) string {
	field, value, ok := strings.Cut(param, " ")
	if !ok {
		return strings.ToLower(param)
	}

	return strings.ToLower(field) + "=" + value
}

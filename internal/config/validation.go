package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"scmcicd/pkg/logging"
)

var settingsValidator = newSettingsValidator()

func newSettingsValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
	})
	_ = v.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		_, err := logging.ParseLevel(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks every setting except the credentials, which are only needed
// once a client is built (see ValidateCredentials).
func (s Settings) Validate() error {
	return collect(settingsValidator.StructExcept(s, credentialFields...))
}

// ValidateCredentials checks that the service account credentials are present.
func (s Settings) ValidateCredentials() error {
	return collect(settingsValidator.StructPartial(s, credentialFields...))
}

func collect(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := &ConfigurationErrorCollection{}
	for _, fe := range fieldErrs {
		errs.Add(ConfigurationError{
			Source:      SourceSettings,
			Key:         fe.Field(),
			ErrorType:   "validation",
			Message:     describe(fe),
			Suggestions: suggest(fe.Field()),
		})
	}
	return errs
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "numeric":
		return "must be numeric"
	case "url":
		return fmt.Sprintf("must be an absolute URL, got %q", fe.Value())
	case "loglevel":
		return fmt.Sprintf("unknown log level %q (valid: DEBUG, INFO, WARN, ERROR)", fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

func suggest(key string) []string {
	env := EnvName(key)
	switch key {
	case "client_id", "client_secret", "tsg_id":
		return []string{
			fmt.Sprintf("Set %s in %s", key, SecretsFileName),
			fmt.Sprintf("Or export %s", env),
		}
	default:
		return []string{fmt.Sprintf("Check %s in %s or the %s environment variable", key, SettingsFileName, env)}
	}
}

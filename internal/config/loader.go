package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"scmcicd/pkg/logging"
)

const (
	// SettingsFileName holds shared, non-secret settings.
	SettingsFileName = "settings.yaml"
	// SecretsFileName holds local credentials and overrides everything else.
	SecretsFileName = ".secrets.yaml"
	// EnvPrefix prefixes every environment variable read.
	EnvPrefix = "SCM_"
)

// lookupEnv is swapped out in tests.
var lookupEnv = os.LookupEnv

// Load resolves settings from configPath. Later layers override earlier ones:
// defaults, then settings.yaml, then SCM_* environment variables, then
// .secrets.yaml. Missing files are skipped. The result is validated with
// Validate; credentials are not checked here.
func Load(configPath string) (Settings, error) {
	settings := DefaultSettings()

	if err := applyFile(&settings, filepath.Join(configPath, SettingsFileName), SourceSettings); err != nil {
		return Settings{}, err
	}
	if err := applyEnv(&settings); err != nil {
		return Settings{}, err
	}
	if err := applyFile(&settings, filepath.Join(configPath, SecretsFileName), SourceSecrets); err != nil {
		return Settings{}, err
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// EnvName returns the environment variable that sets key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

// Keys returns every setting key in declaration order.
func Keys() []string {
	t := reflect.TypeOf(Settings{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		keys = append(keys, yamlKey(t.Field(i)))
	}
	return keys
}

func yamlKey(f reflect.StructField) string {
	return strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
}

func applyFile(settings *Settings, path, source string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("Config", "No %s found at %s, skipping", filepath.Base(path), path)
			return nil
		}
		return ConfigurationError{
			FilePath:  path,
			Source:    source,
			ErrorType: "io",
			Message:   fmt.Sprintf("failed to read file: %v", err),
		}
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return ConfigurationError{
			FilePath:    path,
			Source:      source,
			ErrorType:   "parse",
			Message:     "invalid YAML",
			Details:     err.Error(),
			Suggestions: []string{"Check the file is a mapping of setting keys to values"},
		}
	}
	if len(raw) == 0 {
		return nil
	}

	// Keys are case-insensitive so CLIENT_ID and client_id are the same setting.
	known := make(map[string]bool)
	for _, k := range Keys() {
		known[k] = true
	}
	normalized := make(map[string]interface{}, len(raw))
	var unknown []string
	for k, v := range raw {
		key := strings.ToLower(k)
		if !known[key] {
			unknown = append(unknown, k)
			continue
		}
		normalized[key] = v
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return ConfigurationError{
			FilePath:    path,
			Source:      source,
			ErrorType:   "parse",
			Message:     fmt.Sprintf("unknown setting(s): %s", strings.Join(unknown, ", ")),
			Suggestions: []string{fmt.Sprintf("Valid settings: %s", strings.Join(Keys(), ", "))},
		}
	}

	// Round-trip through YAML so only the keys present overwrite the struct.
	data, err = yaml.Marshal(normalized)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return ConfigurationError{
			FilePath:  path,
			Source:    source,
			ErrorType: "parse",
			Message:   "invalid setting value",
			Details:   err.Error(),
		}
	}
	logging.Debug("Config", "Applied %d setting(s) from %s", len(normalized), path)
	return nil
}

func applyEnv(settings *Settings) error {
	v := reflect.ValueOf(settings).Elem()
	t := v.Type()
	applied := 0
	for i := 0; i < t.NumField(); i++ {
		key := yamlKey(t.Field(i))
		name := EnvName(key)
		value, ok := lookupEnv(name)
		if !ok {
			continue
		}

		field := v.Field(i)
		var err error
		switch field.Kind() {
		case reflect.String:
			field.SetString(value)
		case reflect.Int:
			var n int64
			n, err = strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			field.SetInt(n)
		case reflect.Float64:
			var f float64
			f, err = strconv.ParseFloat(strings.TrimSpace(value), 64)
			field.SetFloat(f)
		case reflect.Bool:
			var b bool
			b, err = strconv.ParseBool(strings.TrimSpace(value))
			field.SetBool(b)
		}
		if err != nil {
			return ConfigurationError{
				Source:    SourceEnv,
				Key:       key,
				ErrorType: "parse",
				Message:   fmt.Sprintf("invalid value %q in %s", value, name),
				Details:   err.Error(),
			}
		}
		applied++
	}
	if applied > 0 {
		logging.Debug("Config", "Applied %d setting(s) from %s* environment variables", applied, EnvPrefix)
	}
	return nil
}

// Package config resolves the settings of an scm-cicd invocation.
//
// Settings are layered, each layer overriding the previous one:
//
//  1. built-in defaults (DefaultSettings)
//  2. settings.yaml in the config directory
//  3. SCM_* environment variables (SCM_CLIENT_ID, SCM_TIMEOUT, ...)
//  4. .secrets.yaml in the config directory
//
// The config directory defaults to the current directory and can be changed
// with --config-path. Missing files are skipped; unknown keys and malformed
// values fail with a ConfigurationError carrying suggestions.
//
// Load validates everything except the credentials. Commands that talk to the
// store call ValidateCredentials before building a client, so validate-only
// runs work without credentials.
package config

package config

import "time"

// Settings is the resolved configuration for one scm-cicd invocation. It is
// built once by Load and passed explicitly to the components that need it.
type Settings struct {
	// ClientID and ClientSecret are the service account credentials.
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`
	// TSGID is the tenant service group the service account belongs to.
	TSGID string `yaml:"tsg_id" validate:"required,numeric"`

	APIBaseURL string `yaml:"api_base_url" validate:"required,url"`
	TokenURL   string `yaml:"token_url" validate:"required,url"`

	LogLevel  string `yaml:"log_level" validate:"loglevel"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`

	// Timeout is the per-request timeout in seconds.
	Timeout           int     `yaml:"timeout" validate:"min=1,max=600"`
	MaxRetries        int     `yaml:"max_retries" validate:"min=0,max=10"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`

	// CommitMessage is a text/template (with sprig functions) used when no
	// --message is given.
	CommitMessage string `yaml:"commit_message"`
	// CommitTimeout bounds how long a commit job is polled, in seconds.
	CommitTimeout int `yaml:"commit_timeout" validate:"min=1"`

	// ValidationMode loads and validates input files without contacting the store.
	ValidationMode bool `yaml:"validation_mode"`
}

// RequestTimeout returns Timeout as a duration.
func (s Settings) RequestTimeout() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// CommitPollTimeout returns CommitTimeout as a duration.
func (s Settings) CommitPollTimeout() time.Duration {
	return time.Duration(s.CommitTimeout) * time.Second
}

// Redacted returns a copy safe to print.
func (s Settings) Redacted() Settings {
	if s.ClientSecret != "" {
		s.ClientSecret = "********"
	}
	return s
}

// credentialFields are the fields needed only when a client is created.
var credentialFields = []string{"ClientID", "ClientSecret", "TSGID"}

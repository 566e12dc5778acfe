package config

const (
	// DefaultAPIBaseURL is the Strata Cloud Manager API endpoint.
	DefaultAPIBaseURL = "https://api.strata.paloaltonetworks.com"

	// DefaultTokenURL is the OAuth2 token endpoint for service accounts.
	DefaultTokenURL = "https://auth.apps.paloaltonetworks.com/am/oauth2/access_token"

	// DefaultCommitMessage is rendered with the run data when no message is given.
	DefaultCommitMessage = "Automated commit via scm-cicd ({{ .Kinds | join \", \" }})"
)

// DefaultSettings returns the settings used before any file or environment
// variable is applied.
func DefaultSettings() Settings {
	return Settings{
		APIBaseURL:        DefaultAPIBaseURL,
		TokenURL:          DefaultTokenURL,
		LogLevel:          "INFO",
		LogFormat:         "text",
		Timeout:           60,
		MaxRetries:        3,
		RequestsPerSecond: 5,
		CommitMessage:     DefaultCommitMessage,
		CommitTimeout:     600,
	}
}

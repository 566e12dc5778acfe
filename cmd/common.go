package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scmcicd/internal/cli"
	"scmcicd/internal/config"
	"scmcicd/internal/policy"
	"scmcicd/internal/scm"
	"scmcicd/pkg/logging"
)

// loadSettings resolves settings and switches logging to the configured level
// and format. --debug wins over log_level.
func loadSettings(cmd *cobra.Command, opts *rootOptions) (config.Settings, error) {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Settings{}, err
	}

	level, err := logging.ParseLevel(settings.LogLevel)
	if err != nil {
		return config.Settings{}, err
	}
	if opts.Debug {
		level = logging.LevelDebug
	}
	logging.Init(level, logging.Format(settings.LogFormat), cmd.ErrOrStderr())
	logging.Debug("CLI", "Settings: %+v", settings.Redacted())
	return settings, nil
}

// connect builds a client and acquires a token, so bad credentials fail before
// any work is done.
func connect(ctx context.Context, opts *rootOptions, settings config.Settings, quiet bool) (*scm.Client, error) {
	client, err := scm.NewClient(settings)
	if err != nil {
		return nil, err
	}
	err = cli.Progress(quiet, "Authenticating...", func() error {
		return client.Connect(ctx)
	})
	if err != nil {
		return nil, cli.Explain(err, opts.ConfigPath)
	}
	return client, nil
}

// resolveContainer builds the container for name, detecting its type when
// --type was not given.
func resolveContainer(ctx context.Context, client *scm.Client, name, typ string) (policy.Container, error) {
	if strings.TrimSpace(name) == "" {
		return policy.Container{}, &cli.InvalidInputError{Reason: fmt.Errorf("container name must not be empty")}
	}
	if typ != "" {
		ct, err := policy.ParseContainerType(typ)
		if err != nil {
			return policy.Container{}, &cli.InvalidInputError{Reason: err}
		}
		return policy.Container{Type: ct, Name: name}, nil
	}
	ct, err := client.DetectContainerType(ctx, name)
	if err != nil {
		return policy.Container{}, err
	}
	return policy.Container{Type: ct, Name: name}, nil
}

// commitMessage renders the --message template, or the commit_message setting
// when the flag is empty.
func commitMessage(flag string, settings config.Settings, data cli.CommitMessageData) (string, error) {
	tmpl := flag
	if tmpl == "" {
		tmpl = settings.CommitMessage
	}
	if tmpl == "" {
		tmpl = config.DefaultCommitMessage
	}
	return cli.RenderCommitMessage(tmpl, data)
}

// warnDeprecated prints a deprecation notice for a legacy command form.
func warnDeprecated(cmd *cobra.Command, legacy, replacement string) {
	logging.Warn("CLI", "%q is deprecated, use %q", legacy, replacement)
	fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %q is deprecated, use %q instead\n", legacy, replacement)
}

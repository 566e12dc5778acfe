package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"scmcicd/internal/cli"
	"scmcicd/pkg/logging"
)

// rootOptions are the persistent flags every command sees.
type rootOptions struct {
	// ConfigPath is the directory holding settings.yaml and .secrets.yaml
	ConfigPath string
	// Debug forces DEBUG logging regardless of log_level
	Debug bool
}

// appVersion is injected by main at build time.
var appVersion = "dev"

// rootCmd represents the base command for scm-cicd.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "scm-cicd",
		Short: "Reconcile security rules and address objects with Strata Cloud Manager",
		Long: `scm-cicd reads declarative YAML definitions of security rules and address
objects, compares them with the remote policy store and creates or updates
what differs. Deletes are always explicit. Changed folders can be committed
once every record applied cleanly.

Settings are read from settings.yaml and .secrets.yaml in --config-path and
from SCM_* environment variables.`,
		// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logging.LevelWarn
			if opts.Debug {
				level = logging.LevelDebug
			}
			logging.InitForCLI(level, cmd.ErrOrStderr())
		},
	}
	cmd.Version = appVersion
	cmd.SetVersionTemplate(`{{printf "scm-cicd version %s\n" .Version}}`)

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config-path", ".", "Directory holding settings.yaml and .secrets.yaml")
	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(
		newApplyCmd(opts),
		newPlanCmd(opts),
		newListCmd(opts),
		newDeleteCmd(opts),
		newCommitCmd(opts),
		newSchemaCmd(),
		newVersionCmd(),
		newSelfUpdateCmd(),
	)
	return cmd
}

// SetVersion sets the version reported by --version and the version command.
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return appVersion
}

// Execute runs the command line and exits with the code matching the outcome.
// Interrupts cancel the context of the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the exit code for an error returned by a command.
func getExitCode(err error) int {
	return cli.ExitCode(err)
}

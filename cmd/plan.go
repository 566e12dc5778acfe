package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scmcicd/internal/cli"
	"scmcicd/internal/policy"
	"scmcicd/internal/reconciler"
	"scmcicd/internal/scm"
	"scmcicd/pkg/logging"
)

type planOptions struct {
	output   cli.CommandFlags
	rulebase string
	watch    bool
	debounce time.Duration
}

func newPlanCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what apply would change",
		Long: `Plan compares records in YAML files with the store and prints the
operations apply would run, without running them.

With --watch the plan is recomputed whenever one of the files changes. The
watched files are the ones the patterns matched at startup; every re-plan
expands the patterns again, but a new file alone does not trigger one.
Restart the command to watch newly added files.`,
	}
	cmd.AddCommand(
		newPlanKindCmd(root, policy.KindSecurityRule, "Plan security rule changes"),
		newPlanKindCmd(root, policy.KindAddress, "Plan address object changes"),
	)
	return cmd
}

func newPlanKindCmd(root *rootOptions, kind policy.Kind, short string) *cobra.Command {
	opts := &planOptions{}
	cmd := &cobra.Command{
		Use:   string(kind) + " <file|glob>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, root, opts, input{kind: kind, patterns: args})
		},
	}
	cli.RegisterOutputFlags(cmd, &opts.output)
	cmd.Flags().StringVar(&opts.rulebase, "rulebase", "", "Rulebase for rules that do not set one (pre, post)")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-plan whenever an input file changes")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "Quiet period before re-planning in --watch mode")
	return cmd
}

func runPlan(cmd *cobra.Command, root *rootOptions, opts *planOptions, in input) error {
	ctx := cmd.Context()

	printer, err := cli.NewPrinter(cmd.OutOrStdout(), opts.output)
	if err != nil {
		return &cli.InvalidInputError{Reason: err}
	}
	settings, err := loadSettings(cmd, root)
	if err != nil {
		return err
	}
	var rulebase policy.Rulebase
	if opts.rulebase != "" {
		if rulebase, err = policy.ParseRulebase(opts.rulebase); err != nil {
			return &cli.InvalidInputError{Reason: err}
		}
	}

	loaded, err := loadInputs([]input{in}, rulebase)
	if err != nil {
		return err
	}

	quiet := opts.output.Quiet || printer.Structured()
	client, err := connect(ctx, root, settings, quiet)
	if err != nil {
		return err
	}

	failed, err := planOnce(ctx, cmd, printer, client, loaded[0], rulebase, quiet, root.ConfigPath)
	if !opts.watch {
		if err != nil {
			return err
		}
		if failed > 0 {
			return &cli.RecordFailuresError{Failed: failed, Total: len(loaded[0].invalid()) + loaded[0].valid()}
		}
		return nil
	}
	if err != nil {
		logging.Error("CLI", err, "Planning failed")
	}

	watcher, err := reconciler.NewFileWatcher(loaded[0].files(), opts.debounce)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Watching for changes, press Ctrl+C to stop")
	return watcher.Watch(ctx, func(changed []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s changed, re-planning\n", strings.Join(changed, ", "))
		reloaded, err := loadInputs([]input{in}, rulebase)
		if err != nil {
			logging.Error("CLI", err, "Failed to reload input files")
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return
		}
		if _, err := planOnce(ctx, cmd, printer, client, reloaded[0], rulebase, quiet, root.ConfigPath); err != nil {
			logging.Error("CLI", err, "Planning failed")
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	})
}

// planOnce plans one loaded input and prints the steps. It returns the number
// of records that could not be planned (invalid, or in a scope the store
// refused to list), which are listed on stderr.
func planOnce(ctx context.Context, cmd *cobra.Command, printer *cli.Printer, client *scm.Client, loaded loadedInput, rulebase policy.Rulebase, quiet bool, configPath string) (int, error) {
	session := reconciler.NewSession()
	if err := loaded.addTo(session, client, rulebase); err != nil {
		return 0, err
	}
	err := cli.Progress(quiet, "Fetching current state...", func() error {
		return session.Plan(ctx)
	})
	if err != nil {
		return 0, cli.Explain(err, configPath)
	}

	report := session.Report()
	for _, r := range report.Results {
		if r.Status == reconciler.StatusFailed {
			fmt.Fprintf(cmd.ErrOrStderr(), "%-8s %s %s: %s\n", r.Action, r.Kind, r.Name, r.Message)
		}
	}
	return report.Failed(), printer.Plan(session.Steps())
}

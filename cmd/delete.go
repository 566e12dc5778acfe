package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"scmcicd/internal/cli"
	"scmcicd/internal/policy"
	"scmcicd/internal/reconciler"
	"scmcicd/internal/scm"
)

type deleteOptions struct {
	output  cli.CommandFlags
	scope   cli.ScopeFlags
	commit  bool
	yes     bool
	message string
}

func newDeleteCmd(root *rootOptions) *cobra.Command {
	legacy := &deleteOptions{}
	cmd := &cobra.Command{
		Use:   "delete [name] [container]",
		Short: "Delete a record by name",
		Long: `Delete removes one record from a folder, snippet or device. Deleting a
record that does not exist is reported and is not an error.

"delete <name> <container>" is a deprecated form of
"delete security-rule <name> <container>".`,
		Example: `  scm-cicd delete security-rule "Allow DNS" Texas --commit
  scm-cicd delete address web-servers Texas --yes`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts a name and a container, received %d argument(s)", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			warnDeprecated(cmd, "delete <name> <container>", "delete security-rule <name> <container>")
			return runDelete(cmd, root, legacy, policy.KindSecurityRule, args[0], args[1])
		},
	}
	registerDeleteOptions(cmd, legacy, true)

	cmd.AddCommand(
		newDeleteKindCmd(root, policy.KindSecurityRule, "Delete a security rule", true),
		newDeleteKindCmd(root, policy.KindAddress, "Delete an address object", false),
	)
	return cmd
}

func registerDeleteOptions(cmd *cobra.Command, opts *deleteOptions, withRulebase bool) {
	cli.RegisterOutputFlags(cmd, &opts.output)
	cli.RegisterScopeFlags(cmd, &opts.scope, withRulebase)
	cmd.Flags().BoolVar(&opts.commit, "commit", false, "Commit the folder after deleting")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().StringVarP(&opts.message, "message", "m", "", "Commit message template (default from commit_message setting)")
}

func newDeleteKindCmd(root *rootOptions, kind policy.Kind, short string, withRulebase bool) *cobra.Command {
	opts := &deleteOptions{}
	cmd := &cobra.Command{
		Use:   string(kind) + " <name> <container>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, root, opts, kind, args[0], args[1])
		},
	}
	registerDeleteOptions(cmd, opts, withRulebase)
	return cmd
}

func runDelete(cmd *cobra.Command, root *rootOptions, opts *deleteOptions, kind policy.Kind, name, containerName string) error {
	ctx := cmd.Context()

	printer, err := cli.NewPrinter(cmd.OutOrStdout(), opts.output)
	if err != nil {
		return &cli.InvalidInputError{Reason: err}
	}
	settings, err := loadSettings(cmd, root)
	if err != nil {
		return err
	}
	quiet := opts.output.Quiet || printer.Structured()
	client, err := connect(ctx, root, settings, quiet)
	if err != nil {
		return err
	}
	container, err := resolveContainer(ctx, client, containerName, opts.scope.Type)
	if err != nil {
		return cli.Explain(err, root.ConfigPath)
	}

	scope := policy.Scope{Container: container}
	if kind == policy.KindSecurityRule {
		if scope.Rulebase, err = policy.ParseRulebase(opts.scope.Rulebase); err != nil {
			return &cli.InvalidInputError{Reason: err}
		}
	}

	if !opts.yes {
		if err := cli.Confirm(fmt.Sprintf("Delete %s %q from %s?", kind, name, scope)); err != nil {
			return err
		}
	}

	report := &reconciler.Report{RunID: uuid.NewString(), StartedAt: time.Now()}
	var res reconciler.Result
	err = cli.Progress(quiet, fmt.Sprintf("Deleting %s...", name), func() (err error) {
		res, err = deleteRecord(ctx, client, kind, scope, name)
		return err
	})
	if err != nil {
		return cli.Explain(err, root.ConfigPath)
	}
	report.Results = []reconciler.Result{res}
	report.FinishedAt = time.Now()

	if opts.commit {
		message, err := commitMessage(opts.message, settings, cli.NewCommitMessageData(report.RunID, report.Results))
		if err != nil {
			return &cli.InvalidInputError{Reason: err}
		}
		outcome := reconciler.CommitResults(ctx, client, report.Results, reconciler.CommitOptions{
			Requested: true,
			Message:   message,
		})
		if reconciler.IsFatal(outcome.Err) {
			return cli.Explain(outcome.Err, root.ConfigPath)
		}
		report.Commit = &outcome
	}
	report.Tally()

	if err := printer.Report(report); err != nil {
		return err
	}
	return outcomeError(report)
}

func deleteRecord(ctx context.Context, client *scm.Client, kind policy.Kind, scope policy.Scope, name string) (reconciler.Result, error) {
	if kind == policy.KindAddress {
		return reconciler.Delete[policy.Address](ctx, client.Addresses(), kind, scope, name)
	}
	return reconciler.Delete[policy.SecurityRule](ctx, client.SecurityRules(), kind, scope, name)
}

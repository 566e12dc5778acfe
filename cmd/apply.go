package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"scmcicd/internal/cli"
	"scmcicd/internal/config"
	"scmcicd/internal/policy"
	"scmcicd/internal/reconciler"
	"scmcicd/internal/scm"
	"scmcicd/pkg/logging"
)

// defaultOrder is the apply order of "apply all": rules reference addresses.
const defaultOrder = "address,security-rule"

// loadedInput is a validated batch of one kind, ready to join a session.
type loadedInput interface {
	kind() policy.Kind
	files() []string
	valid() int
	invalid() []*policy.RecordError
	addTo(s *reconciler.Session, client *scm.Client, rulebase policy.Rulebase) error
}

type loadedRules struct {
	*policy.LoadResult[policy.SecurityRule]
}

func (l loadedRules) kind() policy.Kind               { return policy.KindSecurityRule }
func (l loadedRules) files() []string                 { return l.Files }
func (l loadedRules) valid() int                      { return len(l.Records) }
func (l loadedRules) invalid() []*policy.RecordError { return l.Invalid }

func (l loadedRules) addTo(s *reconciler.Session, client *scm.Client, rulebase policy.Rulebase) error {
	return reconciler.AddBatch(s, client.SecurityRules(), policy.KindSecurityRule, l.Records,
		reconciler.BatchOptions{DefaultRulebase: rulebase, Invalid: l.Invalid})
}

type loadedAddresses struct {
	*policy.LoadResult[policy.Address]
}

func (l loadedAddresses) kind() policy.Kind               { return policy.KindAddress }
func (l loadedAddresses) files() []string                 { return l.Files }
func (l loadedAddresses) valid() int                      { return len(l.Records) }
func (l loadedAddresses) invalid() []*policy.RecordError { return l.Invalid }

func (l loadedAddresses) addTo(s *reconciler.Session, client *scm.Client, _ policy.Rulebase) error {
	return reconciler.AddBatch(s, client.Addresses(), policy.KindAddress, l.Records,
		reconciler.BatchOptions{Invalid: l.Invalid})
}

// input names the files of one kind.
type input struct {
	kind     policy.Kind
	patterns []string
}

// loadInputs reads every input. A file that cannot be read or parsed is fatal;
// invalid records are kept for the report.
func loadInputs(inputs []input, rulebase policy.Rulebase) ([]loadedInput, error) {
	opts := policy.LoadOptions{DefaultRulebase: rulebase}
	loaded := make([]loadedInput, 0, len(inputs))
	for _, in := range inputs {
		switch in.kind {
		case policy.KindSecurityRule:
			res, err := policy.LoadSecurityRules(in.patterns, opts)
			if err != nil {
				return nil, &cli.InvalidInputError{Reason: err}
			}
			loaded = append(loaded, loadedRules{res})
		case policy.KindAddress:
			res, err := policy.LoadAddresses(in.patterns, opts)
			if err != nil {
				return nil, &cli.InvalidInputError{Reason: err}
			}
			loaded = append(loaded, loadedAddresses{res})
		default:
			return nil, fmt.Errorf("unsupported kind %q", in.kind)
		}
	}
	return loaded, nil
}

type applyOptions struct {
	output cli.CommandFlags
	apply  cli.ApplyFlags
}

func newApplyCmd(root *rootOptions) *cobra.Command {
	legacy := &applyOptions{}
	cmd := &cobra.Command{
		Use:   "apply [file]",
		Short: "Create or update records from YAML files",
		Long: `Apply reads records from YAML files, plans the changes against the store
and creates or updates every record that differs. Records missing from the
files are never deleted.

"apply <file>" is a deprecated form of "apply security-rule <file>".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			warnDeprecated(cmd, "apply <file>", "apply security-rule <file>")
			return runApply(cmd, root, legacy, []input{{kind: policy.KindSecurityRule, patterns: args}})
		},
	}
	registerApplyOptions(cmd, legacy)

	cmd.AddCommand(
		newApplyKindCmd(root, policy.KindSecurityRule, "Create or update security rules"),
		newApplyKindCmd(root, policy.KindAddress, "Create or update address objects"),
		newApplyAllCmd(root),
	)
	return cmd
}

func registerApplyOptions(cmd *cobra.Command, opts *applyOptions) {
	cli.RegisterApplyFlags(cmd, &opts.apply)
	cli.RegisterOutputFlags(cmd, &opts.output)
}

func newApplyKindCmd(root *rootOptions, kind policy.Kind, short string) *cobra.Command {
	opts := &applyOptions{}
	cmd := &cobra.Command{
		Use:   string(kind) + " <file|glob>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, root, opts, []input{{kind: kind, patterns: args}})
		},
	}
	registerApplyOptions(cmd, opts)
	return cmd
}

func newApplyAllCmd(root *rootOptions) *cobra.Command {
	opts := &applyOptions{}
	var addressFiles, ruleFiles []string
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Apply address objects and security rules in one run",
		Long: `Apply several kinds in one run. Kinds are applied in --order (addresses
first by default, since rules reference them) and the commit, if requested,
happens once after all of them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := policy.ParseOrder(opts.apply.Order)
			if err != nil {
				return &cli.InvalidInputError{Reason: err}
			}
			files := map[policy.Kind][]string{
				policy.KindAddress:      addressFiles,
				policy.KindSecurityRule: ruleFiles,
			}
			var inputs []input
			for _, kind := range order {
				if len(files[kind]) > 0 {
					inputs = append(inputs, input{kind: kind, patterns: files[kind]})
				}
			}
			if len(inputs) == 0 {
				return &cli.InvalidInputError{Reason: fmt.Errorf("no input files: pass --address and/or --security-rule")}
			}
			return runApply(cmd, root, opts, inputs)
		},
	}
	registerApplyOptions(cmd, opts)
	cmd.Flags().StringSliceVar(&addressFiles, "address", nil, "Address object files or globs")
	cmd.Flags().StringSliceVar(&ruleFiles, "security-rule", nil, "Security rule files or globs")
	cmd.Flags().StringVar(&opts.apply.Order, "order", defaultOrder, "Order in which kinds are applied")
	return cmd
}

// runApply loads, plans, executes and commits one invocation.
func runApply(cmd *cobra.Command, root *rootOptions, opts *applyOptions, inputs []input) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	printer, err := cli.NewPrinter(out, opts.output)
	if err != nil {
		return &cli.InvalidInputError{Reason: err}
	}
	settings, err := loadSettings(cmd, root)
	if err != nil {
		return err
	}
	rulebase, err := opts.apply.DefaultRulebase()
	if err != nil {
		return &cli.InvalidInputError{Reason: err}
	}

	loaded, err := loadInputs(inputs, rulebase)
	if err != nil {
		return err
	}

	if opts.apply.ValidateOnly || settings.ValidationMode {
		return reportValidation(out, loaded)
	}

	client, err := connect(ctx, root, settings, opts.output.Quiet || printer.Structured())
	if err != nil {
		return err
	}

	session := reconciler.NewSession()
	for _, l := range loaded {
		if err := l.addTo(session, client, rulebase); err != nil {
			return err
		}
	}

	err = cli.Progress(opts.output.Quiet || printer.Structured(), "Fetching current state...", func() error {
		return session.Plan(ctx)
	})
	if err != nil {
		return cli.Explain(err, root.ConfigPath)
	}

	report, err := session.Execute(ctx, opts.apply.DryRun)
	if err != nil {
		return err
	}

	if !opts.apply.DryRun {
		if err := commitSession(ctx, session, client, settings, opts.apply, root.ConfigPath); err != nil {
			return err
		}
	} else if opts.apply.Commit {
		logging.Warn("CLI", "Dry run: commit skipped")
	}

	if err := printer.Report(session.Report()); err != nil {
		return err
	}
	return outcomeError(report)
}

func commitSession(ctx context.Context, session *reconciler.Session, committer reconciler.Committer, settings config.Settings, flags cli.ApplyFlags, configPath string) error {
	report := session.Report()
	message, err := commitMessage(flags.Message, settings, cli.NewCommitMessageData(report.RunID, report.Results))
	if err != nil {
		return &cli.InvalidInputError{Reason: err}
	}
	_, err = session.Commit(ctx, committer, reconciler.CommitOptions{
		Requested: flags.Commit,
		Force:     flags.Force,
		Message:   message,
	})
	if reconciler.IsFatal(err) {
		return cli.Explain(err, configPath)
	}
	// Other commit errors are recorded in the outcome and reported.
	return nil
}

// outcomeError turns a finished report into the command's error: failed
// records first, then a failed commit.
func outcomeError(report *reconciler.Report) error {
	if failed := report.Failed(); failed > 0 {
		return &cli.RecordFailuresError{Failed: failed, Total: len(report.Results)}
	}
	if report.Commit != nil && report.Commit.Status == reconciler.CommitFailed {
		return &cli.CommitFailedError{Reason: report.Commit.Reason}
	}
	return nil
}

// reportValidation prints the outcome of --validate-only.
func reportValidation(out io.Writer, loaded []loadedInput) error {
	var valid, invalid, files int
	for _, l := range loaded {
		for _, recErr := range l.invalid() {
			fmt.Fprintf(out, "invalid  %s %v\n", l.kind(), recErr)
		}
		valid += l.valid()
		invalid += len(l.invalid())
		files += len(l.files())
	}
	fmt.Fprintf(out, "Validated %d file(s): %d valid, %d invalid record(s)\n", files, valid, invalid)
	if invalid > 0 {
		return &cli.RecordFailuresError{Failed: invalid, Total: valid + invalid}
	}
	return nil
}

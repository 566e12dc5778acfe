package cmd

import (
	"github.com/spf13/cobra"

	"scmcicd/internal/cli"
	"scmcicd/internal/policy"
)

type listOptions struct {
	output cli.CommandFlags
	scope  cli.ScopeFlags
	exact  bool
}

func newListCmd(root *rootOptions) *cobra.Command {
	legacy := &listOptions{}
	cmd := &cobra.Command{
		Use:   "list [container]",
		Short: "List records in a container",
		Long: `List the records of a kind in a folder, snippet or device.

"list <container>" is a deprecated form of "list security-rule <container>".`,
		Example: `  scm-cicd list security-rule Texas --rulebase post
  scm-cicd list address Texas --exact -o yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			warnDeprecated(cmd, "list <container>", "list security-rule <container>")
			return runList(cmd, root, legacy, policy.KindSecurityRule, args[0])
		},
	}
	registerListOptions(cmd, legacy, true)

	cmd.AddCommand(
		newListKindCmd(root, policy.KindSecurityRule, "List security rules", true),
		newListKindCmd(root, policy.KindAddress, "List address objects", false),
	)
	return cmd
}

func registerListOptions(cmd *cobra.Command, opts *listOptions, withRulebase bool) {
	cli.RegisterOutputFlags(cmd, &opts.output)
	cli.RegisterScopeFlags(cmd, &opts.scope, withRulebase)
	cmd.Flags().BoolVar(&opts.exact, "exact", false, "Only show records defined directly in the container, not inherited ones")
}

func newListKindCmd(root *rootOptions, kind policy.Kind, short string, withRulebase bool) *cobra.Command {
	opts := &listOptions{}
	cmd := &cobra.Command{
		Use:   string(kind) + " <container>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, root, opts, kind, args[0])
		},
	}
	registerListOptions(cmd, opts, withRulebase)
	return cmd
}

func runList(cmd *cobra.Command, root *rootOptions, opts *listOptions, kind policy.Kind, name string) error {
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
	container, err := resolveContainer(ctx, client, name, opts.scope.Type)
	if err != nil {
		return cli.Explain(err, root.ConfigPath)
	}

	scope := policy.Scope{Container: container}
	switch kind {
	case policy.KindSecurityRule:
		if scope.Rulebase, err = policy.ParseRulebase(opts.scope.Rulebase); err != nil {
			return &cli.InvalidInputError{Reason: err}
		}
		var rules []policy.SecurityRule
		err = cli.Progress(quiet, "Fetching security rules...", func() (err error) {
			rules, err = client.SecurityRules().List(ctx, scope)
			return err
		})
		if err != nil {
			return cli.Explain(err, root.ConfigPath)
		}
		if opts.exact {
			rules = definedIn(rules, container, func(r policy.SecurityRule) policy.Location { return r.Location })
		}
		return printer.SecurityRules(rules)

	default:
		var addresses []policy.Address
		err = cli.Progress(quiet, "Fetching address objects...", func() (err error) {
			addresses, err = client.Addresses().List(ctx, scope)
			return err
		})
		if err != nil {
			return cli.Explain(err, root.ConfigPath)
		}
		if opts.exact {
			addresses = definedIn(addresses, container, func(a policy.Address) policy.Location { return a.Location })
		}
		return printer.Addresses(addresses)
	}
}

// definedIn drops records inherited from a parent container.
func definedIn[T any](records []T, container policy.Container, location func(T) policy.Location) []T {
	want := policy.LocationFor(container)
	var out []T
	for _, r := range records {
		if location(r) == want {
			out = append(out, r)
		}
	}
	return out
}

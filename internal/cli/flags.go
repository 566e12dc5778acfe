package cli

import (
	"github.com/spf13/cobra"

	"scmcicd/internal/policy"
)

// CommandFlags holds the output flags shared by commands that print records.
type CommandFlags struct {
	// OutputFormat specifies the desired output format (table, wide, json, yaml)
	OutputFormat string
	// NoHeaders suppresses the header row in table output
	NoHeaders bool
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
}

// RegisterOutputFlags registers --output/-o, --no-headers and --quiet/-q.
func RegisterOutputFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", string(OutputFormatTable), "Output format (table, wide, json, yaml)")
	cmd.Flags().BoolVar(&flags.NoHeaders, "no-headers", false, "Suppress header row in table output")
	cmd.Flags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress progress indicators")
}

// Validate checks the output format.
func (f *CommandFlags) Validate() error {
	return ValidateOutputFormat(f.OutputFormat)
}

// ApplyFlags holds the flags of the apply commands.
type ApplyFlags struct {
	DryRun       bool
	Commit       bool
	Force        bool
	Message      string
	Rulebase     string
	ValidateOnly bool
	// Order lists the kinds applied by "apply all", comma separated
	Order string
}

// RegisterApplyFlags registers the apply flags on cmd.
func RegisterApplyFlags(cmd *cobra.Command, flags *ApplyFlags) {
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "Show what would change without calling the store")
	cmd.Flags().BoolVar(&flags.Commit, "commit", false, "Commit the changed folders after applying")
	cmd.Flags().BoolVar(&flags.Force, "force", false, "Commit even if some records failed")
	cmd.Flags().StringVarP(&flags.Message, "message", "m", "", "Commit message template (default from commit_message setting)")
	cmd.Flags().StringVar(&flags.Rulebase, "rulebase", "", "Rulebase for rules that do not set one (pre, post)")
	cmd.Flags().BoolVar(&flags.ValidateOnly, "validate-only", false, "Only load and validate the files (env: SCM_VALIDATION_MODE)")
}

// DefaultRulebase parses --rulebase. An empty flag leaves the choice to each
// record, falling back to pre.
func (f *ApplyFlags) DefaultRulebase() (policy.Rulebase, error) {
	if f.Rulebase == "" {
		return "", nil
	}
	return policy.ParseRulebase(f.Rulebase)
}

// ScopeFlags select a container for list and delete.
type ScopeFlags struct {
	// Type is folder, snippet or device; empty means detect it
	Type     string
	Rulebase string
}

// RegisterScopeFlags registers --type and, when withRulebase is set, --rulebase.
func RegisterScopeFlags(cmd *cobra.Command, flags *ScopeFlags, withRulebase bool) {
	cmd.Flags().StringVar(&flags.Type, "type", "", "Container type (folder, snippet, device); detected when omitted")
	if withRulebase {
		cmd.Flags().StringVar(&flags.Rulebase, "rulebase", string(policy.RulebasePre), "Rulebase (pre, post)")
	}
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"scmcicd/internal/cli"
	"scmcicd/internal/policy"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <kind>",
		Short: "Print the JSON schema input records are validated against",
		Long: `Print the JSON schema of one record kind (security-rule or address).
Editors that support JSON schema can use it to check input files as they are
written.`,
		Example:   `  scm-cicd schema security-rule > security-rule.schema.json`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(policy.KindSecurityRule), string(policy.KindAddress)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := policy.ParseKind(args[0])
			if err != nil {
				return &cli.InvalidInputError{Reason: err}
			}
			data, err := policy.SchemaJSON(kind)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

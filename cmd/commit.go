package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"scmcicd/internal/cli"
	"scmcicd/internal/policy"
	"scmcicd/internal/reconciler"
)

type commitOptions struct {
	output  cli.CommandFlags
	message string
}

func newCommitCmd(root *rootOptions) *cobra.Command {
	opts := &commitOptions{}
	cmd := &cobra.Command{
		Use:   "commit <folder>...",
		Short: "Commit pending changes of one or more folders",
		Long: `Commit pushes the candidate configuration of the given folders and waits
for the commit job. A job still running after commit_timeout is reported as
pending.`,
		Example: `  scm-cicd commit Texas Austin -m "Quarterly rule review"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommit(cmd, root, opts, args)
		},
	}
	cli.RegisterOutputFlags(cmd, &opts.output)
	cmd.Flags().StringVarP(&opts.message, "message", "m", "", "Commit message template (default from commit_message setting)")
	return cmd
}

func runCommit(cmd *cobra.Command, root *rootOptions, opts *commitOptions, folders []string) error {
	ctx := cmd.Context()

	printer, err := cli.NewPrinter(cmd.OutOrStdout(), opts.output)
	if err != nil {
		return &cli.InvalidInputError{Reason: err}
	}
	settings, err := loadSettings(cmd, root)
	if err != nil {
		return err
	}

	folders = uniqueSorted(folders)
	data := cli.CommitMessageData{RunID: uuid.NewString(), Folders: folders, Time: time.Now().UTC()}
	message, err := commitMessage(opts.message, settings, data)
	if err != nil {
		return &cli.InvalidInputError{Reason: err}
	}

	quiet := opts.output.Quiet || printer.Structured()
	client, err := connect(ctx, root, settings, quiet)
	if err != nil {
		return err
	}

	var result policy.CommitResult
	err = cli.Progress(quiet, fmt.Sprintf("Committing %d folder(s)...", len(folders)), func() (err error) {
		result, err = client.Commit(ctx, folders, message)
		return err
	})
	if err != nil {
		return cli.Explain(err, root.ConfigPath)
	}

	outcome := &reconciler.CommitOutcome{Folders: folders, Message: message, Result: result}
	switch {
	case result.Succeeded():
		outcome.Status = reconciler.CommitCommitted
	case result.Status == policy.CommitStatusPending:
		outcome.Status = reconciler.CommitPending
		outcome.Reason = "commit job still running"
	default:
		outcome.Status = reconciler.CommitFailed
		outcome.Reason = result.Message
		if outcome.Reason == "" {
			outcome.Reason = "commit job failed"
		}
	}

	if err := printer.Commit(outcome); err != nil {
		return err
	}
	if outcome.Status == reconciler.CommitFailed {
		return &cli.CommitFailedError{Reason: outcome.Reason}
	}
	return nil
}

func uniqueSorted(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

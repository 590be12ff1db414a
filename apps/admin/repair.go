package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/Kingsman71/Binary-Learning/core/repair"
)

func (cli *commandLine) backfill(args []string) error {
	cmd := cli.newFlagSet("backfill")
	dryRun := cmd.Bool("dry-run", false, "Report the applications that would be linked without writing.")
	if err := cmd.Parse(args); err != nil {
		return errHelp
	}

	report, err := cli.jobs.BackfillStudentLinkage(context.Background(), repair.Options{DryRun: *dryRun})
	cli.printReport(report)
	if err != nil {
		return err
	}
	return failedErr(report)
}

func (cli *commandLine) purge(args []string) error {
	cmd := cli.newFlagSet("purge")
	dryRun := cmd.Bool("dry-run", false, "Report the applications that would be deleted without deleting them.")
	notNewerThan := cmd.String("not-newer-than", "", "Abort when an unlinked application was submitted after this RFC3339 instant.")
	yes := cmd.Bool("yes", false, "Do not ask for confirmation.")
	if err := cmd.Parse(args); err != nil {
		return errHelp
	}

	opts := repair.Options{DryRun: *dryRun}
	if *notNewerThan != "" {
		t, err := time.Parse(time.RFC3339, *notNewerThan)
		if err != nil {
			return errors.Wrap(err, "parsing -not-newer-than")
		}
		opts.NotNewerThan = t
	}

	ctx := context.Background()
	if !opts.DryRun && !*yes {
		preview := opts
		preview.DryRun = true
		report, err := cli.jobs.PurgeUnlinkedApplications(ctx, preview)
		if err != nil {
			cli.printReport(report)
			return err
		}
		if len(report.Changed) == 0 {
			cli.printReport(report)
			return nil
		}
		ok, err := cli.confirm(fmt.Sprintf("Permanently delete %d unlinked applications?", len(report.Changed)))
		if err != nil {
			return err
		}
		if !ok {
			return errAborted
		}
	}

	report, err := cli.jobs.PurgeUnlinkedApplications(ctx, opts)
	cli.printReport(report)
	if err != nil {
		return err
	}
	return failedErr(report)
}

func (cli *commandLine) printReport(report repair.Report) {
	if report.Job == "" {
		return
	}
	fmt.Fprintln(cli.out, report.String())
	for _, id := range report.Changed {
		fmt.Fprintf(cli.out, "  changed    %s\n", id)
	}
	for _, u := range report.Unresolved {
		fmt.Fprintf(cli.out, "  unresolved %s %s: %s\n", u.ID, u.Email, u.Reason)
	}
	for _, f := range report.Failed {
		fmt.Fprintf(cli.out, "  failed     %s: %s\n", f.ID, f.Error)
	}
}

func failedErr(report repair.Report) error {
	if len(report.Failed) > 0 {
		return errors.Errorf("%s: %d applications failed", report.Job, len(report.Failed))
	}
	return nil
}

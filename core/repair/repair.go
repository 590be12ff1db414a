// Package repair holds the one-shot data repair jobs run against the application store,
// outside any request path.
//
// Both jobs only act on applications lacking a student linkage, which makes them safe to re-run.
// Purge is destructive: run it after BackfillStudentLinkage has resolved what it can.
package repair

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/Kingsman71/Binary-Learning/core"
	"github.com/Kingsman71/Binary-Learning/core/application"
	"github.com/Kingsman71/Binary-Learning/core/student"
)

const (
	JobBackfill = "backfill"
	JobPurge    = "purge"

	reasonNoEmail   = "no applicant email"
	reasonNoStudent = "no student with this email"
)

var ErrRecentUnlinked = errors.New("unlinked applications newer than the cut-off exist; run backfill first")

type (
	Options struct {
		// DryRun reports what would change without writing.
		DryRun bool
		// NotNewerThan (purge only) aborts the purge when an unlinked application
		// was submitted after this instant. Zero disables the check.
		NotNewerThan time.Time
	}

	Unresolved struct {
		ID     string `json:"id"`
		Email  string `json:"email,omitempty"`
		Reason string `json:"reason"`
	}

	Failure struct {
		ID    string `json:"id"`
		Error string `json:"error"`
	}

	// Report tells what a job did. Changed lists the application IDs fixed (backfill) or deleted (purge).
	Report struct {
		Job        string       `json:"job"`
		DryRun     bool         `json:"dry_run"`
		Scanned    int          `json:"scanned"`
		Changed    []string     `json:"changed"`
		Unresolved []Unresolved `json:"unresolved"`
		Failed     []Failure    `json:"failed"`
	}

	Jobs struct {
		apps     application.Repository
		students student.Repository
		logger   core.Logger
	}
)

func (r Report) String() string {
	verb := "fixed"
	if r.Job == JobPurge {
		verb = "deleted"
	}
	if r.DryRun {
		verb = "would be " + verb
	}
	return fmt.Sprintf("%s complete: scanned %d, %s %d, unresolved %d, failed %d",
		r.Job, r.Scanned, verb, len(r.Changed), len(r.Unresolved), len(r.Failed))
}

func NewJobs(apps application.Repository, students student.Repository, logger core.Logger) *Jobs {
	return &Jobs{apps: apps, students: students, logger: logger}
}

func (j *Jobs) unlinked(ctx context.Context) ([]application.Application, error) {
	apps, err := j.apps.QueryApplications(
		ctx,
		application.QueryFilter{Unlinked: true},
		[]core.DBOrdering{{Field: application.OrderApplicationDate, Ascending: true}},
	)
	if err != nil {
		return nil, core.NewDependencyError("store", errors.Wrap(err, "querying unlinked applications"))
	}
	return apps, nil
}

// BackfillStudentLinkage sets the StudentID of every unlinked application whose applicant email
// matches a registered Student. Per-record failures are reported and the scan continues.
// Cancelling `ctx` stops the scan; records already fixed stay fixed.
func (j *Jobs) BackfillStudentLinkage(ctx context.Context, opts Options) (Report, error) {
	report := Report{Job: JobBackfill, DryRun: opts.DryRun, Changed: []string{}, Unresolved: []Unresolved{}, Failed: []Failure{}}

	apps, err := j.unlinked(ctx)
	if err != nil {
		return report, err
	}

	for _, app := range apps {
		if err = ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		email := core.CleanString(app.Applicant.Email, true /* lower */)
		if email == "" {
			j.logger.Info(fmt.Sprintf("Skipping application %s: %s", app.ID, reasonNoEmail))
			report.Unresolved = append(report.Unresolved, Unresolved{ID: app.ID, Reason: reasonNoEmail})
			continue
		}

		std, err := j.students.GetStudent(ctx, student.GetFilter{Email: email})
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				j.logger.Info(fmt.Sprintf("No student found for email %s (application %s)", email, app.ID))
				report.Unresolved = append(report.Unresolved, Unresolved{ID: app.ID, Email: email, Reason: reasonNoStudent})
			} else {
				j.logger.Error(fmt.Sprintf("finding student for application %s", app.ID), err)
				report.Failed = append(report.Failed, Failure{ID: app.ID, Error: err.Error()})
			}
			continue
		}

		if !opts.DryRun {
			if err = j.apps.UpdateApplication(ctx, app.ID, application.Update{StudentID: &std.ID}); err != nil {
				j.logger.Error(fmt.Sprintf("updating application %s", app.ID), err)
				report.Failed = append(report.Failed, Failure{ID: app.ID, Error: err.Error()})
				continue
			}
			j.logger.Info(fmt.Sprintf("Updated application %s with studentId %s", app.ID, std.ID))
		}
		report.Changed = append(report.Changed, app.ID)
	}

	j.logger.Info(report.String())
	return report, nil
}

// PurgeUnlinkedApplications deletes every application lacking a StudentID. Linked applications
// are never touched, even when their Student does not exist.
func (j *Jobs) PurgeUnlinkedApplications(ctx context.Context, opts Options) (Report, error) {
	report := Report{Job: JobPurge, DryRun: opts.DryRun, Changed: []string{}, Unresolved: []Unresolved{}, Failed: []Failure{}}

	apps, err := j.unlinked(ctx)
	if err != nil {
		return report, err
	}

	if !opts.NotNewerThan.IsZero() {
		for _, app := range apps {
			if app.ApplicationDate.After(opts.NotNewerThan) {
				report.Unresolved = append(report.Unresolved, Unresolved{
					ID:     app.ID,
					Email:  app.Applicant.Email,
					Reason: "submitted after " + opts.NotNewerThan.UTC().Format(time.RFC3339),
				})
			}
		}
		if len(report.Unresolved) > 0 {
			return report, ErrRecentUnlinked
		}
	}

	for _, app := range apps {
		if err = ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		if !opts.DryRun {
			if err = j.apps.DeleteApplication(ctx, app.ID); err != nil {
				j.logger.Error(fmt.Sprintf("deleting application %s", app.ID), err)
				report.Failed = append(report.Failed, Failure{ID: app.ID, Error: err.Error()})
				continue
			}
			j.logger.Info(fmt.Sprintf("Deleted application %s (no studentId)", app.ID))
		}
		report.Changed = append(report.Changed, app.ID)
	}

	j.logger.Info(report.String())
	return report, nil
}

package repair_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kingsman71/Binary-Learning/core/application"
	"github.com/Kingsman71/Binary-Learning/core/repair"
	"github.com/Kingsman71/Binary-Learning/core/student"
	"github.com/Kingsman71/Binary-Learning/storage/database/inmem"
	"github.com/Kingsman71/Binary-Learning/tests"
)

type failingUpdates struct {
	application.Repository
	failID string
}

func (repo failingUpdates) UpdateApplication(ctx context.Context, id string, upd application.Update) error {
	if id == repo.failID {
		return errors.New("connection reset")
	}
	return repo.Repository.UpdateApplication(ctx, id, upd)
}

func (repo failingUpdates) DeleteApplication(ctx context.Context, id string) error {
	if id == repo.failID {
		return errors.New("connection reset")
	}
	return repo.Repository.DeleteApplication(ctx, id)
}

func setup(t *testing.T) (application.Repository, student.Repository) {
	db := inmemdb.Open()
	t.Cleanup(func() { _ = db.Close() })
	return inmemdb.NewApplicationRepository(db), inmemdb.NewStudentRepository(db)
}

func TestJobs_BackfillStudentLinkage(t *testing.T) {
	ctx := context.Background()
	appRepo, stdRepo := setup(t)

	std := testutil.CreateStudent(t, stdRepo, "uid-1", "Ada Lovelace", "ada@test.cd")
	linked := testutil.CreateApplication(t, appRepo, application.Application{StudentID: "uid-9", Applicant: application.Applicant{Email: "ada@test.cd"}})
	fixable := testutil.CreateApplication(t, appRepo, application.Application{Applicant: application.Applicant{Email: "ADA@test.cd "}})
	noEmail := testutil.CreateApplication(t, appRepo, application.Application{})
	noStudent := testutil.CreateApplication(t, appRepo, application.Application{Applicant: application.Applicant{Email: "ghost@test.cd"}})

	jobs := repair.NewJobs(appRepo, stdRepo, testutil.NewLogger())

	t.Run("dry run writes nothing", func(t *testing.T) {
		report, err := jobs.BackfillStudentLinkage(ctx, repair.Options{DryRun: true})
		require.NoError(t, err)
		assert.Equal(t, 3, report.Scanned)
		assert.Equal(t, []string{fixable.ID}, report.Changed)

		got, err := appRepo.GetApplication(ctx, fixable.ID)
		require.NoError(t, err)
		assert.False(t, got.IsLinked())
	})

	t.Run("links by applicant email", func(t *testing.T) {
		report, err := jobs.BackfillStudentLinkage(ctx, repair.Options{})
		require.NoError(t, err)
		assert.Equal(t, 3, report.Scanned)
		assert.Equal(t, []string{fixable.ID}, report.Changed)
		assert.Empty(t, report.Failed)

		unresolved := make(map[string]string)
		for _, u := range report.Unresolved {
			unresolved[u.ID] = u.Reason
		}
		assert.Equal(t, map[string]string{
			noEmail.ID:   "no applicant email",
			noStudent.ID: "no student with this email",
		}, unresolved)

		got, err := appRepo.GetApplication(ctx, fixable.ID)
		require.NoError(t, err)
		assert.Equal(t, std.ID, got.StudentID)

		got, err = appRepo.GetApplication(ctx, linked.ID)
		require.NoError(t, err)
		assert.Equal(t, "uid-9", got.StudentID, "linked applications are never rewritten")
	})

	t.Run("second run fixes nothing", func(t *testing.T) {
		report, err := jobs.BackfillStudentLinkage(ctx, repair.Options{})
		require.NoError(t, err)
		assert.Equal(t, 2, report.Scanned)
		assert.Empty(t, report.Changed)
	})
}

func TestJobs_BackfillStudentLinkage_ignoresCase(t *testing.T) {
	ctx := context.Background()
	appRepo, stdRepo := setup(t)

	// stored as typed at registration
	std := testutil.CreateStudent(t, stdRepo, "uid-1", "Ada Lovelace", "Ada@Test.cd")
	exact := testutil.CreateApplication(t, appRepo, application.Application{Applicant: application.Applicant{Email: "Ada@Test.cd"}})
	lower := testutil.CreateApplication(t, appRepo, application.Application{Applicant: application.Applicant{Email: "ada@test.cd"}})

	report, err := repair.NewJobs(appRepo, stdRepo, testutil.NewLogger()).BackfillStudentLinkage(ctx, repair.Options{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{exact.ID, lower.ID}, report.Changed)
	assert.Empty(t, report.Unresolved)

	for _, id := range []string{exact.ID, lower.ID} {
		got, err := appRepo.GetApplication(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, std.ID, got.StudentID)
	}
}

func TestJobs_BackfillStudentLinkage_continuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	appRepo, stdRepo := setup(t)

	testutil.CreateStudent(t, stdRepo, "uid-1", "Ada", "ada@test.cd")
	testutil.CreateStudent(t, stdRepo, "uid-2", "Bob", "bob@test.cd")
	bad := testutil.CreateApplication(t, appRepo, application.Application{Applicant: application.Applicant{Email: "ada@test.cd"}})
	good := testutil.CreateApplication(t, appRepo, application.Application{Applicant: application.Applicant{Email: "bob@test.cd"}})

	jobs := repair.NewJobs(failingUpdates{Repository: appRepo, failID: bad.ID}, stdRepo, testutil.NewLogger())
	report, err := jobs.BackfillStudentLinkage(ctx, repair.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{good.ID}, report.Changed)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, bad.ID, report.Failed[0].ID)

	got, err := appRepo.GetApplication(ctx, good.ID)
	require.NoError(t, err)
	assert.Equal(t, "uid-2", got.StudentID)
}

func TestJobs_BackfillStudentLinkage_cancelled(t *testing.T) {
	appRepo, stdRepo := setup(t)
	testutil.CreateApplication(t, appRepo, application.Application{Applicant: application.Applicant{Email: "ada@test.cd"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := repair.NewJobs(appRepo, stdRepo, testutil.NewLogger()).BackfillStudentLinkage(ctx, repair.Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Scanned)
}

func TestJobs_PurgeUnlinkedApplications(t *testing.T) {
	ctx := context.Background()
	appRepo, stdRepo := setup(t)

	// a linked application survives even though its student does not exist
	dangling := testutil.CreateApplication(t, appRepo, application.Application{StudentID: "uid-gone"})
	orphan1 := testutil.CreateApplication(t, appRepo, application.Application{ApplicationDate: time.Now().Add(-2 * time.Hour)})
	orphan2 := testutil.CreateApplication(t, appRepo, application.Application{ApplicationDate: time.Now().Add(-1 * time.Hour)})

	jobs := repair.NewJobs(appRepo, stdRepo, testutil.NewLogger())

	t.Run("dry run", func(t *testing.T) {
		report, err := jobs.PurgeUnlinkedApplications(ctx, repair.Options{DryRun: true})
		require.NoError(t, err)
		assert.Equal(t, []string{orphan1.ID, orphan2.ID}, report.Changed)
		assert.Contains(t, report.String(), "would be deleted 2")

		apps, err := appRepo.QueryApplications(ctx, application.QueryFilter{}, nil)
		require.NoError(t, err)
		assert.Len(t, apps, 3)
	})

	t.Run("aborts on recent unlinked applications", func(t *testing.T) {
		report, err := jobs.PurgeUnlinkedApplications(ctx, repair.Options{NotNewerThan: time.Now().Add(-90 * time.Minute)})
		assert.ErrorIs(t, err, repair.ErrRecentUnlinked)
		assert.Empty(t, report.Changed)
		require.Len(t, report.Unresolved, 1)
		assert.Equal(t, orphan2.ID, report.Unresolved[0].ID)

		apps, err := appRepo.QueryApplications(ctx, application.QueryFilter{}, nil)
		require.NoError(t, err)
		assert.Len(t, apps, 3)
	})

	t.Run("deletes only unlinked", func(t *testing.T) {
		report, err := jobs.PurgeUnlinkedApplications(ctx, repair.Options{NotNewerThan: time.Now()})
		require.NoError(t, err)
		assert.Equal(t, 2, report.Scanned)
		assert.ElementsMatch(t, []string{orphan1.ID, orphan2.ID}, report.Changed)

		apps, err := appRepo.QueryApplications(ctx, application.QueryFilter{}, nil)
		require.NoError(t, err)
		require.Len(t, apps, 1)
		assert.Equal(t, dangling.ID, apps[0].ID)
	})

	t.Run("second run deletes nothing", func(t *testing.T) {
		report, err := jobs.PurgeUnlinkedApplications(ctx, repair.Options{})
		require.NoError(t, err)
		assert.Zero(t, report.Scanned)
		assert.Empty(t, report.Changed)
	})
}

func TestJobs_PurgeUnlinkedApplications_keepsAnySetStudentID(t *testing.T) {
	ctx := context.Background()
	appRepo, stdRepo := setup(t)

	blank := testutil.CreateApplication(t, appRepo, application.Application{StudentID: " "})
	orphan := testutil.CreateApplication(t, appRepo, application.Application{})

	report, err := repair.NewJobs(appRepo, stdRepo, testutil.NewLogger()).PurgeUnlinkedApplications(ctx, repair.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{orphan.ID}, report.Changed)

	got, err := appRepo.GetApplication(ctx, blank.ID)
	require.NoError(t, err)
	assert.Equal(t, " ", got.StudentID)
}

func TestJobs_PurgeUnlinkedApplications_continuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	appRepo, stdRepo := setup(t)

	bad := testutil.CreateApplication(t, appRepo, application.Application{})
	good := testutil.CreateApplication(t, appRepo, application.Application{})

	jobs := repair.NewJobs(failingUpdates{Repository: appRepo, failID: bad.ID}, stdRepo, testutil.NewLogger())
	report, err := jobs.PurgeUnlinkedApplications(ctx, repair.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{good.ID}, report.Changed)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, bad.ID, report.Failed[0].ID)

	_, err = appRepo.GetApplication(ctx, bad.ID)
	assert.NoError(t, err)
}

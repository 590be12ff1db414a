package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/Kingsman71/Binary-Learning/apps/api/echo"
	"github.com/Kingsman71/Binary-Learning/core"
	"github.com/Kingsman71/Binary-Learning/core/application"
	"github.com/Kingsman71/Binary-Learning/core/auth"
	"github.com/Kingsman71/Binary-Learning/core/repair"
	"github.com/Kingsman71/Binary-Learning/storage/database"
	"github.com/Kingsman71/Binary-Learning/tests"
)

func setup(t *testing.T, input ...string) (*commandLine, *bytes.Buffer) {
	conf := core.NewTestConfig()
	stores, err := database.OpenStores(context.Background(), conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close(context.Background()) })

	out := new(bytes.Buffer)
	cli := &commandLine{
		conf:   conf,
		stores: stores,
		jobs:   repair.NewJobs(stores.Applications, stores.Students, testutil.NewLogger()),
		out:    out,
		in:     strings.NewReader(strings.Join(input, "\n")),
	}
	return cli, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.ErrorIs(t, err, tt.wantErr)
	case tt.wantErrStr != "":
		assert.ErrorContains(t, err, tt.wantErrStr)
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_help(t *testing.T) {
	cli, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "migrate without subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"backfill", "-lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
	assert.Contains(t, out.String(), "Usage:")
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)
	assert.ErrorIs(t, cli.run([]string{"admin", "migrate", "up"}), errNoSQLStore)

	// sqlx.Open does not connect
	db, err := sqlx.Open("postgres", "postgres://test@localhost/test?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	cli.stores = &database.Stores{Engine: core.EnginePostgres, SQL: db}

	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	t.Cleanup(func() { gooseRunFunc = database.Migrate })

	tests := []cliTest{
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_backfill(t *testing.T) {
	cli, out := setup(t)
	testutil.CreateStudent(t, cli.stores.Students, "uid-ada", "Ada Lovelace", "ada@test.cd")
	app := testutil.CreateApplication(t, cli.stores.Applications, application.Application{
		Applicant: application.Applicant{Email: "Ada@Test.cd"},
	})
	stray := testutil.CreateApplication(t, cli.stores.Applications, application.Application{
		Applicant: application.Applicant{Email: "ghost@test.cd"},
	})

	require.NoError(t, cli.run([]string{"admin", "backfill", "-dry-run"}))
	assert.Contains(t, out.String(), "backfill complete: scanned 2, would be fixed 1, unresolved 1, failed 0")
	got, err := cli.stores.Applications.GetApplication(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Empty(t, got.StudentID)

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "backfill"}))
	assert.Contains(t, out.String(), "backfill complete: scanned 2, fixed 1, unresolved 1, failed 0")
	assert.Contains(t, out.String(), "unresolved "+stray.ID)
	got, err = cli.stores.Applications.GetApplication(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, "uid-ada", got.StudentID)
}

func Test_commandLine_purge(t *testing.T) {
	orig := isTerminalFunc
	t.Cleanup(func() { isTerminalFunc = orig })

	cutoff := time.Now().UTC().Add(-time.Hour)
	seed := func(t *testing.T, cli *commandLine) (linked, unlinked application.Application) {
		linked = testutil.CreateApplication(t, cli.stores.Applications, application.Application{StudentID: "uid-gone"})
		unlinked = testutil.CreateApplication(t, cli.stores.Applications, application.Application{})
		return linked, unlinked
	}
	count := func(t *testing.T, cli *commandLine) int {
		apps, err := cli.stores.Applications.QueryApplications(context.Background(), application.QueryFilter{}, nil)
		require.NoError(t, err)
		return len(apps)
	}

	tests := []struct {
		cliTest
		input     string
		terminal  bool
		wantCount int
	}{
		{cliTest: cliTest{name: "dry run", args: []string{"purge", "-dry-run"}}, wantCount: 2},
		{cliTest: cliTest{name: "bad cut-off", args: []string{"purge", "-yes", "-not-newer-than", "yesterday"}, wantErrStr: "parsing -not-newer-than"}, wantCount: 2},
		{cliTest: cliTest{name: "recent unlinked", args: []string{"purge", "-yes", "-not-newer-than", cutoff.Format(time.RFC3339)}, wantErr: repair.ErrRecentUnlinked}, wantCount: 2},
		{cliTest: cliTest{name: "declined", args: []string{"purge"}, wantErr: errAborted}, input: "n\n", terminal: true, wantCount: 2},
		{cliTest: cliTest{name: "not a terminal", args: []string{"purge"}, wantErrStr: "not a terminal: pass -yes to confirm"}, wantCount: 2},
		{cliTest: cliTest{name: "confirmed", args: []string{"purge"}}, input: "y\n", terminal: true, wantCount: 1},
		{cliTest: cliTest{name: "yes", args: []string{"purge", "-yes"}}, wantCount: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, _ := setup(t, tt.input)
			isTerminalFunc = func(int) bool { return tt.terminal }
			linked, _ := seed(t, cli)

			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
			assert.Equal(t, tt.wantCount, count(t, cli))

			_, err := cli.stores.Applications.GetApplication(context.Background(), linked.ID)
			assert.NoError(t, err, "linked applications are never purged")
		})
	}
}

func Test_commandLine_token(t *testing.T) {
	cli, out := setup(t)

	tests := []cliTest{
		{name: "no uid", args: []string{"token", "-email", "ada@test.cd"}, wantErr: errHelp},
		{name: "no email", args: []string{"token", "-uid", "uid-ada"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"token", "-uid", "uid-ada", "-email", "ada@test.cd", "-role", "admin"}, wantErrStr: `unknown role "admin"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	out.Reset()
	args := []string{"admin", "token", "-uid", "uid-grace", "-email", "Grace@BB.cd", "-name", "Grace Hopper", "-role", "counselor"}
	require.NoError(t, cli.run(args))

	claims := new(echoapi.Claims)
	_, err := jwt.ParseWithClaims(strings.TrimSpace(out.String()), claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cli.conf.SecretKey), nil
	})
	require.NoError(t, err)
	assert.Equal(t, auth.Identity{UID: "uid-grace", Email: "grace@bb.cd", DisplayName: "Grace Hopper", Role: auth.RoleCounselor}, claims.Identity())
}

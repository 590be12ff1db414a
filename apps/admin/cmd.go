package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/Kingsman71/Binary-Learning/core"
	"github.com/Kingsman71/Binary-Learning/core/repair"
	"github.com/Kingsman71/Binary-Learning/storage/database"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp    = errors.New("help provided")
	errAborted = errors.New("aborted")
)

type commandLine struct {
	conf   *core.Config
	stores *database.Stores
	jobs   *repair.Jobs
	out    io.Writer
	in     io.Reader
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                                   - run a goose command (postgres only)")
	fmt.Fprintln(cli.out, "  backfill [-dry-run]                                      - link applications to students by email")
	fmt.Fprintln(cli.out, "  purge [-dry-run] [-not-newer-than RFC3339] [-yes]        - delete applications not linked to a student")
	fmt.Fprintln(cli.out, "  token -uid UID -email EMAIL [-name NAME] [-role ROLE]    - issue an API token")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "backfill":
		return cli.backfill(args[2:])
	case "purge":
		return cli.purge(args[2:])
	case "token":
		return cli.token(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

// confirm asks a yes/no question on an interactive terminal; anything but "y" or "yes" is a no.
func (cli *commandLine) confirm(question string) (bool, error) {
	fd := -1
	if f, ok := cli.in.(*os.File); ok {
		fd = int(f.Fd())
	}
	if !isTerminalFunc(fd) {
		return false, errors.New("not a terminal: pass -yes to confirm")
	}
	fmt.Fprintf(cli.out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(cli.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

package main

import (
	"fmt"

	"github.com/pkg/errors"

	echoapi "github.com/Kingsman71/Binary-Learning/apps/api/echo"
	"github.com/Kingsman71/Binary-Learning/core"
	"github.com/Kingsman71/Binary-Learning/core/auth"
)

// token issues an API token, for local development and operators.
func (cli *commandLine) token(args []string) error {
	cmd := cli.newFlagSet("token")
	uid := cmd.String("uid", "", "The identity's subject; doubles as the student ID.")
	email := cmd.String("email", "", "The identity's email.")
	name := cmd.String("name", "", "The identity's display name.")
	role := cmd.String("role", auth.RoleStudent, "student|counselor")
	if err := cmd.Parse(args); err != nil {
		return errHelp
	}

	id := auth.Identity{
		UID:         core.CleanString(*uid),
		Email:       core.CleanString(*email, true /* lower */),
		DisplayName: core.CleanString(*name),
		Role:        core.CleanString(*role, true /* lower */),
	}
	if id.UID == "" || id.Email == "" {
		cmd.Usage()
		return errHelp
	}
	if !auth.IsRole(id.Role) {
		return errors.Errorf("unknown role %q", id.Role)
	}

	tkn, err := echoapi.GenerateToken(echoapi.GetIdentityClaims(id, cli.conf), cli.conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	fmt.Fprintln(cli.out, tkn)
	return nil
}

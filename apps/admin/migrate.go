package main

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/Kingsman71/Binary-Learning/storage/database"
)

var gooseRunFunc = database.Migrate // mockable

var errNoSQLStore = errors.New("migrate needs the postgres engine")

func (cli *commandLine) migrate(args []string) error {
	var db *sql.DB
	if cli.stores != nil && cli.stores.SQL != nil {
		db = cli.stores.SQL.DB
	}
	if db == nil {
		return errNoSQLStore
	}
	return gooseRunFunc(db, args[0], args[1:]...)
}

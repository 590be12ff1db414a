// Package database opens the configured store and builds its repositories.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/Kingsman71/Binary-Learning/core"
	"github.com/Kingsman71/Binary-Learning/core/application"
	"github.com/Kingsman71/Binary-Learning/core/student"
	appfs "github.com/Kingsman71/Binary-Learning/fs"
	"github.com/Kingsman71/Binary-Learning/storage/database/inmem"
	"github.com/Kingsman71/Binary-Learning/storage/database/mongo"
	"github.com/Kingsman71/Binary-Learning/storage/database/sqlx"
)

const (
	postgresDriver = "postgres"
	migrationsDir  = "migrations"
)

// Stores holds the repositories of the configured engine.
type Stores struct {
	Engine       string
	Applications application.Repository
	Students     student.Repository

	// SQL is set for the postgres engine only.
	SQL *sqlx.DB

	close func(ctx context.Context) error
}

func (s *Stores) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// OpenStores connects to the store selected by conf.Database.Engine.
func OpenStores(ctx context.Context, conf *core.Config) (*Stores, error) {
	switch conf.Database.Engine {
	case core.EngineMongo:
		db, err := mongodb.Open(ctx, conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening mongodb")
		}
		if err = mongodb.EnsureIndexes(ctx, db); err != nil {
			_ = mongodb.Close(ctx, db)
			return nil, err
		}
		return &Stores{
			Engine:       conf.Database.Engine,
			Applications: mongodb.NewApplicationRepository(db),
			Students:     mongodb.NewStudentRepository(db),
			close:        func(ctx context.Context) error { return mongodb.Close(ctx, db) },
		}, nil

	case core.EnginePostgres:
		db, err := Open(conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening postgres")
		}
		if err = ping(ctx, db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Stores{
			Engine:       conf.Database.Engine,
			Applications: sqlxrepos.NewApplicationRepository(db),
			Students:     sqlxrepos.NewStudentRepository(db),
			SQL:          db,
			close:        func(context.Context) error { return db.Close() },
		}, nil

	case core.EngineInmem:
		db := inmemdb.Open()
		return &Stores{
			Engine:       conf.Database.Engine,
			Applications: inmemdb.NewApplicationRepository(db),
			Students:     inmemdb.NewStudentRepository(db),
			close:        func(context.Context) error { return db.Close() },
		}, nil
	}
	return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}

func open(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	if conf.Database.URI != "" && !admin {
		return sqlx.Open(postgresDriver, conf.Database.URI)
	}

	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   postgresDriver,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return sqlx.Open(postgresDriver, u.String())
}

// Open returns a handle on the postgres database named by the config.
func Open(conf *core.Config) (*sqlx.DB, error) {
	return open(conf.Database.Name, false, conf)
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping cancelled")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

func createAppUser(db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	var exists bool
	if err := db.Get(&exists, "SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)", conf.Database.User); err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !exists {
		q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'", conf.Database.User, conf.Database.Password)
		if _, err := db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sqlx.DB, conf *core.Config) error {
	var exists bool
	if err := db.Get(&exists, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", conf.Database.Name); err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !exists {
		if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE %s", conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the app user and the postgres database if they are missing.
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	// connect as admin
	db, err := open("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err = ping(ctx, db.DB); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(db, conf); err != nil {
		return err
	}

	// create DB as app user
	appDB, err := open("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = appDB.Close() }()
	return createDB(appDB, conf)
}

// Migrate runs a goose command ("up", "down", "status", "version", ...) with the embedded migrations.
func Migrate(db *sql.DB, command string, args ...string) error {
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect(postgresDriver); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	if err := goose.Run(command, db, migrationsDir, args...); err != nil {
		return errors.Wrapf(err, "migrating database (%s)", command)
	}
	return nil
}

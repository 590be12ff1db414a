// Package mongodb stores applications and students in MongoDB collections.
package mongodb

import (
	"context"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Kingsman71/Binary-Learning/core"
)

// Collections
const (
	ApplicationsCollection = "applications"
	StudentsCollection     = "students"
)

func uri(conf *core.Config) string {
	if conf.Database.URI != "" {
		return conf.Database.URI
	}
	u := url.URL{Scheme: "mongodb", Host: conf.Database.Address()}
	if conf.Database.User != "" {
		u.User = url.UserPassword(conf.Database.User, conf.Database.Password)
	}
	if !conf.Database.DisableTLS {
		u.RawQuery = "tls=true"
	}
	return u.String()
}

// Open connects to the configured database and waits for it to be ready.
func Open(ctx context.Context, conf *core.Config) (*mongo.Database, error) {
	opts := options.Client().ApplyURI(uri(conf)).SetAppName(conf.AppName)
	if conf.Database.Timeout > 0 {
		opts.SetConnectTimeout(conf.Database.Timeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err = ping(ctx, client); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client.Database(conf.Database.Name), nil
}

// Close disconnects the client of `db`.
func Close(ctx context.Context, db *mongo.Database) error {
	return db.Client().Disconnect(ctx)
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, client *mongo.Client) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = client.Ping(ctx, readpref.Primary()); err == nil {
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

// EnsureIndexes creates the indexes the repositories rely on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(ApplicationsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "referenceNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "applicationDate", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "applicationDate", Value: -1}}},
	})
	if err != nil {
		return errors.Wrap(err, "creating application indexes")
	}

	_, err = db.Collection(StudentsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Wrap(err, "creating student indexes")
	}
	return nil
}

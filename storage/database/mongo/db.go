package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shuleapp/shule/core"
)

const (
	studentCollection = "students"
	teacherCollection = "teachers"

	connectTimeout = 10 * time.Second
)

// Open connects to the document store and ensures the unique email index on
// each role-partitioned collection. The index is what actually guards the
// check-then-act registration sequence; the application never locks.
func Open(conf *core.Config) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Database.URI))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "pinging mongodb")
	}

	db := client.Database(conf.Database.Name)
	for _, name := range []string{studentCollection, teacherCollection} {
		if err := ensureEmailIndex(ctx, db.Collection(name)); err != nil {
			return nil, errors.Wrapf(err, "ensuring email index on %s", name)
		}
	}
	return db, nil
}

// Close disconnects the underlying client.
func Close(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return db.Client().Disconnect(ctx)
}

func ensureEmailIndex(ctx context.Context, col *mongo.Collection) error {
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection     = "users"
	MechanicsCollection = "mechanics"
	BookingsCollection  = "bookings"
)

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// Collections bundles the Mongo-backed collections of one database.
type Collections struct {
	Users     *MongoUserCollection
	Mechanics *MongoMechanicCollection
	Bookings  *MongoBookingCollection
}

// NewCollections wires the collections of the named database.
func NewCollections(client *mongo.Client, database string) *Collections {
	d := client.Database(database)
	return &Collections{
		Users:     &MongoUserCollection{Collection: d.Collection(UsersCollection)},
		Mechanics: &MongoMechanicCollection{Collection: d.Collection(MechanicsCollection)},
		Bookings:  &MongoBookingCollection{Collection: d.Collection(BookingsCollection)},
	}
}

// EnsureIndexes creates the uniqueness indexes the services rely on.
func (c *Collections) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	if _, err := c.Users.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: unique,
	}); err != nil {
		return fmt.Errorf("users email index: %w", err)
	}
	if _, err := c.Mechanics.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: unique,
	}); err != nil {
		return fmt.Errorf("mechanics email index: %w", err)
	}
	if _, err := c.Bookings.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user", Value: 1},
				{Key: "pickup_date", Value: 1},
				{Key: "pickup_time", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "assigned_mechanic", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("bookings indexes: %w", err)
	}
	return nil
}

// objectID parses a hex id. Malformed ids can never match a document.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}

// mapErr translates driver errors into the package sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}

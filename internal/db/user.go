package db

import (
	"context"
	"time"

	"github.com/ukydev/bike-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserCollection implements UserCollection for MongoDB
type MongoUserCollection struct {
	Collection *mongo.Collection
}

// InsertUser inserts a new account into the database
func (c *MongoUserCollection) InsertUser(ctx context.Context, user models.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := c.Collection.InsertOne(ctx, user)
	return mapErr(err)
}

// FindUserByID finds an account by its ID
func (c *MongoUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := c.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&user); err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

// FindUserByEmail finds an account by its email
func (c *MongoUserCollection) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := c.Collection.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

// FindUsersByIDs resolves a set of account references.
func (c *MongoUserCollection) FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	opts := options.Find().SetProjection(bson.M{"password_hash": 0})
	return c.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
}

// FindUsers lists every account, oldest first, without password hashes.
func (c *MongoUserCollection) FindUsers(ctx context.Context) ([]models.User, error) {
	opts := options.Find().
		SetProjection(bson.M{"password_hash": 0}).
		SetSort(bson.D{{Key: "created_at", Value: 1}})
	return c.find(ctx, bson.M{}, opts)
}

func (c *MongoUserCollection) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.User, error) {
	cursor, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser replaces an account document
func (c *MongoUserCollection) UpdateUser(ctx context.Context, id string, user models.User) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	user.UpdatedAt = time.Now()
	user.ID = oid

	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": oid}, user)
	if err != nil {
		return mapErr(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser deletes an account by ID
func (c *MongoUserCollection) DeleteUser(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUserByEmail deletes the account holding email and reports how many were removed.
func (c *MongoUserCollection) DeleteUserByEmail(ctx context.Context, email string) (int64, error) {
	result, err := c.Collection.DeleteOne(ctx, bson.M{"email": email})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// UpdateLastLogin updates the last login time for an account
func (c *MongoUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"last_login": now, "updated_at": now}},
	)
	return err
}

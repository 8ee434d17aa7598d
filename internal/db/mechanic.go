package db

import (
	"context"
	"fmt"

	"github.com/ukydev/bike-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMechanicCollection implements MechanicCollection for MongoDB
type MongoMechanicCollection struct {
	Collection *mongo.Collection
}

// InsertMechanic inserts a mechanic profile.
func (c *MongoMechanicCollection) InsertMechanic(ctx context.Context, mechanic models.Mechanic) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.InsertOne(ctx, mechanic)
	return mapErr(err)
}

// FindMechanicByID finds a mechanic profile by its ID.
func (c *MongoMechanicCollection) FindMechanicByID(ctx context.Context, id string) (*models.Mechanic, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var mechanic models.Mechanic
	if err := c.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&mechanic); err != nil {
		return nil, mapErr(err)
	}
	return &mechanic, nil
}

// FindMechanicByEmail finds a mechanic profile by email.
func (c *MongoMechanicCollection) FindMechanicByEmail(ctx context.Context, email string) (*models.Mechanic, error) {
	var mechanic models.Mechanic
	if err := c.Collection.FindOne(ctx, bson.M{"email": email}).Decode(&mechanic); err != nil {
		return nil, mapErr(err)
	}
	return &mechanic, nil
}

// FindMechanics lists profiles, newest first.
func (c *MongoMechanicCollection) FindMechanics(ctx context.Context) ([]models.Mechanic, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := c.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var mechanics []models.Mechanic
	if err := cursor.All(ctx, &mechanics); err != nil {
		return nil, err
	}
	return mechanics, nil
}

// UpdateMechanic applies a partial update and returns the updated profile.
func (c *MongoMechanicCollection) UpdateMechanic(ctx context.Context, id string, update models.MechanicUpdate) (*models.Mechanic, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	if update.Empty() {
		return c.FindMechanicByID(ctx, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var mechanic models.Mechanic
	err = c.Collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": update}, opts).Decode(&mechanic)
	if err != nil {
		return nil, mapErr(err)
	}
	return &mechanic, nil
}

// DeleteMechanic deletes a mechanic profile by ID.
func (c *MongoMechanicCollection) DeleteMechanic(ctx context.Context, id string) error {
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

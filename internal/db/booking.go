package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/bike-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBookingCollection implements BookingCollection for MongoDB
type MongoBookingCollection struct {
	Collection *mongo.Collection
}

// InsertBooking inserts a booking record into the collection.
func (c *MongoBookingCollection) InsertBooking(ctx context.Context, booking models.Booking) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	now := time.Now()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now
	_, err := c.Collection.InsertOne(ctx, booking)
	return mapErr(err)
}

// FindBookingByID finds a booking by its ID.
func (c *MongoBookingCollection) FindBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var booking models.Booking
	if err := c.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&booking); err != nil {
		return nil, mapErr(err)
	}
	return &booking, nil
}

// FindBookingBySlot finds the owner's booking at a pickup date and time.
func (c *MongoBookingCollection) FindBookingBySlot(ctx context.Context, userID primitive.ObjectID, pickupDate time.Time, pickupTime string) (*models.Booking, error) {
	filter := bson.M{
		"user":        userID,
		"pickup_date": pickupDate,
		"pickup_time": pickupTime,
	}
	var booking models.Booking
	if err := c.Collection.FindOne(ctx, filter).Decode(&booking); err != nil {
		return nil, mapErr(err)
	}
	return &booking, nil
}

// FindBookings queries bookings matching filter.
func (c *MongoBookingCollection) FindBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	query := bson.M{}
	if filter.UserID != nil {
		query["user"] = *filter.UserID
	}
	if filter.AssignedMechanic != nil {
		query["assigned_mechanic"] = *filter.AssignedMechanic
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if filter.NewestDeliveryFirst {
		opts.SetSort(bson.D{{Key: "delivery_date", Value: -1}, {Key: "created_at", Value: -1}})
	}

	cursor, err := c.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// UpdateBooking replaces a booking by its ID.
func (c *MongoBookingCollection) UpdateBooking(ctx context.Context, id string, booking models.Booking) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	booking.ID = oid
	booking.UpdatedAt = time.Now()

	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": oid}, booking)
	if err != nil {
		return mapErr(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBooking deletes a booking by its ID.
func (c *MongoBookingCollection) DeleteBooking(ctx context.Context, id string) error {
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

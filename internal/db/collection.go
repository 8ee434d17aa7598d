package db

import (
	"context"
	"errors"
	"time"

	"github.com/ukydev/bike-service/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

// UserCollection defines the interface for account database operations
type UserCollection interface {
	InsertUser(ctx context.Context, user models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	FindUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, id string, user models.User) error
	DeleteUser(ctx context.Context, id string) error
	DeleteUserByEmail(ctx context.Context, email string) (int64, error)
	UpdateLastLogin(ctx context.Context, id string) error
}

// MechanicCollection defines the interface for mechanic profile operations
type MechanicCollection interface {
	InsertMechanic(ctx context.Context, mechanic models.Mechanic) error
	FindMechanicByID(ctx context.Context, id string) (*models.Mechanic, error)
	FindMechanicByEmail(ctx context.Context, email string) (*models.Mechanic, error)
	// FindMechanics returns every profile, newest first.
	FindMechanics(ctx context.Context) ([]models.Mechanic, error)
	UpdateMechanic(ctx context.Context, id string, update models.MechanicUpdate) (*models.Mechanic, error)
	DeleteMechanic(ctx context.Context, id string) error
}

// BookingCollection defines the interface for booking operations
type BookingCollection interface {
	InsertBooking(ctx context.Context, booking models.Booking) error
	FindBookingByID(ctx context.Context, id string) (*models.Booking, error)
	FindBookingBySlot(ctx context.Context, userID primitive.ObjectID, pickupDate time.Time, pickupTime string) (*models.Booking, error)
	FindBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	UpdateBooking(ctx context.Context, id string, booking models.Booking) error
	DeleteBooking(ctx context.Context, id string) error
}

var (
	_ UserCollection     = (*MongoUserCollection)(nil)
	_ MechanicCollection = (*MongoMechanicCollection)(nil)
	_ BookingCollection  = (*MongoBookingCollection)(nil)
	_ UserCollection     = (*MemoryStore)(nil)
	_ MechanicCollection = (*MemoryStore)(nil)
	_ BookingCollection  = (*MemoryStore)(nil)
)

package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/bike-service/internal/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// testDatabase connects to the MongoDB named by MONGO_URI and returns freshly
// dropped collections. Tests are skipped when no server is configured.
func testDatabase(t *testing.T) *Collections {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
	}
	client, err := ConnectMongo(context.Background(), uri)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	t.Cleanup(func() { client.Disconnect(context.Background()) })

	database := client.Database("test_bike_service")
	require.NoError(t, database.Drop(context.Background()))

	cols := NewCollections(client, "test_bike_service")
	require.NoError(t, cols.EnsureIndexes(context.Background()))
	return cols
}

func TestConnectMongo_EmptyURI(t *testing.T) {
	client, err := ConnectMongo(context.Background(), "")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestConnectMongo_BadURI(t *testing.T) {
	client, err := ConnectMongo(context.Background(), "mongodb://bad:uri")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestInsertMechanic_NilCollection(t *testing.T) {
	coll := &MongoMechanicCollection{Collection: nil}
	err := coll.InsertMechanic(context.Background(), models.Mechanic{})
	assert.Error(t, err)
}

func TestInsertBooking_NilCollection(t *testing.T) {
	coll := &MongoBookingCollection{Collection: nil}
	err := coll.InsertBooking(context.Background(), models.Booking{})
	assert.Error(t, err)
}

func TestObjectID_Malformed(t *testing.T) {
	_, err := objectID("not-an-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil))
	assert.ErrorIs(t, mapErr(mongo.ErrNoDocuments), ErrNotFound)
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, mapErr(dup), ErrDuplicate)
	assert.Equal(t, assert.AnError, mapErr(assert.AnError))
}

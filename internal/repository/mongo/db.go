package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI and pings the primary.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// The initial connection can succeed while the server is unresponsive.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes of every collection used by the API.
// Failures are returned per collection so the caller can log them and keep going.
func EnsureIndexes(ctx context.Context, db *mongo.Database) map[string]error {
	failed := make(map[string]error)
	record := func(name string, err error) {
		if err != nil {
			failed[name] = err
		}
	}
	record(userCollectionName, EnsureUserIndexes(ctx, db.Collection(userCollectionName)))
	record(exerciseCollectionName, EnsureExerciseIndexes(ctx, db.Collection(exerciseCollectionName)))
	record(templateCollectionName, EnsureTemplateIndexes(ctx, db.Collection(templateCollectionName)))
	record(assignmentCollectionName, EnsureAssignmentIndexes(ctx, db.Collection(assignmentCollectionName)))
	record(workoutLogCollectionName, EnsureWorkoutLogIndexes(ctx, db.Collection(workoutLogCollectionName)))
	return failed
}

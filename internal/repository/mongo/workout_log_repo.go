package mongo

import (
	"alcyxob/fitness-tracker/internal/domain"
	"alcyxob/fitness-tracker/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const workoutLogCollectionName = "workout_logs"

// mongoWorkoutLogRepository implements repository.WorkoutLogRepository
type mongoWorkoutLogRepository struct {
	collection *mongo.Collection
}

// NewMongoWorkoutLogRepository creates a new WorkoutLog repository backed by MongoDB.
func NewMongoWorkoutLogRepository(db *mongo.Database) repository.WorkoutLogRepository {
	return &mongoWorkoutLogRepository{
		collection: db.Collection(workoutLogCollectionName),
	}
}

// Upsert inserts a log without ID, or replaces the stored document with the same ID.
// The ID is written back into log.
func (r *mongoWorkoutLogRepository) Upsert(ctx context.Context, log *domain.WorkoutLog) (primitive.ObjectID, error) {
	if log.UserID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("workout log requires userId")
	}
	if log.UpdatedAt.IsZero() {
		log.UpdatedAt = time.Now().UTC()
	}
	if log.Exercises == nil {
		log.Exercises = []domain.ExerciseRecord{}
	}

	if log.ID == primitive.NilObjectID {
		log.ID = primitive.NewObjectID()
		if _, err := r.collection.InsertOne(ctx, log); err != nil {
			log.ID = primitive.NilObjectID
			return primitive.NilObjectID, err
		}
		return log.ID, nil
	}

	// The owner is part of the filter so a foreign id can never be overwritten;
	// the upsert then fails on the duplicate _id instead.
	filter := bson.M{"_id": log.ID, "userId": log.UserID}
	_, err := r.collection.ReplaceOne(ctx, filter, log, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrUpdateFailed
		}
		return primitive.NilObjectID, err
	}
	return log.ID, nil
}

// GetByID retrieves a workout log by its ID.
func (r *mongoWorkoutLogRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutLog, error) {
	var log domain.WorkoutLog
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&log)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &log, nil
}

// Delete removes a log, ensuring it belongs to userID.
func (r *mongoWorkoutLogRepository) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListByUser returns the user's logs, newest first.
func (r *mongoWorkoutLogRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.WorkoutLog, error) {
	var logs []domain.WorkoutLog
	findOptions := options.Find().SetSort(bson.D{{Key: "performedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []domain.WorkoutLog{}
	}
	return logs, nil
}

// ExerciseHistory returns every set the user logged for exerciseID, most recent log first.
// Within a log the sets keep their recorded order.
func (r *mongoWorkoutLogRepository) ExerciseHistory(ctx context.Context, userID primitive.ObjectID, exerciseID string, exclude primitive.ObjectID) ([]domain.Set, error) {
	filter := bson.M{
		"userId": userID,
		"status": bson.M{"$ne": domain.WorkoutPlanned},
		"$or": bson.A{
			bson.M{"exercises.exerciseId": exerciseID},
			bson.M{"exercises.id": exerciseID}, // documents written before exerciseId existed
		},
	}
	if exclude != primitive.NilObjectID {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "performedAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetProjection(bson.M{"exercises": 1})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	sets := []domain.Set{}
	for cursor.Next(ctx) {
		var log domain.WorkoutLog
		if err := cursor.Decode(&log); err != nil {
			return nil, err
		}
		for i := range log.Exercises {
			if log.Exercises[i].Ref() == exerciseID {
				sets = append(sets, log.Exercises[i].Sets...)
			}
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return sets, nil
}

// EnsureWorkoutLogIndexes creates necessary indexes for the workout_logs collection.
func EnsureWorkoutLogIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "performedAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "exercises.exerciseId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "assignmentId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

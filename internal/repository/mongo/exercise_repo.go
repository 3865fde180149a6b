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

const exerciseCollectionName = "exercises"

// mongoExerciseRepository implements repository.ExerciseRepository
type mongoExerciseRepository struct {
	collection *mongo.Collection
}

// NewMongoExerciseRepository creates a new Exercise repository backed by MongoDB.
func NewMongoExerciseRepository(db *mongo.Database) repository.ExerciseRepository {
	return &mongoExerciseRepository{
		collection: db.Collection(exerciseCollectionName),
	}
}

// Create inserts a new exercise into the database.
func (r *mongoExerciseRepository) Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error) {
	if exercise.Name == "" {
		return primitive.NilObjectID, errors.New("exercise name is required")
	}

	exercise.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	exercise.CreatedAt = now
	exercise.UpdatedAt = now
	if exercise.TrackingType == "" {
		exercise.TrackingType = domain.TrackingReps
	}

	result, err := r.collection.InsertOne(ctx, exercise)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByID retrieves an exercise by its ID.
func (r *mongoExerciseRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	var exercise domain.Exercise
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&exercise)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &exercise, nil
}

// GetByIDs retrieves the exercises with the given IDs. Unknown IDs are skipped; order is not preserved.
func (r *mongoExerciseRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Exercise, error) {
	if len(ids) == 0 {
		return []domain.Exercise{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, nil)
}

// List returns the shared library and, when trainerID is set, that trainer's own exercises.
func (r *mongoExerciseRepository) List(ctx context.Context, trainerID *primitive.ObjectID) ([]domain.Exercise, error) {
	owners := bson.A{nil} // matches missing and null trainerId
	if trainerID != nil {
		owners = append(owners, *trainerID)
	}
	filter := bson.M{"trainerId": bson.M{"$in": owners}}
	findOptions := options.Find().SetSort(bson.D{{Key: "muscleGroup", Value: 1}, {Key: "name", Value: 1}})
	return r.find(ctx, filter, findOptions)
}

func (r *mongoExerciseRepository) find(ctx context.Context, filter bson.M, findOptions *options.FindOptions) ([]domain.Exercise, error) {
	var exercises []domain.Exercise
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &exercises); err != nil {
		return nil, err
	}
	if exercises == nil {
		exercises = []domain.Exercise{}
	}
	return exercises, nil
}

// Update modifies an existing exercise owned by exercise.TrainerID.
// The owner itself is never changed.
func (r *mongoExerciseRepository) Update(ctx context.Context, exercise *domain.Exercise) error {
	if exercise.ID == primitive.NilObjectID || exercise.TrainerID == nil {
		return errors.New("exercise ID and trainer ID are required for update")
	}
	if exercise.Name == "" {
		return errors.New("exercise name cannot be empty")
	}

	now := time.Now().UTC()
	filter := bson.M{"_id": exercise.ID, "trainerId": *exercise.TrainerID}
	update := bson.M{
		"$set": bson.M{
			"name":         exercise.Name,
			"description":  exercise.Description,
			"muscleGroup":  exercise.MuscleGroup,
			"subMuscle":    exercise.SubMuscle,
			"equipment":    exercise.Equipment,
			"videoUrl":     exercise.VideoURL,
			"imageUrls":    exercise.ImageURLs,
			"trackingType": exercise.TrackingType,
			"updatedAt":    now,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	exercise.UpdatedAt = now
	return nil
}

// Delete removes an exercise, ensuring it belongs to the specified trainer.
func (r *mongoExerciseRepository) Delete(ctx context.Context, id primitive.ObjectID, trainerID primitive.ObjectID) error {
	// Another trainer's exercise won't match the filter.
	filter := bson.M{
		"_id":       id,
		"trainerId": trainerID,
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureExerciseIndexes creates necessary indexes for the exercises collection.
func EnsureExerciseIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "trainerId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "muscleGroup", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "name", Value: "text"}, {Key: "description", Value: "text"}},
			Options: options.Index().SetName("exercise_text_search"),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

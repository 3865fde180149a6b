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

const templateCollectionName = "workout_templates"

// mongoWorkoutTemplateRepository implements repository.WorkoutTemplateRepository
type mongoWorkoutTemplateRepository struct {
	collection *mongo.Collection
}

// NewMongoWorkoutTemplateRepository creates a new WorkoutTemplate repository backed by MongoDB.
func NewMongoWorkoutTemplateRepository(db *mongo.Database) repository.WorkoutTemplateRepository {
	return &mongoWorkoutTemplateRepository{
		collection: db.Collection(templateCollectionName),
	}
}

// Create inserts a new template into the database.
func (r *mongoWorkoutTemplateRepository) Create(ctx context.Context, template *domain.WorkoutTemplate) (primitive.ObjectID, error) {
	if template.OwnerID == primitive.NilObjectID || template.Name == "" {
		return primitive.NilObjectID, errors.New("template requires ownerId and name")
	}

	template.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	template.CreatedAt = now
	template.UpdatedAt = now
	if template.Exercises == nil {
		template.Exercises = []domain.ExerciseRecord{}
	}

	result, err := r.collection.InsertOne(ctx, template)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted template ID")
	}
	return insertedID, nil
}

// GetByID retrieves a template by its ID.
func (r *mongoWorkoutTemplateRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutTemplate, error) {
	var template domain.WorkoutTemplate
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&template)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &template, nil
}

// GetByOwnerID retrieves all templates of a user, most recently updated first.
func (r *mongoWorkoutTemplateRepository) GetByOwnerID(ctx context.Context, ownerID primitive.ObjectID) ([]domain.WorkoutTemplate, error) {
	var templates []domain.WorkoutTemplate
	findOptions := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"ownerId": ownerID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	if templates == nil {
		templates = []domain.WorkoutTemplate{}
	}
	return templates, nil
}

// Update replaces the name, description and exercises of a template owned by template.OwnerID.
func (r *mongoWorkoutTemplateRepository) Update(ctx context.Context, template *domain.WorkoutTemplate) error {
	if template.ID == primitive.NilObjectID {
		return errors.New("template ID is required for update")
	}

	now := time.Now().UTC()
	filter := bson.M{"_id": template.ID, "ownerId": template.OwnerID}
	update := bson.M{
		"$set": bson.M{
			"name":        template.Name,
			"description": template.Description,
			"exercises":   template.Exercises,
			"updatedAt":   now,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	template.UpdatedAt = now
	return nil
}

// Delete removes a template, ensuring it belongs to ownerID.
func (r *mongoWorkoutTemplateRepository) Delete(ctx context.Context, id, ownerID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "ownerId": ownerID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureTemplateIndexes creates necessary indexes for the workout_templates collection.
func EnsureTemplateIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "updatedAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

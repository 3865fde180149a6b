package mongo

import (
	"alcyxob/fitness-tracker/internal/domain"
	"alcyxob/fitness-tracker/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const muscleGroupCollectionName = "muscle_groups"

type mongoMuscleGroupRepository struct {
	collection *mongo.Collection
}

// NewMongoMuscleGroupRepository creates a MuscleGroup repository backed by MongoDB.
func NewMongoMuscleGroupRepository(db *mongo.Database) repository.MuscleGroupRepository {
	return &mongoMuscleGroupRepository{
		collection: db.Collection(muscleGroupCollectionName),
	}
}

// List returns every muscle group in display order.
func (r *mongoMuscleGroupRepository) List(ctx context.Context) ([]domain.MuscleGroup, error) {
	var groups []domain.MuscleGroup
	findOptions := options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []domain.MuscleGroup{}
	}
	return groups, nil
}

// Upsert stores the group under its key, replacing any previous definition.
func (r *mongoMuscleGroupRepository) Upsert(ctx context.Context, group *domain.MuscleGroup) error {
	if group.Key == "" {
		return errors.New("muscle group key is required")
	}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": group.Key}, group, options.Replace().SetUpsert(true))
	return err
}

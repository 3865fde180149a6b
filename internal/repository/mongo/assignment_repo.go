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

const assignmentCollectionName = "assignments"

// mongoAssignmentRepository implements repository.AssignmentRepository
type mongoAssignmentRepository struct {
	collection *mongo.Collection
}

// NewMongoAssignmentRepository creates a new Assignment repository backed by MongoDB.
func NewMongoAssignmentRepository(db *mongo.Database) repository.AssignmentRepository {
	return &mongoAssignmentRepository{
		collection: db.Collection(assignmentCollectionName),
	}
}

// Create inserts a new assignment into the database.
func (r *mongoAssignmentRepository) Create(ctx context.Context, assignment *domain.Assignment) (primitive.ObjectID, error) {
	if assignment.TemplateID == primitive.NilObjectID ||
		assignment.ClientID == primitive.NilObjectID ||
		assignment.TrainerID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("assignment requires templateId, clientId and trainerId")
	}

	assignment.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	assignment.AssignedAt = now
	assignment.UpdatedAt = now
	if assignment.Status == "" {
		assignment.Status = domain.StatusAssigned
	}

	result, err := r.collection.InsertOne(ctx, assignment)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted assignment ID")
	}

	return insertedID, nil
}

// GetByID retrieves an assignment by its ID.
func (r *mongoAssignmentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Assignment, error) {
	var assignment domain.Assignment
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&assignment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &assignment, nil
}

// GetByClientID retrieves all assignments for a specific client, newest first.
func (r *mongoAssignmentRepository) GetByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.Assignment, error) {
	return r.list(ctx, bson.M{"clientId": clientID})
}

// GetByTrainerID retrieves all assignments managed by a specific trainer, newest first.
func (r *mongoAssignmentRepository) GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Assignment, error) {
	return r.list(ctx, bson.M{"trainerId": trainerID})
}

func (r *mongoAssignmentRepository) list(ctx context.Context, filter bson.M) ([]domain.Assignment, error) {
	var assignments []domain.Assignment
	findOptions := options.Find().SetSort(bson.D{{Key: "assignedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}
	if assignments == nil {
		assignments = []domain.Assignment{}
	}
	return assignments, nil
}

// MarkCompleted records that the workout log logID completed the assignment.
func (r *mongoAssignmentRepository) MarkCompleted(ctx context.Context, id, logID primitive.ObjectID) error {
	now := time.Now().UTC()
	filter := bson.M{"_id": id}
	update := bson.M{
		"$set": bson.M{
			"status":      domain.StatusCompleted,
			"logId":       logID,
			"completedAt": now,
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
	return nil
}

// EnsureAssignmentIndexes creates necessary indexes for the assignments collection.
func EnsureAssignmentIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "assignedAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "trainerId", Value: 1}, {Key: "assignedAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

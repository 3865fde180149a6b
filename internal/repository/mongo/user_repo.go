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

const userCollectionName = "users"

// mongoUserRepository implements the repository.UserRepository interface using MongoDB.
type mongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new instance of mongoUserRepository.
func NewMongoUserRepository(db *mongo.Database) repository.UserRepository {
	return &mongoUserRepository{
		collection: db.Collection(userCollectionName),
	}
}

// Upsert writes the profile fields mirrored from the identity provider.
// Trainer/client links are owned by this service and left untouched.
func (r *mongoUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	if user.ID == primitive.NilObjectID || user.Role == "" {
		return errors.New("user id and role are required")
	}

	now := time.Now().UTC()
	filter := bson.M{"_id": user.ID}
	update := bson.M{
		"$set": bson.M{
			"name":      user.Name,
			"email":     user.Email,
			"role":      user.Role,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	user.UpdatedAt = now
	return nil
}

// GetByEmail retrieves a user by their email address.
func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	filter := bson.M{"email": email}

	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by their MongoDB ObjectID.
func (r *mongoUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	var user domain.User
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// AddClientIDToTrainer adds a client's ID to a trainer's ClientIDs array.
func (r *mongoUserRepository) AddClientIDToTrainer(ctx context.Context, trainerID, clientID primitive.ObjectID) error {
	filter := bson.M{"_id": trainerID, "role": domain.RoleTrainer}
	update := bson.M{
		"$addToSet": bson.M{"clientIds": clientID}, // $addToSet prevents duplicates
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
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

// GetClientsByTrainerID retrieves all client users associated with a specific trainer.
func (r *mongoUserRepository) GetClientsByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error) {
	trainer, err := r.GetByID(ctx, trainerID)
	if err != nil {
		return nil, err
	}
	if !trainer.IsTrainer() {
		return nil, errors.New("user is not a trainer")
	}
	if len(trainer.ClientIDs) == 0 {
		return []domain.User{}, nil
	}

	var clients []domain.User
	filter := bson.M{"_id": bson.M{"$in": trainer.ClientIDs}}
	findOptions := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// SetTrainerForClient sets the TrainerID field for a specific client user.
func (r *mongoUserRepository) SetTrainerForClient(ctx context.Context, clientID, trainerID primitive.ObjectID) error {
	filter := bson.M{"_id": clientID, "role": domain.RoleClient}
	update := bson.M{
		"$set": bson.M{
			"trainerId": trainerID,
			"updatedAt": time.Now().UTC(),
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

// EnsureUserIndexes creates necessary indexes for the users collection.
func EnsureUserIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "trainerId", Value: 1}},
			Options: options.Index().SetSparse(true), // only clients have a trainer
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

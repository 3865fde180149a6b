package repository

import (
	"alcyxob/fitness-tracker/internal/domain"
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
	ErrDuplicate    = RepositoryError("already exists")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user profiles.
type UserRepository interface {
	// Upsert creates or refreshes the profile mirrored from the identity provider.
	Upsert(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	AddClientIDToTrainer(ctx context.Context, trainerID, clientID primitive.ObjectID) error
	GetClientsByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error)
	SetTrainerForClient(ctx context.Context, clientID, trainerID primitive.ObjectID) error
}

// ExerciseRepository defines the interface for the exercise catalog.
type ExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Exercise, error)
	// List returns the shared library, plus the trainer's own exercises when trainerID is set.
	List(ctx context.Context, trainerID *primitive.ObjectID) ([]domain.Exercise, error)
	Update(ctx context.Context, exercise *domain.Exercise) error
	Delete(ctx context.Context, id primitive.ObjectID, trainerID primitive.ObjectID) error // Ensure trainer owns the exercise
}

// MuscleGroupRepository defines the interface for muscle group metadata.
type MuscleGroupRepository interface {
	List(ctx context.Context) ([]domain.MuscleGroup, error)
	Upsert(ctx context.Context, group *domain.MuscleGroup) error
}

// WorkoutTemplateRepository defines the interface for reusable workout plans.
type WorkoutTemplateRepository interface {
	Create(ctx context.Context, template *domain.WorkoutTemplate) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutTemplate, error)
	GetByOwnerID(ctx context.Context, ownerID primitive.ObjectID) ([]domain.WorkoutTemplate, error)
	Update(ctx context.Context, template *domain.WorkoutTemplate) error
	Delete(ctx context.Context, id, ownerID primitive.ObjectID) error
}

// AssignmentRepository defines the interface for interacting with assignment data.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.Assignment) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Assignment, error)
	GetByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.Assignment, error)
	GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Assignment, error)
	MarkCompleted(ctx context.Context, id, logID primitive.ObjectID) error
}

// WorkoutLogRepository is the persistence gateway for workout sessions.
type WorkoutLogRepository interface {
	// Upsert inserts the log when it has no ID and replaces the whole document otherwise.
	// It returns the log's ID.
	Upsert(ctx context.Context, log *domain.WorkoutLog) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutLog, error)
	Delete(ctx context.Context, id, userID primitive.ObjectID) error
	// ListByUser returns the user's logs, newest first.
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.WorkoutLog, error)
	// ExerciseHistory returns the sets the user logged for an exercise, most recent log first.
	// Planned logs and the log with id exclude are skipped.
	ExerciseHistory(ctx context.Context, userID primitive.ObjectID, exerciseID string, exclude primitive.ObjectID) ([]domain.Set, error)
}

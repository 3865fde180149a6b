// internal/domain/workout_template.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutTemplate is a reusable workout plan built from the exercise library.
// Trainers assign templates to their clients as programs; any user can keep their own.
type WorkoutTemplate struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID     primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	Name        string             `bson:"name" json:"name"` // e.g., "Push Day A"
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Exercises   []ExerciseRecord   `bson:"exercises" json:"exercises"` // may carry planned sets
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

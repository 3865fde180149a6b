// internal/domain/exercise.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrackingType tells whether an exercise is logged in repetitions or in seconds.
type TrackingType string

const (
	TrackingReps TrackingType = "reps"
	TrackingTime TrackingType = "time"
)

// Exercise represents a single exercise definition in the library.
type Exercise struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	// TrainerID is the trainer who created the exercise. Nil for the shared library.
	TrainerID   *primitive.ObjectID `bson:"trainerId,omitempty" json:"trainerId,omitempty"`
	Name        string              `bson:"name" json:"name"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`

	MuscleGroup  string       `bson:"muscleGroup,omitempty" json:"muscleGroup,omitempty"` // key into the muscle_groups collection
	SubMuscle    string       `bson:"subMuscle,omitempty" json:"subMuscle,omitempty"`
	Equipment    string       `bson:"equipment,omitempty" json:"equipment,omitempty"` // e.g., "Barbell", "Bodyweight"
	VideoURL     string       `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`   // URL or object key in the media bucket
	ImageURLs    []string     `bson:"imageUrls,omitempty" json:"imageUrls,omitempty"` // ordered, URLs or object keys
	TrackingType TrackingType `bson:"trackingType,omitempty" json:"trackingType,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IsOwnedBy reports whether the exercise was created by the given trainer.
func (e *Exercise) IsOwnedBy(trainerID primitive.ObjectID) bool {
	return e.TrainerID != nil && *e.TrainerID == trainerID
}

// Record converts a catalog entry into the exercise-like shape used by templates and logs.
func (e *Exercise) Record() ExerciseRecord {
	images := make([]string, len(e.ImageURLs))
	copy(images, e.ImageURLs)
	return ExerciseRecord{
		ExerciseID:   e.ID.Hex(),
		Name:         e.Name,
		MuscleGroup:  e.MuscleGroup,
		SubMuscle:    e.SubMuscle,
		Equipment:    e.Equipment,
		VideoURL:     e.VideoURL,
		ImageURLs:    images,
		TrackingType: e.TrackingType,
	}
}

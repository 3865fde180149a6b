package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutStatus is the lifecycle status of a workout log.
type WorkoutStatus string

const (
	WorkoutInProgress WorkoutStatus = "in_progress" // draft, autosaved while the session is active
	WorkoutCompleted  WorkoutStatus = "completed"
	WorkoutPartial    WorkoutStatus = "partial" // finished with at least one incomplete exercise
	WorkoutPlanned    WorkoutStatus = "planned" // scheduled, not started yet
)

// WorkoutLog is the persisted form of a workout session, either a draft or a finished workout.
// The same document is replaced on every save; ID is absent until the first save.
type WorkoutLog struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID  `bson:"userId" json:"userId"`
	Name            string              `bson:"name" json:"name"`
	Exercises       []ExerciseRecord    `bson:"exercises" json:"exercises"`
	Status          WorkoutStatus       `bson:"status" json:"status"`
	DurationMinutes int                 `bson:"durationMinutes" json:"durationMinutes"`
	ElapsedSeconds  int                 `bson:"elapsedSeconds" json:"elapsedSeconds"`
	Calories        int                 `bson:"calories" json:"calories"`
	AssignmentID    *primitive.ObjectID `bson:"assignmentId,omitempty" json:"assignmentId,omitempty"`
	TemplateID      *primitive.ObjectID `bson:"templateId,omitempty" json:"templateId,omitempty"`
	PerformedAt     time.Time           `bson:"performedAt" json:"performedAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// IsDraft reports whether the log is an autosaved, unfinished session.
func (l *WorkoutLog) IsDraft() bool {
	return l.Status == WorkoutInProgress
}

package events

import (
	"context"
	"time"
)

// WorkoutFinished is published after a workout log is saved as completed or partial.
type WorkoutFinished struct {
	LogID           string    `json:"logId"`
	UserID          string    `json:"userId"`
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	DurationMinutes int       `json:"durationMinutes"`
	Calories        int       `json:"calories"`
	Exercises       int       `json:"exercises"`
	CompletedSets   int       `json:"completedSets"`
	AssignmentID    string    `json:"assignmentId,omitempty"`
	FinishedAt      time.Time `json:"finishedAt"`
}

// AssignmentCompleted is published when a finished workout completes a trainer assignment.
type AssignmentCompleted struct {
	AssignmentID string    `json:"assignmentId"`
	ClientID     string    `json:"clientId"`
	TrainerID    string    `json:"trainerId"`
	LogID        string    `json:"logId"`
	CompletedAt  time.Time `json:"completedAt"`
}

// Publisher announces workout lifecycle events to other services.
type Publisher interface {
	WorkoutFinished(ctx context.Context, evt WorkoutFinished) error
	AssignmentCompleted(ctx context.Context, evt AssignmentCompleted) error
	Close() error
}

// Nop discards every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) WorkoutFinished(context.Context, WorkoutFinished) error { return nil }
func (Nop) AssignmentCompleted(context.Context, AssignmentCompleted) error { return nil }
func (Nop) Close() error { return nil }

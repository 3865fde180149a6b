package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentStatus type for assignment lifecycle
type AssignmentStatus string

const (
	StatusAssigned  AssignmentStatus = "assigned"
	StatusCompleted AssignmentStatus = "completed" // Client finished a workout started from the assignment
)

// Assignment connects a WorkoutTemplate (the program) to a Client, as assigned by a Trainer.
type Assignment struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	TemplateID  primitive.ObjectID  `bson:"templateId" json:"templateId"`
	ClientID    primitive.ObjectID  `bson:"clientId" json:"clientId"`
	TrainerID   primitive.ObjectID  `bson:"trainerId" json:"trainerId"`
	AssignedAt  time.Time           `bson:"assignedAt" json:"assignedAt"`
	DueDate     *time.Time          `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	Status      AssignmentStatus    `bson:"status" json:"status"`
	Notes       string              `bson:"notes,omitempty" json:"notes,omitempty"` // trainer notes for the client
	LogID       *primitive.ObjectID `bson:"logId,omitempty" json:"logId,omitempty"` // workout log that completed it
	CompletedAt *time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}

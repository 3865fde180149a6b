package service

import (
	"alcyxob/fitness-tracker/internal/domain"
	"alcyxob/fitness-tracker/internal/events"
	"alcyxob/fitness-tracker/internal/repository"
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrAssignmentNotFound          = errors.New("assignment not found")
	ErrAssignmentNotBelongToClient = errors.New("assignment does not belong to this client")
)

// AssignmentService records the outcome of trainer assignments.
type AssignmentService interface {
	// CompleteAssignment marks the assignment done by the workout log logID.
	// Completing an already completed assignment is a no-op.
	CompleteAssignment(ctx context.Context, clientID, assignmentID, logID primitive.ObjectID) error
}

type assignmentService struct {
	assignmentRepo repository.AssignmentRepository
	publisher      events.Publisher
}

// NewAssignmentService creates a new instance of assignmentService.
func NewAssignmentService(assignmentRepo repository.AssignmentRepository, publisher events.Publisher) AssignmentService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &assignmentService{
		assignmentRepo: assignmentRepo,
		publisher:      publisher,
	}
}

func (s *assignmentService) CompleteAssignment(ctx context.Context, clientID, assignmentID, logID primitive.ObjectID) error {
	// 1. Get the assignment
	assignment, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	// 2. Authorization Check
	if assignment.ClientID != clientID {
		return ErrAssignmentNotBelongToClient
	}
	if assignment.Status == domain.StatusCompleted {
		return nil
	}

	// 3. Mark completed
	if err := s.assignmentRepo.MarkCompleted(ctx, assignmentID, logID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	// 4. Tell the trainer side
	evt := events.AssignmentCompleted{
		AssignmentID: assignmentID.Hex(),
		ClientID:     clientID.Hex(),
		TrainerID:    assignment.TrainerID.Hex(),
		LogID:        logID.Hex(),
		CompletedAt:  time.Now().UTC(),
	}
	if err := s.publisher.AssignmentCompleted(ctx, evt); err != nil {
		log.WithField("assignmentId", evt.AssignmentID).Warnf("failed to publish assignment completion: %s", err)
	}
	return nil
}

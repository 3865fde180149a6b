package service

import (
	"alcyxob/fitness-tracker/internal/domain"
	"alcyxob/fitness-tracker/internal/repository"
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrLogNotFound     = errors.New("workout log not found")
	ErrLogAccessDenied = errors.New("access denied to this workout log")
)

// AssignmentDetails combines an assignment with the program it points to.
type AssignmentDetails struct {
	domain.Assignment
	Template *domain.WorkoutTemplate `json:"template,omitempty"` // nil when the template was deleted
}

type ClientService interface {
	GetMyAssignments(ctx context.Context, clientID primitive.ObjectID) ([]AssignmentDetails, error)
	GetMyLogs(ctx context.Context, userID primitive.ObjectID) ([]domain.WorkoutLog, error)
	GetLog(ctx context.Context, userID, logID primitive.ObjectID) (*domain.WorkoutLog, error)
	DeleteLog(ctx context.Context, userID, logID primitive.ObjectID) error
}

// --- Service Implementation ---

// clientService implements the ClientService interface.
type clientService struct {
	assignmentRepo repository.AssignmentRepository
	templateRepo   repository.WorkoutTemplateRepository
	logRepo        repository.WorkoutLogRepository
}

// NewClientService creates a new instance of clientService.
func NewClientService(
	assignmentRepo repository.AssignmentRepository,
	templateRepo repository.WorkoutTemplateRepository,
	logRepo repository.WorkoutLogRepository,
) ClientService {
	return &clientService{
		assignmentRepo: assignmentRepo,
		templateRepo:   templateRepo,
		logRepo:        logRepo,
	}
}

// GetMyAssignments retrieves assignments for the client, enriched with their templates.
func (s *clientService) GetMyAssignments(ctx context.Context, clientID primitive.ObjectID) ([]AssignmentDetails, error) {
	assignments, err := s.assignmentRepo.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	templates := make(map[primitive.ObjectID]*domain.WorkoutTemplate)
	details := make([]AssignmentDetails, 0, len(assignments))
	for _, a := range assignments {
		tpl, seen := templates[a.TemplateID]
		if !seen {
			tpl, err = s.templateRepo.GetByID(ctx, a.TemplateID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			if err != nil {
				log.WithField("assignmentId", a.ID.Hex()).Warn("assignment points to a missing template")
			}
			templates[a.TemplateID] = tpl
		}
		details = append(details, AssignmentDetails{Assignment: a, Template: tpl})
	}
	return details, nil
}

// GetMyLogs lists the user's workout logs, newest first.
func (s *clientService) GetMyLogs(ctx context.Context, userID primitive.ObjectID) ([]domain.WorkoutLog, error) {
	return s.logRepo.ListByUser(ctx, userID)
}

// GetLog returns one of the user's workout logs.
func (s *clientService) GetLog(ctx context.Context, userID, logID primitive.ObjectID) (*domain.WorkoutLog, error) {
	return ownedLog(ctx, s.logRepo, userID, logID)
}

// DeleteLog removes one of the user's workout logs.
func (s *clientService) DeleteLog(ctx context.Context, userID, logID primitive.ObjectID) error {
	if _, err := ownedLog(ctx, s.logRepo, userID, logID); err != nil {
		return err
	}
	if err := s.logRepo.Delete(ctx, logID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrLogNotFound
		}
		return err
	}
	return nil
}

func ownedLog(ctx context.Context, logRepo repository.WorkoutLogRepository, userID, logID primitive.ObjectID) (*domain.WorkoutLog, error) {
	wl, err := logRepo.GetByID(ctx, logID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLogNotFound
		}
		return nil, err
	}
	if wl.UserID != userID {
		return nil, ErrLogAccessDenied
	}
	return wl, nil
}

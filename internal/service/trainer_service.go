package service

import (
	"alcyxob/fitness-tracker/internal/domain"
	"alcyxob/fitness-tracker/internal/repository"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrClientNotFound        = errors.New("client user not found")
	ErrClientNotRole         = errors.New("user found but is not a client")
	ErrClientAlreadyAssigned = errors.New("client is already assigned to a trainer")
	ErrClientNotManaged      = errors.New("client is not managed by this trainer")
	ErrTemplateNotFound      = errors.New("workout template not found")
	ErrTemplateAccessDenied  = errors.New("access denied to this workout template")
)

// TemplateExerciseInput is one exercise of a template, optionally with planned sets.
type TemplateExerciseInput struct {
	ExerciseID string
	Sets       []domain.Set
}

// TemplateInput carries the editable fields of a workout template.
type TemplateInput struct {
	Name        string
	Description string
	Exercises   []TemplateExerciseInput
}

// --- Service Interface ---
type TrainerService interface {
	// Client Management
	AddClientByEmail(ctx context.Context, trainerID primitive.ObjectID, clientEmail string) (*domain.User, error)
	GetManagedClients(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error)

	// Template Management
	CreateTemplate(ctx context.Context, ownerID primitive.ObjectID, in TemplateInput) (*domain.WorkoutTemplate, error)
	GetTemplates(ctx context.Context, ownerID primitive.ObjectID) ([]domain.WorkoutTemplate, error)
	UpdateTemplate(ctx context.Context, ownerID, templateID primitive.ObjectID, in TemplateInput) (*domain.WorkoutTemplate, error)
	DeleteTemplate(ctx context.Context, ownerID, templateID primitive.ObjectID) error

	// Assignment Management
	AssignProgram(ctx context.Context, trainerID, clientID, templateID primitive.ObjectID, dueDate *time.Time, notes string) (*domain.Assignment, error)
	GetAssignmentsByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Assignment, error)
}

// --- Service Implementation ---

// trainerService implements the TrainerService interface.
type trainerService struct {
	userRepo        repository.UserRepository
	assignmentRepo  repository.AssignmentRepository
	templateRepo    repository.WorkoutTemplateRepository
	exerciseService ExerciseService
}

// NewTrainerService creates a new instance of trainerService.
func NewTrainerService(
	userRepo repository.UserRepository,
	assignmentRepo repository.AssignmentRepository,
	templateRepo repository.WorkoutTemplateRepository,
	exerciseService ExerciseService,
) TrainerService {
	return &trainerService{
		userRepo:        userRepo,
		assignmentRepo:  assignmentRepo,
		templateRepo:    templateRepo,
		exerciseService: exerciseService,
	}
}

// === Client Management ===

// AddClientByEmail finds a client by email and assigns them to the trainer.
func (s *trainerService) AddClientByEmail(ctx context.Context, trainerID primitive.ObjectID, clientEmail string) (*domain.User, error) {
	// 1. Validate Input
	clientEmail = strings.ToLower(strings.TrimSpace(clientEmail))
	if trainerID == primitive.NilObjectID || clientEmail == "" {
		return nil, errors.New("trainer ID and client email are required")
	}

	// 2. Find the potential client user
	client, err := s.userRepo.GetByEmail(ctx, clientEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	// 3. Verify the user is actually a client
	if !client.IsClient() {
		return nil, ErrClientNotRole
	}

	// 4. Check if the client is already assigned to any trainer
	if client.TrainerID != nil && *client.TrainerID != primitive.NilObjectID {
		if *client.TrainerID == trainerID {
			return client, nil
		}
		return nil, ErrClientAlreadyAssigned
	}

	// 5. Link both records
	if err = s.userRepo.AddClientIDToTrainer(ctx, trainerID, client.ID); err != nil {
		return nil, err
	}
	if err = s.userRepo.SetTrainerForClient(ctx, client.ID, trainerID); err != nil {
		return nil, err
	}

	client.TrainerID = &trainerID
	return client, nil
}

// GetManagedClients retrieves the list of clients managed by the trainer.
func (s *trainerService) GetManagedClients(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error) {
	if trainerID == primitive.NilObjectID {
		return nil, errors.New("trainer ID is required")
	}
	clients, err := s.userRepo.GetClientsByTrainerID(ctx, trainerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return clients, nil
}

// === Template Management ===

// CreateTemplate builds a template from catalog exercises.
func (s *trainerService) CreateTemplate(ctx context.Context, ownerID primitive.ObjectID, in TemplateInput) (*domain.WorkoutTemplate, error) {
	// 1. Validate and resolve exercises
	records, err := s.templateRecords(ctx, &in)
	if err != nil {
		return nil, err
	}

	// 2. Save
	template := &domain.WorkoutTemplate{
		OwnerID:     ownerID,
		Name:        in.Name,
		Description: in.Description,
		Exercises:   records,
	}
	templateID, err := s.templateRepo.Create(ctx, template)
	if err != nil {
		return nil, err
	}
	template.ID = templateID
	return template, nil
}

// GetTemplates lists the templates of a user.
func (s *trainerService) GetTemplates(ctx context.Context, ownerID primitive.ObjectID) ([]domain.WorkoutTemplate, error) {
	return s.templateRepo.GetByOwnerID(ctx, ownerID)
}

// UpdateTemplate replaces the content of a template owned by ownerID.
func (s *trainerService) UpdateTemplate(ctx context.Context, ownerID, templateID primitive.ObjectID, in TemplateInput) (*domain.WorkoutTemplate, error) {
	// 1. Check existence and ownership
	template, err := s.ownedTemplate(ctx, ownerID, templateID)
	if err != nil {
		return nil, err
	}

	// 2. Validate and resolve exercises
	records, err := s.templateRecords(ctx, &in)
	if err != nil {
		return nil, err
	}

	// 3. Save
	template.Name = in.Name
	template.Description = in.Description
	template.Exercises = records
	if err := s.templateRepo.Update(ctx, template); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return template, nil
}

// DeleteTemplate removes a template owned by ownerID.
func (s *trainerService) DeleteTemplate(ctx context.Context, ownerID, templateID primitive.ObjectID) error {
	if _, err := s.ownedTemplate(ctx, ownerID, templateID); err != nil {
		return err
	}
	if err := s.templateRepo.Delete(ctx, templateID, ownerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTemplateNotFound
		}
		return err
	}
	return nil
}

func (s *trainerService) ownedTemplate(ctx context.Context, ownerID, templateID primitive.ObjectID) (*domain.WorkoutTemplate, error) {
	template, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if template.OwnerID != ownerID {
		return nil, ErrTemplateAccessDenied
	}
	return template, nil
}

// templateRecords validates in and turns its exercises into records backed by the catalog.
// Planned sets are kept, never marked completed.
func (s *trainerService) templateRecords(ctx context.Context, in *TemplateInput) ([]domain.ExerciseRecord, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: template name is required", ErrValidationFailed)
	}
	if len(in.Exercises) == 0 {
		return nil, fmt.Errorf("%w: a template needs at least one exercise", ErrValidationFailed)
	}

	ids := make([]string, len(in.Exercises))
	for i, e := range in.Exercises {
		ids[i] = e.ExerciseID
	}
	catalog, err := s.exerciseService.GetExercisesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Exercise, len(catalog))
	for _, ex := range catalog {
		byID[ex.ID.Hex()] = ex
	}

	records := make([]domain.ExerciseRecord, 0, len(in.Exercises))
	seen := make(map[string]bool, len(in.Exercises))
	for _, e := range in.Exercises {
		ex, ok := byID[e.ExerciseID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrExerciseNotFound, e.ExerciseID)
		}
		if seen[e.ExerciseID] {
			continue
		}
		seen[e.ExerciseID] = true

		rec := ex.Record()
		for _, set := range e.Sets {
			set.Completed = false
			rec.Sets = append(rec.Sets, set)
		}
		records = append(records, rec)
	}
	return records, nil
}

// === Assignment Management ===

// AssignProgram assigns one of the trainer's templates to a managed client.
func (s *trainerService) AssignProgram(ctx context.Context, trainerID, clientID, templateID primitive.ObjectID, dueDate *time.Time, notes string) (*domain.Assignment, error) {
	// 1. Validate Inputs
	if trainerID == primitive.NilObjectID || clientID == primitive.NilObjectID || templateID == primitive.NilObjectID {
		return nil, errors.New("trainer ID, client ID, and template ID are required")
	}

	// 2. Verify Template Ownership and Existence
	if _, err := s.ownedTemplate(ctx, trainerID, templateID); err != nil {
		return nil, err
	}

	// 3. Verify Client is Managed by this Trainer
	client, err := s.userRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	if client.TrainerID == nil || *client.TrainerID != trainerID {
		return nil, ErrClientNotManaged
	}

	// 4. Save assignment
	assignment := &domain.Assignment{
		TemplateID: templateID,
		ClientID:   clientID,
		TrainerID:  trainerID,
		Status:     domain.StatusAssigned,
		DueDate:    dueDate,
		Notes:      strings.TrimSpace(notes),
	}
	assignmentID, err := s.assignmentRepo.Create(ctx, assignment)
	if err != nil {
		return nil, err
	}
	assignment.ID = assignmentID
	return assignment, nil
}

// GetAssignmentsByTrainer retrieves assignments created by the trainer.
func (s *trainerService) GetAssignmentsByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Assignment, error) {
	if trainerID == primitive.NilObjectID {
		return nil, errors.New("trainer ID is required")
	}
	return s.assignmentRepo.GetByTrainerID(ctx, trainerID)
}

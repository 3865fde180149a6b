package service

import (
	"alcyxob/fitness-tracker/internal/cache"
	"alcyxob/fitness-tracker/internal/domain"
	"alcyxob/fitness-tracker/internal/repository"
	"alcyxob/fitness-tracker/internal/storage"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrExerciseNotFound     = errors.New("exercise not found")
	ErrExerciseAccessDenied = errors.New("access denied to modify or delete this exercise")
	ErrValidationFailed     = errors.New("validation failed")
	ErrUploadURLError       = errors.New("failed to generate upload URL")
	ErrStorageUnavailable   = errors.New("media storage is not configured")
)

const (
	muscleGroupsCacheKey = "catalog:muscle-groups"
	sharedExercisesKey   = "catalog:exercises:shared"
)

// ExerciseInput carries the editable fields of a catalog exercise.
type ExerciseInput struct {
	Name         string
	Description  string
	MuscleGroup  string
	SubMuscle    string
	Equipment    string
	VideoURL     string
	ImageURLs    []string
	TrackingType domain.TrackingType
}

// UploadURLResponse structure for returning URL and object key
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"` // store it in videoUrl or imageUrls once uploaded
}

// --- Service Interface ---

// ExerciseService is the exercise catalog: the shared library plus trainers' own exercises.
type ExerciseService interface {
	ListExercises(ctx context.Context, trainerID *primitive.ObjectID) ([]domain.Exercise, error)
	ListMuscleGroups(ctx context.Context) ([]domain.MuscleGroup, error)
	GetExerciseByID(ctx context.Context, exerciseID primitive.ObjectID) (*domain.Exercise, error)
	// GetExercisesByIDs returns the exercises in the order of ids, skipping unknown or malformed ids.
	GetExercisesByIDs(ctx context.Context, ids []string) ([]domain.Exercise, error)
	CreateExercise(ctx context.Context, trainerID primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error)
	UpdateExercise(ctx context.Context, trainerID, exerciseID primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error)
	DeleteExercise(ctx context.Context, trainerID, exerciseID primitive.ObjectID) error
	RequestMediaUploadURL(ctx context.Context, trainerID, exerciseID primitive.ObjectID, contentType string) (*UploadURLResponse, error)
}

// --- Service Implementation ---

type exerciseService struct {
	exerciseRepo    repository.ExerciseRepository
	muscleGroupRepo repository.MuscleGroupRepository
	cache           *cache.Cache
	fileStorage     storage.FileStorage // nil when no bucket is configured
}

// NewExerciseService creates a new instance of exerciseService.
func NewExerciseService(
	exerciseRepo repository.ExerciseRepository,
	muscleGroupRepo repository.MuscleGroupRepository,
	catalogCache *cache.Cache,
	fileStorage storage.FileStorage,
) ExerciseService {
	if catalogCache == nil {
		catalogCache = cache.New(1, time.Minute)
	}
	return &exerciseService{
		exerciseRepo:    exerciseRepo,
		muscleGroupRepo: muscleGroupRepo,
		cache:           catalogCache,
		fileStorage:     fileStorage,
	}
}

func trainerExercisesKey(trainerID primitive.ObjectID) string {
	return "catalog:exercises:" + trainerID.Hex()
}

// ListExercises returns the shared library and, for a trainer, their own exercises.
func (s *exerciseService) ListExercises(ctx context.Context, trainerID *primitive.ObjectID) ([]domain.Exercise, error) {
	key := sharedExercisesKey
	if trainerID != nil {
		key = trainerExercisesKey(*trainerID)
	}

	var exercises []domain.Exercise
	if s.cache.Get(key, &exercises) {
		return exercises, nil
	}

	exercises, err := s.exerciseRepo.List(ctx, trainerID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, exercises)
	return exercises, nil
}

// ListMuscleGroups returns the muscle groups in display order.
func (s *exerciseService) ListMuscleGroups(ctx context.Context) ([]domain.MuscleGroup, error) {
	var groups []domain.MuscleGroup
	if s.cache.Get(muscleGroupsCacheKey, &groups) {
		return groups, nil
	}

	groups, err := s.muscleGroupRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(muscleGroupsCacheKey, groups)
	return groups, nil
}

// GetExerciseByID retrieves a single catalog exercise.
func (s *exerciseService) GetExerciseByID(ctx context.Context, exerciseID primitive.ObjectID) (*domain.Exercise, error) {
	exercise, err := s.exerciseRepo.GetByID(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	return exercise, nil
}

// GetExercisesByIDs looks up catalog exercises and keeps the caller's order.
func (s *exerciseService) GetExercisesByIDs(ctx context.Context, ids []string) ([]domain.Exercise, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
		if err != nil {
			continue
		}
		objectIDs = append(objectIDs, oid)
	}
	if len(objectIDs) == 0 {
		return []domain.Exercise{}, nil
	}

	found, err := s.exerciseRepo.GetByIDs(ctx, objectIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]domain.Exercise, len(found))
	for _, ex := range found {
		byID[ex.ID] = ex
	}

	ordered := make([]domain.Exercise, 0, len(found))
	for _, oid := range objectIDs {
		if ex, ok := byID[oid]; ok {
			ordered = append(ordered, ex)
			delete(byID, oid) // a repeated id is returned once
		}
	}
	return ordered, nil
}

// CreateExercise handles the creation of a new exercise by a trainer.
func (s *exerciseService) CreateExercise(ctx context.Context, trainerID primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error) {
	// 1. Validate Inputs
	if trainerID == primitive.NilObjectID {
		return nil, errors.New("trainer ID is required to create an exercise")
	}
	if err := validateExerciseInput(&in); err != nil {
		return nil, err
	}

	// 2. Build and save
	exercise := &domain.Exercise{TrainerID: &trainerID}
	applyExerciseInput(exercise, in)

	exerciseID, err := s.exerciseRepo.Create(ctx, exercise)
	if err != nil {
		return nil, err
	}
	exercise.ID = exerciseID

	// 3. The trainer's cached list is stale now
	s.cache.Delete(trainerExercisesKey(trainerID))
	return exercise, nil
}

// UpdateExercise changes an exercise owned by the trainer.
func (s *exerciseService) UpdateExercise(ctx context.Context, trainerID, exerciseID primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error) {
	// 1. Validate Inputs
	if err := validateExerciseInput(&in); err != nil {
		return nil, err
	}

	// 2. Check existence and ownership
	exercise, err := s.GetExerciseByID(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	if !exercise.IsOwnedBy(trainerID) {
		return nil, ErrExerciseAccessDenied
	}

	// 3. Apply and save
	applyExerciseInput(exercise, in)
	if err := s.exerciseRepo.Update(ctx, exercise); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}

	s.cache.Delete(trainerExercisesKey(trainerID))
	return exercise, nil
}

// DeleteExercise removes an exercise owned by the trainer together with its stored media.
func (s *exerciseService) DeleteExercise(ctx context.Context, trainerID, exerciseID primitive.ObjectID) error {
	exercise, err := s.GetExerciseByID(ctx, exerciseID)
	if err != nil {
		return err
	}
	if !exercise.IsOwnedBy(trainerID) {
		return ErrExerciseAccessDenied
	}

	if err := s.exerciseRepo.Delete(ctx, exerciseID, trainerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrExerciseNotFound
		}
		return err
	}
	s.cache.Delete(trainerExercisesKey(trainerID))

	// Orphaned objects are harmless, so storage failures are only logged.
	if s.fileStorage != nil {
		for _, ref := range append([]string{exercise.VideoURL}, exercise.ImageURLs...) {
			if !storage.IsObjectKey(ref) {
				continue
			}
			if err := s.fileStorage.DeleteObject(ctx, ref); err != nil {
				log.WithField("exerciseId", exerciseID.Hex()).Warnf("failed to delete media object %s: %s", ref, err)
			}
		}
	}
	return nil
}

// RequestMediaUploadURL generates a pre-signed URL for uploading an image or video of the trainer's exercise.
func (s *exerciseService) RequestMediaUploadURL(ctx context.Context, trainerID, exerciseID primitive.ObjectID, contentType string) (*UploadURLResponse, error) {
	// 1. Validate Inputs
	if s.fileStorage == nil {
		return nil, ErrStorageUnavailable
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if !strings.HasPrefix(contentType, "video/") && !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: content type must be an image or a video", ErrValidationFailed)
	}

	// 2. Check ownership
	exercise, err := s.GetExerciseByID(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	if !exercise.IsOwnedBy(trainerID) {
		return nil, ErrExerciseAccessDenied
	}

	// 3. Generate a unique object key
	extension := contentType[strings.Index(contentType, "/")+1:]
	objectKey := path.Join("exercises", exerciseID.Hex(), fmt.Sprintf("%s.%s", uuid.NewString(), extension))

	// 4. Generate the pre-signed URL
	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, ErrUploadURLError
	}
	return &UploadURLResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

func validateExerciseInput(in *ExerciseInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return fmt.Errorf("%w: exercise name is required", ErrValidationFailed)
	}
	switch in.TrackingType {
	case "":
		in.TrackingType = domain.TrackingReps
	case domain.TrackingReps, domain.TrackingTime:
	default:
		return fmt.Errorf("%w: unknown tracking type %q", ErrValidationFailed, in.TrackingType)
	}
	return nil
}

func applyExerciseInput(exercise *domain.Exercise, in ExerciseInput) {
	exercise.Name = in.Name
	exercise.Description = in.Description
	exercise.MuscleGroup = strings.TrimSpace(in.MuscleGroup)
	exercise.SubMuscle = in.SubMuscle
	exercise.Equipment = in.Equipment
	exercise.VideoURL = in.VideoURL
	exercise.ImageURLs = (&domain.ExerciseRecord{ImageURLs: in.ImageURLs}).Images()
	exercise.TrackingType = in.TrackingType
}

package api

import (
	"alcyxob/fitness-tracker/internal/domain"
	"alcyxob/fitness-tracker/internal/service"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ExerciseHandler serves the exercise catalog.
type ExerciseHandler struct {
	exerciseService service.ExerciseService
	mediaService    service.MediaService
}

// NewExerciseHandler creates a new ExerciseHandler.
func NewExerciseHandler(exerciseService service.ExerciseService, mediaService service.MediaService) *ExerciseHandler {
	return &ExerciseHandler{exerciseService: exerciseService, mediaService: mediaService}
}

// --- DTOs for API (Data Transfer Objects) ---

// ExerciseRequest defines the expected JSON for creating or updating an exercise.
type ExerciseRequest struct {
	Name         string              `json:"name" binding:"required"`
	Description  string              `json:"description"`
	MuscleGroup  string              `json:"muscleGroup"` // key of a muscle group, e.g. "chest"
	SubMuscle    string              `json:"subMuscle"`
	Equipment    string              `json:"equipment"`
	VideoURL     string              `json:"videoUrl"`  // URL or object key from media-upload-url
	ImageURLs    []string            `json:"imageUrls"` // URLs or object keys
	TrackingType domain.TrackingType `json:"trackingType" binding:"omitempty,oneof=reps time"`
}

func (r ExerciseRequest) input() service.ExerciseInput {
	return service.ExerciseInput{
		Name:         r.Name,
		Description:  r.Description,
		MuscleGroup:  r.MuscleGroup,
		SubMuscle:    r.SubMuscle,
		Equipment:    r.Equipment,
		VideoURL:     r.VideoURL,
		ImageURLs:    r.ImageURLs,
		TrackingType: r.TrackingType,
	}
}

type MediaUploadRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

// ExerciseResponse is the DTO for returning exercise details.
type ExerciseResponse struct {
	ID           string              `json:"id"`
	TrainerID    string              `json:"trainerId,omitempty"` // empty for the shared library
	Name         string              `json:"name"`
	Description  string              `json:"description,omitempty"`
	MuscleGroup  string              `json:"muscleGroup,omitempty"`
	SubMuscle    string              `json:"subMuscle,omitempty"`
	Equipment    string              `json:"equipment,omitempty"`
	VideoURL     string              `json:"videoUrl,omitempty"`
	ImageURLs    []string            `json:"imageUrls"`
	TrackingType domain.TrackingType `json:"trackingType"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// MapExerciseToResponse converts a domain.Exercise to ExerciseResponse DTO, presigning stored media.
func MapExerciseToResponse(ctx context.Context, media service.MediaService, ex *domain.Exercise) ExerciseResponse {
	if ex == nil {
		return ExerciseResponse{}
	}
	resp := ExerciseResponse{
		ID:           ex.ID.Hex(),
		Name:         ex.Name,
		Description:  ex.Description,
		MuscleGroup:  ex.MuscleGroup,
		SubMuscle:    ex.SubMuscle,
		Equipment:    ex.Equipment,
		VideoURL:     media.ResolveURL(ctx, ex.VideoURL),
		ImageURLs:    make([]string, len(ex.ImageURLs)),
		TrackingType: ex.TrackingType,
		CreatedAt:    ex.CreatedAt,
		UpdatedAt:    ex.UpdatedAt,
	}
	if ex.TrainerID != nil {
		resp.TrainerID = ex.TrainerID.Hex()
	}
	for i, img := range ex.ImageURLs {
		resp.ImageURLs[i] = media.ResolveURL(ctx, img)
	}
	return resp
}

// MapExercisesToResponse converts a slice of domain.Exercise to a slice of ExerciseResponse DTO.
func MapExercisesToResponse(ctx context.Context, media service.MediaService, exercises []domain.Exercise) []ExerciseResponse {
	responses := make([]ExerciseResponse, len(exercises))
	for i := range exercises {
		responses[i] = MapExerciseToResponse(ctx, media, &exercises[i])
	}
	return responses
}

// --- Handler Methods ---

// ListExercises godoc
// @Summary List the exercise catalog
// @Description Trainers see the shared library plus their own exercises; clients see the shared library.
// @Tags Exercises
// @Produce json
// @Security BearerAuth
// @Success 200 {array} ExerciseResponse
// @Router /exercises [get]
func (h *ExerciseHandler) ListExercises(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	role, _ := getUserRoleFromContext(c)

	ctx := c.Request.Context()
	trainerID := &userID
	if role != domain.RoleTrainer {
		trainerID = nil
	}
	exercises, err := h.exerciseService.ListExercises(ctx, trainerID)
	if err != nil {
		log.WithField("userId", userID.Hex()).Errorf("failed to list exercises: %s", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve exercises.")
		return
	}

	c.JSON(http.StatusOK, MapExercisesToResponse(ctx, h.mediaService, exercises))
}

// GetExercise godoc
// @Summary Get one exercise
// @Tags Exercises
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exercise ID"
// @Success 200 {object} ExerciseResponse
// @Failure 404 {object} gin.H "Exercise not found"
// @Router /exercises/{id} [get]
func (h *ExerciseHandler) GetExercise(c *gin.Context) {
	exerciseID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	exercise, err := h.exerciseService.GetExerciseByID(c.Request.Context(), exerciseID)
	if err != nil {
		h.abortWithServiceError(c, err, "Failed to retrieve exercise.")
		return
	}

	c.JSON(http.StatusOK, MapExerciseToResponse(c.Request.Context(), h.mediaService, exercise))
}

// ListMuscleGroups godoc
// @Summary List muscle groups in display order
// @Tags Exercises
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.MuscleGroup
// @Router /muscle-groups [get]
func (h *ExerciseHandler) ListMuscleGroups(c *gin.Context) {
	groups, err := h.exerciseService.ListMuscleGroups(c.Request.Context())
	if err != nil {
		log.Errorf("failed to list muscle groups: %s", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve muscle groups.")
		return
	}
	if groups == nil {
		groups = []domain.MuscleGroup{}
	}
	c.JSON(http.StatusOK, groups)
}

// CreateExercise godoc
// @Summary Create a new exercise
// @Description Creates a new exercise owned by the authenticated trainer.
// @Tags Exercises
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param exercise body ExerciseRequest true "Exercise details"
// @Success 201 {object} ExerciseResponse "Exercise created successfully"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 403 {object} gin.H "Forbidden (not a trainer)"
// @Router /exercises [post]
func (h *ExerciseHandler) CreateExercise(c *gin.Context) {
	var req ExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	trainerID, ok := requireUserID(c)
	if !ok {
		return
	}

	exercise, err := h.exerciseService.CreateExercise(c.Request.Context(), trainerID, req.input())
	if err != nil {
		h.abortWithServiceError(c, err, "Failed to create exercise.")
		return
	}

	c.JSON(http.StatusCreated, MapExerciseToResponse(c.Request.Context(), h.mediaService, exercise))
}

// UpdateExercise godoc
// @Summary Update one of the trainer's exercises
// @Tags Exercises
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exercise ID"
// @Param exercise body ExerciseRequest true "Exercise details"
// @Success 200 {object} ExerciseResponse
// @Failure 403 {object} gin.H "Not the owner"
// @Failure 404 {object} gin.H "Exercise not found"
// @Router /exercises/{id} [put]
func (h *ExerciseHandler) UpdateExercise(c *gin.Context) {
	exerciseID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	var req ExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	trainerID, ok := requireUserID(c)
	if !ok {
		return
	}

	exercise, err := h.exerciseService.UpdateExercise(c.Request.Context(), trainerID, exerciseID, req.input())
	if err != nil {
		h.abortWithServiceError(c, err, "Failed to update exercise.")
		return
	}

	c.JSON(http.StatusOK, MapExerciseToResponse(c.Request.Context(), h.mediaService, exercise))
}

// DeleteExercise godoc
// @Summary Delete one of the trainer's exercises
// @Tags Exercises
// @Security BearerAuth
// @Param id path string true "Exercise ID"
// @Success 204
// @Failure 403 {object} gin.H "Not the owner"
// @Failure 404 {object} gin.H "Exercise not found"
// @Router /exercises/{id} [delete]
func (h *ExerciseHandler) DeleteExercise(c *gin.Context) {
	exerciseID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	trainerID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.exerciseService.DeleteExercise(c.Request.Context(), trainerID, exerciseID); err != nil {
		h.abortWithServiceError(c, err, "Failed to delete exercise.")
		return
	}
	c.Status(http.StatusNoContent)
}

// RequestMediaUploadURL godoc
// @Summary Get a presigned URL to upload an image or video for an exercise
// @Tags Exercises
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exercise ID"
// @Param request body MediaUploadRequest true "Content type of the file"
// @Success 200 {object} service.UploadURLResponse
// @Failure 503 {object} gin.H "Media storage not configured"
// @Router /exercises/{id}/media-upload-url [post]
func (h *ExerciseHandler) RequestMediaUploadURL(c *gin.Context) {
	exerciseID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	var req MediaUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	trainerID, ok := requireUserID(c)
	if !ok {
		return
	}

	resp, err := h.exerciseService.RequestMediaUploadURL(c.Request.Context(), trainerID, exerciseID, req.ContentType)
	if err != nil {
		h.abortWithServiceError(c, err, "Failed to generate upload URL.")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ExerciseHandler) abortWithServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrValidationFailed):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrExerciseNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrExerciseAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	default:
		log.Errorf("%s %s", fallback, err)
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}

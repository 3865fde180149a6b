package api

import (
	"alcyxob/fitness-tracker/internal/domain"
	"alcyxob/fitness-tracker/internal/service"
	"alcyxob/fitness-tracker/internal/session"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionHandler serves the caller's active workout.
type SessionHandler struct {
	workoutService service.WorkoutService
	mediaService   service.MediaService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(workoutService service.WorkoutService, mediaService service.MediaService) *SessionHandler {
	return &SessionHandler{workoutService: workoutService, mediaService: mediaService}
}

// --- DTOs ---

// StartSessionRequest names exactly one source for the new workout.
type StartSessionRequest struct {
	Name         string                  `json:"name"`
	ExerciseIDs  []string                `json:"exerciseIds"`
	TemplateID   string                  `json:"templateId"`
	RepeatLogID  string                  `json:"repeatLogId"`
	AssignmentID string                  `json:"assignmentId"`
	Prior        map[string][]domain.Set `json:"prior"` // sets already entered, by exercise id
}

type UpdateSetRequest struct {
	Weight *string `json:"weight"`
	Reps   *string `json:"reps"`
}

type AddExercisesRequest struct {
	ExerciseIDs []string `json:"exerciseIds" binding:"required,min=1"`
}

type FinishSessionRequest struct {
	ConfirmPartial  bool `json:"confirmPartial"`
	DurationMinutes *int `json:"durationMinutes" binding:"omitempty,min=0"`
}

type SessionExerciseResponse struct {
	ExerciseID   string              `json:"exerciseId"`
	Name         string              `json:"name"`
	MuscleGroup  string              `json:"muscleGroup,omitempty"`
	SubMuscle    string              `json:"subMuscle,omitempty"`
	Equipment    string              `json:"equipment,omitempty"`
	VideoURL     string              `json:"videoUrl,omitempty"`
	ImageURLs    []string            `json:"imageUrls"`
	TrackingType domain.TrackingType `json:"trackingType"`
	Sets         []domain.Set        `json:"sets"`
	State        string              `json:"state"`
	Completed    bool                `json:"completed"`
	Benchmark    *domain.Set         `json:"benchmark,omitempty"` // best previous set, display only
}

type SessionResponse struct {
	ID             string                    `json:"id"`
	Name           string                    `json:"name"`
	LogID          string                    `json:"logId,omitempty"` // set once the draft has been saved
	AssignmentID   string                    `json:"assignmentId,omitempty"`
	TemplateID     string                    `json:"templateId,omitempty"`
	Status         domain.WorkoutStatus      `json:"status"`
	StartedAt      time.Time                 `json:"startedAt"`
	ElapsedSeconds int                       `json:"elapsedSeconds"`
	AllCompleted   bool                      `json:"allCompleted"`
	Exercises      []SessionExerciseResponse `json:"exercises"`
}

// MapSessionToResponse converts a session snapshot to its DTO, presigning stored media.
func MapSessionToResponse(ctx context.Context, media service.MediaService, s *session.Session) SessionResponse {
	resp := SessionResponse{
		ID:             s.ID,
		Name:           s.Name,
		Status:         s.Status,
		StartedAt:      s.StartedAt,
		ElapsedSeconds: s.ElapsedSeconds,
		AllCompleted:   s.AllCompleted(),
		Exercises:      make([]SessionExerciseResponse, len(s.Exercises)),
	}
	if s.LogID != primitive.NilObjectID {
		resp.LogID = s.LogID.Hex()
	}
	if s.AssignmentID != nil {
		resp.AssignmentID = s.AssignmentID.Hex()
	}
	if s.TemplateID != nil {
		resp.TemplateID = s.TemplateID.Hex()
	}
	for i, ex := range s.Exercises {
		item := SessionExerciseResponse{
			ExerciseID:   ex.ExerciseID,
			Name:         ex.Name,
			MuscleGroup:  ex.MuscleGroup,
			SubMuscle:    ex.SubMuscle,
			Equipment:    ex.Equipment,
			VideoURL:     media.ResolveURL(ctx, ex.VideoURL),
			ImageURLs:    make([]string, len(ex.ImageURLs)),
			TrackingType: ex.TrackingType,
			Sets:         ex.Sets,
			State:        ex.State().String(),
			Completed:    ex.Completed(),
		}
		for j, img := range ex.ImageURLs {
			item.ImageURLs[j] = media.ResolveURL(ctx, img)
		}
		if best, ok := s.Benchmarks[ex.ExerciseID]; ok {
			b := best
			item.Benchmark = &b
		}
		resp.Exercises[i] = item
	}
	return resp
}

func parseOptionalID(raw string) (*primitive.ObjectID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// --- Handler Methods ---

// StartSession godoc
// @Summary Start a workout
// @Description Starts a workout from catalog exercises, a template, a past workout or an assignment.
// @Description Any active workout of the caller is replaced.
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body StartSessionRequest true "Workout source"
// @Success 201 {object} SessionResponse
// @Failure 400 {object} gin.H "No exercises, or more than one source"
// @Router /sessions [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	start := service.StartRequest{Name: req.Name, ExerciseIDs: req.ExerciseIDs, Prior: req.Prior}
	var err error
	if start.TemplateID, err = parseOptionalID(req.TemplateID); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid templateId format.")
		return
	}
	if start.RepeatLogID, err = parseOptionalID(req.RepeatLogID); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid repeatLogId format.")
		return
	}
	if start.AssignmentID, err = parseOptionalID(req.AssignmentID); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid assignmentId format.")
		return
	}

	sess, err := h.workoutService.Start(c.Request.Context(), userID, start)
	if err != nil {
		abortWithSessionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapSessionToResponse(c.Request.Context(), h.mediaService, sess))
}

// ResumeSession godoc
// @Summary Resume a saved unfinished workout
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param logId path string true "Draft workout log ID"
// @Success 200 {object} SessionResponse
// @Failure 409 {object} gin.H "The log is not an unfinished workout"
// @Router /sessions/resume/{logId} [post]
func (h *SessionHandler) ResumeSession(c *gin.Context) {
	logID, ok := pathObjectID(c, "logId")
	if !ok {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sess, err := h.workoutService.Resume(c.Request.Context(), userID, logID)
	if err != nil {
		abortWithSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(c.Request.Context(), h.mediaService, sess))
}

// GetCurrentSession godoc
// @Summary Get the active workout
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SessionResponse
// @Failure 404 {object} gin.H "No active workout"
// @Router /sessions/current [get]
func (h *SessionHandler) GetCurrentSession(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sess, err := h.workoutService.Current(c.Request.Context(), userID)
	if err != nil {
		abortWithSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(c.Request.Context(), h.mediaService, sess))
}

// mutate applies edit to the active session. edit reports whether its target exists.
func (h *SessionHandler) mutate(c *gin.Context, edit func(s *session.Session) bool) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	applied := false
	sess, err := h.workoutService.Mutate(c.Request.Context(), userID, func(s *session.Session) {
		applied = edit(s)
	})
	if err != nil {
		abortWithSessionError(c, err)
		return
	}
	if !applied {
		abortWithError(c, http.StatusNotFound, "Exercise or set not found in the active workout.")
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(c.Request.Context(), h.mediaService, sess))
}

func setIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		abortWithError(c, http.StatusBadRequest, "Invalid set index.")
		return 0, false
	}
	return index, true
}

// UpdateSet godoc
// @Summary Edit the weight or reps of a set
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param exerciseId path string true "Exercise ID"
// @Param index path int true "Set index"
// @Param request body UpdateSetRequest true "New values"
// @Success 200 {object} SessionResponse
// @Router /sessions/current/exercises/{exerciseId}/sets/{index} [patch]
func (h *SessionHandler) UpdateSet(c *gin.Context) {
	index, ok := setIndex(c)
	if !ok {
		return
	}
	var req UpdateSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if req.Weight == nil && req.Reps == nil {
		abortWithError(c, http.StatusBadRequest, "Provide weight or reps.")
		return
	}

	exerciseID := c.Param("exerciseId")
	h.mutate(c, func(s *session.Session) bool {
		applied := true
		if req.Weight != nil {
			applied = s.UpdateSet(exerciseID, index, session.FieldWeight, *req.Weight) && applied
		}
		if req.Reps != nil {
			applied = s.UpdateSet(exerciseID, index, session.FieldReps, *req.Reps) && applied
		}
		return applied
	})
}

// AddSet godoc
// @Summary Append a set, copying the previous set's values
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param exerciseId path string true "Exercise ID"
// @Success 200 {object} SessionResponse
// @Router /sessions/current/exercises/{exerciseId}/sets [post]
func (h *SessionHandler) AddSet(c *gin.Context) {
	exerciseID := c.Param("exerciseId")
	h.mutate(c, func(s *session.Session) bool { return s.AddSet(exerciseID) })
}

// RemoveSet godoc
// @Summary Remove a set
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param exerciseId path string true "Exercise ID"
// @Param index path int true "Set index"
// @Success 200 {object} SessionResponse
// @Router /sessions/current/exercises/{exerciseId}/sets/{index} [delete]
func (h *SessionHandler) RemoveSet(c *gin.Context) {
	index, ok := setIndex(c)
	if !ok {
		return
	}
	exerciseID := c.Param("exerciseId")
	h.mutate(c, func(s *session.Session) bool { return s.RemoveSet(exerciseID, index) })
}

// ToggleSet godoc
// @Summary Mark a set done or not done
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param exerciseId path string true "Exercise ID"
// @Param index path int true "Set index"
// @Success 200 {object} SessionResponse
// @Router /sessions/current/exercises/{exerciseId}/sets/{index}/toggle [post]
func (h *SessionHandler) ToggleSet(c *gin.Context) {
	index, ok := setIndex(c)
	if !ok {
		return
	}
	exerciseID := c.Param("exerciseId")
	h.mutate(c, func(s *session.Session) bool { return s.ToggleSetComplete(exerciseID, index) })
}

// ToggleExercise godoc
// @Summary Mark a whole exercise done or not done
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param exerciseId path string true "Exercise ID"
// @Success 200 {object} SessionResponse
// @Router /sessions/current/exercises/{exerciseId}/toggle [post]
func (h *SessionHandler) ToggleExercise(c *gin.Context) {
	exerciseID := c.Param("exerciseId")
	h.mutate(c, func(s *session.Session) bool { return s.ToggleExerciseComplete(exerciseID) })
}

// RemoveExercise godoc
// @Summary Remove an exercise and its sets from the workout
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param exerciseId path string true "Exercise ID"
// @Success 200 {object} SessionResponse
// @Router /sessions/current/exercises/{exerciseId} [delete]
func (h *SessionHandler) RemoveExercise(c *gin.Context) {
	exerciseID := c.Param("exerciseId")
	h.mutate(c, func(s *session.Session) bool { return s.RemoveExercise(exerciseID) })
}

// AddExercises godoc
// @Summary Add catalog exercises to the workout
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AddExercisesRequest true "Exercise IDs"
// @Success 200 {object} SessionResponse
// @Router /sessions/current/exercises [post]
func (h *SessionHandler) AddExercises(c *gin.Context) {
	var req AddExercisesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sess, err := h.workoutService.AddExercises(c.Request.Context(), userID, req.ExerciseIDs)
	if err != nil {
		abortWithSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(c.Request.Context(), h.mediaService, sess))
}

// SaveSession godoc
// @Summary Autosave the active workout as a draft
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.WorkoutLog
// @Failure 503 {object} gin.H "Saving failed, the workout is still active"
// @Router /sessions/current/save [post]
func (h *SessionHandler) SaveSession(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	draft, err := h.workoutService.Save(c.Request.Context(), userID)
	if err != nil {
		abortWithSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// FinishSession godoc
// @Summary Finish the active workout
// @Description Saves the workout as completed, or as partial when confirmPartial is set.
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body FinishSessionRequest false "Finish options"
// @Success 200 {object} domain.WorkoutLog
// @Failure 409 {object} gin.H "Some exercises are not completed; lists them under incompleteExercises"
// @Router /sessions/current/finish [post]
func (h *SessionHandler) FinishSession(c *gin.Context) {
	var req FinishSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
			return
		}
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	finished, err := h.workoutService.Finish(c.Request.Context(), userID, service.FinishRequest{
		ConfirmPartial:  req.ConfirmPartial,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		abortWithSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, finished)
}

// CancelSession godoc
// @Summary Discard the active workout and its draft
// @Tags Sessions
// @Security BearerAuth
// @Success 204
// @Router /sessions/current [delete]
func (h *SessionHandler) CancelSession(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.workoutService.Cancel(c.Request.Context(), userID); err != nil {
		abortWithSessionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func abortWithSessionError(c *gin.Context, err error) {
	var incomplete *session.IncompleteError
	switch {
	case errors.As(err, &incomplete):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":               session.ErrPartialConfirmationRequired.Error(),
			"incompleteExercises": incomplete.Exercises,
		})
	case errors.Is(err, service.ErrNoActiveSession):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNoExercises), errors.Is(err, service.ErrAmbiguousStart):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrTemplateNotFound),
		errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, service.ErrLogNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrTemplateAccessDenied),
		errors.Is(err, service.ErrAssignmentNotBelongToClient),
		errors.Is(err, service.ErrLogAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotADraft):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrSaveFailed):
		abortWithError(c, http.StatusServiceUnavailable, "Could not save the workout. Please try again.")
	default:
		log.WithField("path", c.FullPath()).Errorf("workout request failed: %s", err)
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred.")
	}
}

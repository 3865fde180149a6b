// internal/api/client_handler.go
package api

import (
	"alcyxob/fitness-tracker/internal/domain"
	"alcyxob/fitness-tracker/internal/service"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClientHandler serves a user's own history: workout logs, benchmarks and assigned programs.
type ClientHandler struct {
	clientService    service.ClientService
	benchmarkService service.BenchmarkService
	mediaService     service.MediaService
}

func NewClientHandler(
	clientService service.ClientService,
	benchmarkService service.BenchmarkService,
	mediaService service.MediaService,
) *ClientHandler {
	return &ClientHandler{
		clientService:    clientService,
		benchmarkService: benchmarkService,
		mediaService:     mediaService,
	}
}

// --- DTOs ---

// MapLogToResponse returns a copy of wl with stored media references presigned.
func MapLogToResponse(ctx context.Context, media service.MediaService, wl domain.WorkoutLog) domain.WorkoutLog {
	exercises := make([]domain.ExerciseRecord, len(wl.Exercises))
	for i, rec := range wl.Exercises {
		rec = rec.Canonical()
		rec.VideoURL = media.ResolveURL(ctx, rec.VideoURL)
		for j, img := range rec.ImageURLs {
			rec.ImageURLs[j] = media.ResolveURL(ctx, img)
		}
		exercises[i] = rec
	}
	wl.Exercises = exercises
	return wl
}

// --- Handler Methods for Client ---

// GetMyLogs godoc
// @Summary List my workout logs
// @Description Finished workouts and saved drafts, newest first.
// @Tags Logs
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.WorkoutLog
// @Router /logs [get]
func (h *ClientHandler) GetMyLogs(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	logs, err := h.clientService.GetMyLogs(c.Request.Context(), userID)
	if err != nil {
		log.WithField("userId", userID.Hex()).Errorf("failed to list workout logs: %s", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve workout logs.")
		return
	}

	resp := make([]domain.WorkoutLog, len(logs))
	for i, wl := range logs {
		resp[i] = MapLogToResponse(c.Request.Context(), h.mediaService, wl)
	}
	c.JSON(http.StatusOK, resp)
}

// GetLog godoc
// @Summary Get one of my workout logs
// @Tags Logs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Workout log ID"
// @Success 200 {object} domain.WorkoutLog
// @Failure 403 {object} gin.H "Not your log"
// @Failure 404 {object} gin.H "Log not found"
// @Router /logs/{id} [get]
func (h *ClientHandler) GetLog(c *gin.Context) {
	logID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	wl, err := h.clientService.GetLog(c.Request.Context(), userID, logID)
	if err != nil {
		abortWithLogError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapLogToResponse(c.Request.Context(), h.mediaService, *wl))
}

// DeleteLog godoc
// @Summary Delete one of my workout logs
// @Tags Logs
// @Security BearerAuth
// @Param id path string true "Workout log ID"
// @Success 204
// @Router /logs/{id} [delete]
func (h *ClientHandler) DeleteLog(c *gin.Context) {
	logID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.clientService.DeleteLog(c.Request.Context(), userID, logID); err != nil {
		abortWithLogError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetBenchmarks godoc
// @Summary Best previous set per exercise
// @Description Repeat exerciseId, or pass a comma separated list. Exercises without usable history are omitted.
// @Tags Logs
// @Produce json
// @Security BearerAuth
// @Param exerciseId query []string true "Exercise IDs"
// @Param exclude query string false "Workout log ID to ignore"
// @Success 200 {object} map[string]domain.Set
// @Router /benchmarks [get]
func (h *ClientHandler) GetBenchmarks(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var ids []string
	for _, raw := range c.QueryArray("exerciseId") {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		abortWithError(c, http.StatusBadRequest, "At least one exerciseId is required.")
		return
	}
	exclude := primitive.NilObjectID
	if raw := c.Query("exclude"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid exclude format.")
			return
		}
		exclude = id
	}

	best, err := h.benchmarkService.Lookup(c.Request.Context(), userID, ids, exclude)
	if err != nil {
		log.WithField("userId", userID.Hex()).Errorf("benchmark lookup failed: %s", err)
		abortWithError(c, http.StatusServiceUnavailable, "Failed to look up previous results.")
		return
	}
	c.JSON(http.StatusOK, best)
}

// GetMyAssignments godoc
// @Summary Get my assigned programs
// @Description Assignments of the authenticated client with their workout templates.
// @Tags Client
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.AssignmentDetails
// @Router /client/assignments [get]
func (h *ClientHandler) GetMyAssignments(c *gin.Context) {
	clientID, ok := requireUserID(c)
	if !ok {
		return
	}

	details, err := h.clientService.GetMyAssignments(c.Request.Context(), clientID)
	if err != nil {
		log.WithField("userId", clientID.Hex()).Errorf("failed to list assignments: %s", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve assignments.")
		return
	}
	c.JSON(http.StatusOK, details)
}

func abortWithLogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLogNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrLogAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	default:
		log.Errorf("workout log request failed: %s", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to process workout log.")
	}
}

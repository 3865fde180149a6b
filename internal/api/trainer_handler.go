// internal/api/trainer_handler.go
package api

import (
	"alcyxob/fitness-tracker/internal/domain"
	"alcyxob/fitness-tracker/internal/service"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TrainerHandler struct {
	trainerService service.TrainerService
}

func NewTrainerHandler(trainerService service.TrainerService) *TrainerHandler {
	return &TrainerHandler{trainerService: trainerService}
}

// --- DTOs for Client Management ---
type AddClientRequest struct {
	ClientEmail string `json:"clientEmail" binding:"required,email"`
}

// --- DTOs for Templates ---

type TemplateExerciseRequest struct {
	ExerciseID string       `json:"exerciseId" binding:"required"`
	Sets       []domain.Set `json:"sets"` // planned sets, optional
}

type TemplateRequest struct {
	Name        string                    `json:"name" binding:"required"`
	Description string                    `json:"description"`
	Exercises   []TemplateExerciseRequest `json:"exercises" binding:"required,min=1,dive"`
}

func (r TemplateRequest) input() service.TemplateInput {
	in := service.TemplateInput{
		Name:        r.Name,
		Description: r.Description,
		Exercises:   make([]service.TemplateExerciseInput, len(r.Exercises)),
	}
	for i, e := range r.Exercises {
		in.Exercises[i] = service.TemplateExerciseInput{ExerciseID: e.ExerciseID, Sets: e.Sets}
	}
	return in
}

// --- DTOs for Assignments ---

type AssignProgramRequest struct {
	ClientID   string     `json:"clientId" binding:"required"`
	TemplateID string     `json:"templateId" binding:"required"`
	DueDate    *time.Time `json:"dueDate"`
	Notes      string     `json:"notes"`
}

// --- Handler Methods for Client Management ---

// AddClientByEmail godoc
// @Summary Add a client to the trainer's roster by email
// @Description Associates an existing client user with the authenticated trainer.
// @Tags Trainer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clientRequest body AddClientRequest true "Client's email"
// @Success 200 {object} UserResponse "Client successfully added/associated"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "Forbidden (client already has a trainer, or user is not a client)"
// @Failure 404 {object} gin.H "Client not found"
// @Router /trainer/clients [post]
func (h *TrainerHandler) AddClientByEmail(c *gin.Context) {
	var req AddClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	trainerID, ok := requireUserID(c)
	if !ok {
		return
	}

	client, err := h.trainerService.AddClientByEmail(c.Request.Context(), trainerID, req.ClientEmail)
	if err != nil {
		abortWithTrainerError(c, err, "Failed to add client.")
		return
	}

	c.JSON(http.StatusOK, MapUserToResponse(client))
}

// GetManagedClients godoc
// @Summary Get the trainer's managed clients
// @Tags Trainer
// @Produce json
// @Security BearerAuth
// @Success 200 {array} UserResponse "List of managed clients"
// @Router /trainer/clients [get]
func (h *TrainerHandler) GetManagedClients(c *gin.Context) {
	trainerID, ok := requireUserID(c)
	if !ok {
		return
	}

	clients, err := h.trainerService.GetManagedClients(c.Request.Context(), trainerID)
	if err != nil {
		abortWithTrainerError(c, err, "Failed to retrieve managed clients.")
		return
	}

	c.JSON(http.StatusOK, MapUsersToResponse(clients))
}

// --- Handler Methods for Templates ---

// CreateTemplate godoc
// @Summary Create a workout template
// @Tags Trainer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param template body TemplateRequest true "Template"
// @Success 201 {object} domain.WorkoutTemplate
// @Failure 400 {object} gin.H "Invalid input or unknown exercise"
// @Router /trainer/templates [post]
func (h *TrainerHandler) CreateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	trainerID, ok := requireUserID(c)
	if !ok {
		return
	}

	template, err := h.trainerService.CreateTemplate(c.Request.Context(), trainerID, req.input())
	if err != nil {
		abortWithTrainerError(c, err, "Failed to create template.")
		return
	}
	c.JSON(http.StatusCreated, template)
}

// GetTemplates godoc
// @Summary List the trainer's workout templates
// @Tags Trainer
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.WorkoutTemplate
// @Router /trainer/templates [get]
func (h *TrainerHandler) GetTemplates(c *gin.Context) {
	trainerID, ok := requireUserID(c)
	if !ok {
		return
	}

	templates, err := h.trainerService.GetTemplates(c.Request.Context(), trainerID)
	if err != nil {
		abortWithTrainerError(c, err, "Failed to retrieve templates.")
		return
	}
	if templates == nil {
		templates = []domain.WorkoutTemplate{}
	}
	c.JSON(http.StatusOK, templates)
}

// UpdateTemplate godoc
// @Summary Replace a workout template
// @Tags Trainer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param templateId path string true "Template ID"
// @Param template body TemplateRequest true "Template"
// @Success 200 {object} domain.WorkoutTemplate
// @Router /trainer/templates/{templateId} [put]
func (h *TrainerHandler) UpdateTemplate(c *gin.Context) {
	templateID, ok := pathObjectID(c, "templateId")
	if !ok {
		return
	}
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	trainerID, ok := requireUserID(c)
	if !ok {
		return
	}

	template, err := h.trainerService.UpdateTemplate(c.Request.Context(), trainerID, templateID, req.input())
	if err != nil {
		abortWithTrainerError(c, err, "Failed to update template.")
		return
	}
	c.JSON(http.StatusOK, template)
}

// DeleteTemplate godoc
// @Summary Delete a workout template
// @Tags Trainer
// @Security BearerAuth
// @Param templateId path string true "Template ID"
// @Success 204
// @Router /trainer/templates/{templateId} [delete]
func (h *TrainerHandler) DeleteTemplate(c *gin.Context) {
	templateID, ok := pathObjectID(c, "templateId")
	if !ok {
		return
	}
	trainerID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.trainerService.DeleteTemplate(c.Request.Context(), trainerID, templateID); err != nil {
		abortWithTrainerError(c, err, "Failed to delete template.")
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Handler Methods for Assignments ---

// AssignProgram godoc
// @Summary Assign a template to a managed client
// @Tags Trainer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param assignment body AssignProgramRequest true "Assignment"
// @Success 201 {object} domain.Assignment
// @Failure 403 {object} gin.H "Client not managed by this trainer, or template not owned"
// @Router /trainer/assignments [post]
func (h *TrainerHandler) AssignProgram(c *gin.Context) {
	var req AssignProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	clientID, err := primitive.ObjectIDFromHex(req.ClientID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid clientId format.")
		return
	}
	templateID, err := primitive.ObjectIDFromHex(req.TemplateID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid templateId format.")
		return
	}
	trainerID, ok := requireUserID(c)
	if !ok {
		return
	}

	assignment, err := h.trainerService.AssignProgram(c.Request.Context(), trainerID, clientID, templateID, req.DueDate, req.Notes)
	if err != nil {
		abortWithTrainerError(c, err, "Failed to assign program.")
		return
	}
	c.JSON(http.StatusCreated, assignment)
}

// GetAssignments godoc
// @Summary List the assignments the trainer created
// @Tags Trainer
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Assignment
// @Router /trainer/assignments [get]
func (h *TrainerHandler) GetAssignments(c *gin.Context) {
	trainerID, ok := requireUserID(c)
	if !ok {
		return
	}

	assignments, err := h.trainerService.GetAssignmentsByTrainer(c.Request.Context(), trainerID)
	if err != nil {
		abortWithTrainerError(c, err, "Failed to retrieve assignments.")
		return
	}
	if assignments == nil {
		assignments = []domain.Assignment{}
	}
	c.JSON(http.StatusOK, assignments)
}

func abortWithTrainerError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrValidationFailed), errors.Is(err, service.ErrExerciseNotFound):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrClientNotFound), errors.Is(err, service.ErrTemplateNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrClientNotRole),
		errors.Is(err, service.ErrClientAlreadyAssigned),
		errors.Is(err, service.ErrClientNotManaged),
		errors.Is(err, service.ErrTemplateAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	default:
		log.Errorf("%s %s", fallback, err)
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}

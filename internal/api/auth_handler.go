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

// AuthHandler serves the caller's profile. Accounts live with the identity provider.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// --- Request/Response Structs ---

type SyncProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email" binding:"omitempty,email"`
}

// UserResponse is the public view of a profile.
type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
	ClientIDs []string    `json:"clientIds,omitempty"` // Use string ObjectIDs
	TrainerID *string     `json:"trainerId,omitempty"` // Use string ObjectID
}

// --- Handler Methods ---

// SyncProfile godoc
// @Summary Create or refresh the caller's profile
// @Description Mirrors the identity provider's account locally. Body fields override the token's.
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body SyncProfileRequest false "Profile overrides"
// @Success 200 {object} UserResponse
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 409 {object} gin.H "Email already used by another account"
// @Router /me [put]
func (h *AuthHandler) SyncProfile(c *gin.Context) {
	var req SyncProfileRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
			return
		}
	}

	claims, err := getClaimsFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	user, err := h.authService.SyncProfile(c.Request.Context(), claims, req.Name, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidationFailed):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrEmailInUse):
			abortWithError(c, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		default:
			log.WithField("userId", claims.UserID.Hex()).Errorf("profile sync failed: %s", err)
			abortWithError(c, http.StatusInternalServerError, "Could not save profile.")
		}
		return
	}

	c.JSON(http.StatusOK, MapUserToResponse(user))
}

// GetProfile godoc
// @Summary Get the caller's profile
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 404 {object} gin.H "Profile not synced yet"
// @Router /me [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load profile.")
		}
		return
	}

	c.JSON(http.StatusOK, MapUserToResponse(user))
}

// MapUserToResponse converts a domain User to a UserResponse DTO.
func MapUserToResponse(user *domain.User) UserResponse {
	if user == nil {
		return UserResponse{}
	}

	resp := UserResponse{
		ID:        user.ID.Hex(),
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}

	if len(user.ClientIDs) > 0 {
		resp.ClientIDs = make([]string, len(user.ClientIDs))
		for i, id := range user.ClientIDs {
			resp.ClientIDs[i] = id.Hex()
		}
	}

	if user.TrainerID != nil && *user.TrainerID != primitive.NilObjectID {
		trainerIDHex := user.TrainerID.Hex()
		resp.TrainerID = &trainerIDHex
	}

	return resp
}

// MapUsersToResponse converts a slice of domain.User to UserResponse DTOs.
func MapUsersToResponse(users []domain.User) []UserResponse {
	userResponses := make([]UserResponse, len(users))
	for i := range users {
		userResponses[i] = MapUserToResponse(&users[i])
	}
	return userResponses
}

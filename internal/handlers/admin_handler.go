package handlers

import (
	"net/http"

	"academyapp/internal/config"
	"academyapp/internal/observability"
	"academyapp/internal/services"
	contextutils "academyapp/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// AdminHandler handles admin-only HTTP requests
type AdminHandler struct {
	userService     *services.UserService
	attemptService  *services.AttemptService
	progressService *services.ProgressService
	config          *config.Config
	logger          *observability.Logger
}

// NewAdminHandler creates a new AdminHandler instance
func NewAdminHandler(userService *services.UserService, attemptService *services.AttemptService, progressService *services.ProgressService, cfg *config.Config, logger *observability.Logger) *AdminHandler {
	return &AdminHandler{
		userService:     userService,
		attemptService:  attemptService,
		progressService: progressService,
		config:          cfg,
		logger:          logger,
	}
}

// ResetPasswordRequest is the admin password-reset request body.
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// GetAllUsers lists every user account.
func (h *AdminHandler) GetAllUsers(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_get_all_users")
	defer observability.FinishSpan(span, nil)

	users, err := h.userService.GetAllUsers(c.Request.Context())
	if err != nil {
		HandleAppError(c, err)
		return
	}

	responses := make([]UserResponse, len(users))
	for i, user := range users {
		responses[i] = convertUserToResponse(user)
	}
	span.SetAttributes(attribute.Int("user.count", len(responses)))

	c.JSON(http.StatusOK, gin.H{"users": responses})
}

// DeleteUser removes a user account together with its nested progress and
// attempt records.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_delete_user")
	defer observability.FinishSpan(span, nil)

	userID := c.Param("id")
	span.SetAttributes(observability.AttributeUserID(userID))

	if err := h.userService.DeleteUser(c.Request.Context(), userID); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ResetUserPassword sets a new password on a user account.
func (h *AdminHandler) ResetUserPassword(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_reset_user_password")
	defer observability.FinishSpan(span, nil)

	userID := c.Param("id")
	span.SetAttributes(observability.AttributeUserID(userID))

	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}

	if err := h.userService.UpdateUserPassword(c.Request.Context(), userID, req.NewPassword); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetUserQuizRecords returns a user's attempt history across all quizzes.
func (h *AdminHandler) GetUserQuizRecords(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_get_user_quiz_records")
	defer observability.FinishSpan(span, nil)

	userID := c.Param("id")
	span.SetAttributes(observability.AttributeUserID(userID))

	records, err := h.attemptService.GetAllRecords(c.Request.Context(), userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "records": records})
}

// GetUserEnrollments returns a user's per-course progress summaries.
func (h *AdminHandler) GetUserEnrollments(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_get_user_enrollments")
	defer observability.FinishSpan(span, nil)

	userID := c.Param("id")
	span.SetAttributes(observability.AttributeUserID(userID))

	enrollments, err := h.progressService.ListEnrollments(c.Request.Context(), userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "enrollments": enrollments})
}

// GetConfigz dumps the running configuration with secrets redacted.
func (h *AdminHandler) GetConfigz(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_get_configz")
	defer observability.FinishSpan(span, nil)

	sanitized := *h.config
	sanitized.Server.AdminPassword = "[redacted]"
	sanitized.Server.SessionSecret = "[redacted]"
	sanitized.Email.SMTP.Password = "[redacted]"
	sanitized.Database.URI = "[redacted]"

	c.JSON(http.StatusOK, sanitized)
}

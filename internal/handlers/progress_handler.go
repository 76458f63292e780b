package handlers

import (
	"net/http"
	"strconv"

	"academyapp/internal/catalog"
	"academyapp/internal/config"
	"academyapp/internal/models"
	"academyapp/internal/observability"
	"academyapp/internal/services"
	contextutils "academyapp/internal/utils"

	"github.com/gin-gonic/gin"
)

// ProgressHandler handles course catalog and progress-tracking HTTP requests
type ProgressHandler struct {
	progressService *services.ProgressService
	catalog         *catalog.Catalog
	config          *config.Config
	logger          *observability.Logger
}

// NewProgressHandler creates a new ProgressHandler instance
func NewProgressHandler(progressService *services.ProgressService, cat *catalog.Catalog, cfg *config.Config, logger *observability.Logger) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		catalog:         cat,
		config:          cfg,
		logger:          logger,
	}
}

// VideoEndedRequest reports a video played to completion.
type VideoEndedRequest struct {
	Week       int    `json:"week" binding:"required,min=1"`
	VideoTitle string `json:"video_title" binding:"required"`
}

// CompleteItemRequest marks one tracked content item complete.
type CompleteItemRequest struct {
	Week        int    `json:"week" binding:"required,min=1"`
	ContentType string `json:"content_type" binding:"required,oneof=lessons videos readings assignments"`
	Title       string `json:"title" binding:"required"`
}

// ListCourses returns the course catalog.
func (h *ProgressHandler) ListCourses(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "list_courses")
	defer observability.FinishSpan(span, nil)

	courses := h.catalog.Courses()
	summaries := make([]CourseSummary, len(courses))
	for i, course := range courses {
		summaries[i] = convertCourseToSummary(course)
	}

	c.JSON(http.StatusOK, gin.H{"courses": summaries})
}

// GetCourse returns one full course definition.
func (h *ProgressHandler) GetCourse(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_course")
	defer observability.FinishSpan(span, nil)

	courseID := c.Param("courseID")
	span.SetAttributes(observability.AttributeCourseID(courseID))

	course, err := h.catalog.Course(courseID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, convertCourseToDetail(course))
}

// Enroll enrolls the caller in a course. Enrolling twice is a no-op.
func (h *ProgressHandler) Enroll(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "enroll")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	courseID := c.Param("courseID")
	span.SetAttributes(observability.AttributeUserID(userID), observability.AttributeCourseID(courseID))

	if err := h.progressService.Enroll(c.Request.Context(), userID, courseID); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "course_id": courseID})
}

// GetProgress returns the caller's progress in one course.
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_progress")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	courseID := c.Param("courseID")
	span.SetAttributes(observability.AttributeUserID(userID), observability.AttributeCourseID(courseID))

	view, err := h.progressService.GetProgress(c.Request.Context(), userID, courseID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// ListEnrollments returns a summary row per course the caller is enrolled in.
func (h *ProgressHandler) ListEnrollments(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "list_enrollments")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	enrollments, err := h.progressService.ListEnrollments(c.Request.Context(), userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"enrollments": enrollments})
}

// VideoEnded counts one completed video playback for the caller.
func (h *ProgressHandler) VideoEnded(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "video_ended")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	courseID := c.Param("courseID")

	var req VideoEndedRequest
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

	span.SetAttributes(
		observability.AttributeUserID(userID),
		observability.AttributeCourseID(courseID),
		observability.AttributeWeek(req.Week),
		observability.AttributeVideoTitle(req.VideoTitle),
	)

	if err := h.progressService.VideoEnded(c.Request.Context(), userID, courseID, req.Week, req.VideoTitle); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CompleteItem marks a tracked content item as completed for the caller.
func (h *ProgressHandler) CompleteItem(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "complete_item")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	courseID := c.Param("courseID")

	var req CompleteItemRequest
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

	span.SetAttributes(
		observability.AttributeUserID(userID),
		observability.AttributeCourseID(courseID),
		observability.AttributeWeek(req.Week),
	)

	err := h.progressService.CompleteItem(c.Request.Context(), userID, courseID, req.Week, models.ContentType(req.ContentType), req.Title)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// OpenWeek records the caller's last-accessed week in a course.
func (h *ProgressHandler) OpenWeek(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "open_week")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	courseID := c.Param("courseID")

	week, err := strconv.Atoi(c.Param("week"))
	if err != nil || week < 1 {
		HandleValidationError(c, "week", c.Param("week"), "must be a positive week number")
		return
	}

	span.SetAttributes(
		observability.AttributeUserID(userID),
		observability.AttributeCourseID(courseID),
		observability.AttributeWeek(week),
	)

	if err := h.progressService.OpenWeek(c.Request.Context(), userID, courseID, week); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

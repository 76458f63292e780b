package handlers

import (
	"net/http"

	"academyapp/internal/catalog"
	"academyapp/internal/config"
	"academyapp/internal/observability"
	"academyapp/internal/services"
	contextutils "academyapp/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// QuizHandler handles quiz session and attempt-history HTTP requests
type QuizHandler struct {
	quizService    *services.QuizService
	attemptService *services.AttemptService
	catalog        *catalog.Catalog
	config         *config.Config
	logger         *observability.Logger
}

// NewQuizHandler creates a new QuizHandler instance
func NewQuizHandler(quizService *services.QuizService, attemptService *services.AttemptService, cat *catalog.Catalog, cfg *config.Config, logger *observability.Logger) *QuizHandler {
	return &QuizHandler{
		quizService:    quizService,
		attemptService: attemptService,
		catalog:        cat,
		config:         cfg,
		logger:         logger,
	}
}

// AnswerRequest is the answer-selection request body.
type AnswerRequest struct {
	QuestionIndex int    `json:"question_index" binding:"min=0"`
	Answer        string `json:"answer" binding:"required"`
}

// ListQuizzes returns the quiz catalog without question content.
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "list_quizzes")
	defer observability.FinishSpan(span, nil)

	quizzes := h.catalog.Quizzes()
	summaries := make([]QuizSummary, len(quizzes))
	for i, quiz := range quizzes {
		summaries[i] = QuizSummary{
			ID:             quiz.ID,
			Title:          quiz.Title,
			TotalQuestions: len(quiz.Questions),
			PassThreshold:  services.PassThreshold(len(quiz.Questions), h.config.PassThresholdRatio()),
			MaxAttempts:    h.config.MaxQuizAttempts(),
		}
	}
	span.SetAttributes(attribute.Int("quiz.count", len(summaries)))

	c.JSON(http.StatusOK, gin.H{"quizzes": summaries})
}

// GetQuizRecord returns the caller's attempt history for one quiz.
func (h *QuizHandler) GetQuizRecord(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_quiz_record")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	quizID := c.Param("quizID")

	span.SetAttributes(observability.AttributeUserID(userID), observability.AttributeQuizID(quizID))

	if _, err := h.catalog.Quiz(quizID); err != nil {
		HandleAppError(c, err)
		return
	}

	record, err := h.attemptService.GetRecord(c.Request.Context(), userID, quizID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quiz_id":            quizID,
		"attempts":           record.Attempts,
		"has_passed_quiz":    record.HasPassedQuiz,
		"latest_score":       record.LatestAttemptScore,
		"attempts_remaining": record.AttemptsRemaining(h.config.MaxQuizAttempts()),
	})
}

// GetAllQuizRecords returns the caller's attempt history for every quiz
// they have attempted.
func (h *QuizHandler) GetAllQuizRecords(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_all_quiz_records")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	records, err := h.attemptService.GetAllRecords(c.Request.Context(), userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": records})
}

// StartSession starts (or resumes) a quiz session for the caller.
func (h *QuizHandler) StartSession(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "start_session")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	quizID := c.Param("quizID")
	span.SetAttributes(observability.AttributeUserID(userID), observability.AttributeQuizID(quizID))

	view, err := h.quizService.StartSession(c.Request.Context(), userID, quizID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetSession returns the current state of the caller's session.
func (h *QuizHandler) GetSession(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_session")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	quizID := c.Param("quizID")
	span.SetAttributes(observability.AttributeUserID(userID), observability.AttributeQuizID(quizID))

	view, err := h.quizService.GetSession(c.Request.Context(), userID, quizID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SelectAnswer records the caller's answer selection for the current question.
func (h *QuizHandler) SelectAnswer(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "select_answer")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	quizID := c.Param("quizID")

	var req AnswerRequest
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
		observability.AttributeQuizID(quizID),
		observability.AttributeQuestionIndex(req.QuestionIndex),
	)

	view, err := h.quizService.SelectAnswer(c.Request.Context(), userID, quizID, req.QuestionIndex, req.Answer)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// NextQuestion advances the session to the next question.
func (h *QuizHandler) NextQuestion(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "next_question")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	quizID := c.Param("quizID")
	span.SetAttributes(observability.AttributeUserID(userID), observability.AttributeQuizID(quizID))

	view, err := h.quizService.NextQuestion(c.Request.Context(), userID, quizID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Submit grades the session on its final question and records the attempt.
func (h *QuizHandler) Submit(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "submit")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	quizID := c.Param("quizID")
	span.SetAttributes(observability.AttributeUserID(userID), observability.AttributeQuizID(quizID))

	view, err := h.quizService.Submit(c.Request.Context(), userID, quizID)
	if err != nil {
		// A persistence failure after grading keeps the graded session in
		// memory; the client can retry via GetSession once the store recovers.
		if contextutils.IsRetryable(err) {
			h.logger.Warn(c.Request.Context(), "Attempt persistence failed, graded session retained", map[string]interface{}{
				"user_id": userID,
				"quiz_id": quizID,
			})
		}
		HandleAppError(c, err)
		return
	}

	if view.Result != nil {
		span.SetAttributes(
			observability.AttributeScore(view.Result.Summary.Score),
			attribute.Bool("quiz.passed", view.Result.HasPassed),
		)
	}

	c.JSON(http.StatusOK, view)
}

// PlayAgain restarts a submitted, unpassed session with a fresh attempt.
func (h *QuizHandler) PlayAgain(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "play_again")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	quizID := c.Param("quizID")
	span.SetAttributes(observability.AttributeUserID(userID), observability.AttributeQuizID(quizID))

	view, err := h.quizService.PlayAgain(c.Request.Context(), userID, quizID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// EndSession discards the caller's in-memory session without grading.
func (h *QuizHandler) EndSession(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "end_session")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	quizID := c.Param("quizID")
	span.SetAttributes(observability.AttributeUserID(userID), observability.AttributeQuizID(quizID))

	h.quizService.EndSession(userID, quizID)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

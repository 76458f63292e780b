package services

import (
	"context"
	"time"

	"academyapp/internal/config"
	"academyapp/internal/models"
	"academyapp/internal/observability"
	"academyapp/internal/services/mailer"
	contextutils "academyapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// AttemptResult is what a graded submission reports back to the caller.
type AttemptResult struct {
	QuizID            string       `json:"quiz_id"`
	Summary           ScoreSummary `json:"summary"`
	AttemptsRemaining int          `json:"attempts_remaining"`
	HasPassed         bool         `json:"has_passed"`
}

// AttemptService records graded quiz attempts against the attempt store and
// enforces the attempt cap and the sticky pass flag.
type AttemptService struct {
	store  AttemptRecordStore
	users  UserAccountStore
	mail   mailer.Mailer
	cfg    *config.Config
	logger *observability.Logger
}

// NewAttemptService creates a new attempt service. The mailer may be nil when
// pass notifications are disabled.
func NewAttemptService(store AttemptRecordStore, users UserAccountStore, mail mailer.Mailer, cfg *config.Config, logger *observability.Logger) *AttemptService {
	return &AttemptService{
		store:  store,
		users:  users,
		mail:   mail,
		cfg:    cfg,
		logger: logger,
	}
}

// GetRecord returns the user's attempt record for the quiz. Users who never
// attempted it get an empty record.
func (s *AttemptService) GetRecord(ctx context.Context, userID, quizID string) (result0 *models.QuizRecord, err error) {
	ctx, span := observability.TraceQuizFunction(ctx, "GetRecord",
		observability.AttributeUserID(userID),
		observability.AttributeQuizID(quizID),
	)
	defer observability.FinishSpan(span, &err)

	return s.store.GetRecord(ctx, userID, quizID)
}

// GetAllRecords returns every attempt record for the user keyed by quiz ID.
func (s *AttemptService) GetAllRecords(ctx context.Context, userID string) (result0 map[string]models.QuizRecord, err error) {
	ctx, span := observability.TraceQuizFunction(ctx, "GetAllRecords",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	return s.store.GetAllRecords(ctx, userID)
}

// CanAttempt reports whether the user may start (or restart) the quiz.
func (s *AttemptService) CanAttempt(ctx context.Context, userID, quizID string) (result0 bool, result1 *models.QuizRecord, err error) {
	ctx, span := observability.TraceQuizFunction(ctx, "CanAttempt",
		observability.AttributeUserID(userID),
		observability.AttributeQuizID(quizID),
	)
	defer observability.FinishSpan(span, &err)

	record, err := s.store.GetRecord(ctx, userID, quizID)
	if err != nil {
		return false, nil, err
	}
	return record.CanAttempt(s.cfg.MaxQuizAttempts()), record, nil
}

// RecordAttempt appends one graded attempt. The store applies the append as a
// single guarded update, so even racing submissions can neither exceed the
// attempt cap nor add attempts to a passed quiz. A write rejected by those
// guards surfaces as attempt-limit or already-passed based on a fresh read.
func (s *AttemptService) RecordAttempt(ctx context.Context, userID string, quiz *models.Quiz, summary ScoreSummary) (result0 *AttemptResult, err error) {
	ctx, span := observability.TraceQuizFunction(ctx, "RecordAttempt",
		observability.AttributeUserID(userID),
		observability.AttributeQuizID(quiz.ID),
		observability.AttributeScore(summary.Score),
		attribute.Bool("quiz.passed", summary.Passed),
	)
	defer observability.FinishSpan(span, &err)

	maxAttempts := s.cfg.MaxQuizAttempts()
	attempt := models.QuizAttempt{
		Score: summary.Score,
		Date:  time.Now().UTC(),
	}

	applied, err := s.store.AppendAttempt(ctx, userID, quiz.ID, attempt, summary.Passed, maxAttempts)
	if err != nil {
		return nil, err
	}
	if !applied {
		record, recErr := s.store.GetRecord(ctx, userID, quiz.ID)
		if recErr != nil {
			return nil, recErr
		}
		if record.HasPassedQuiz {
			return nil, contextutils.ErrQuizAlreadyPassed
		}
		return nil, contextutils.ErrAttemptLimitReached
	}

	record, err := s.store.GetRecord(ctx, userID, quiz.ID)
	if err != nil {
		return nil, err
	}

	result := &AttemptResult{
		QuizID:            quiz.ID,
		Summary:           summary,
		AttemptsRemaining: record.AttemptsRemaining(maxAttempts),
		HasPassed:         record.HasPassedQuiz,
	}

	s.logger.Info(ctx, "Quiz attempt recorded", map[string]interface{}{
		"user_id":            userID,
		"quiz_id":            quiz.ID,
		"score":              summary.Score,
		"total":              summary.Total,
		"passed":             summary.Passed,
		"attempts_remaining": result.AttemptsRemaining,
	})

	if summary.Passed {
		s.notifyPass(ctx, userID, quiz, summary)
	}
	return result, nil
}

// notifyPass sends the one-time congratulation email. Failures are logged,
// never surfaced; the attempt is already recorded.
func (s *AttemptService) notifyPass(ctx context.Context, userID string, quiz *models.Quiz, summary ScoreSummary) {
	if s.mail == nil || !s.mail.IsEnabled() {
		return
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn(ctx, "Could not load user for pass notification", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return
	}
	if err := s.mail.SendQuizPassedNotification(ctx, user, quiz.Title, summary.Score, summary.Total); err != nil {
		s.logger.Warn(ctx, "Failed to send pass notification", map[string]interface{}{
			"user_id": userID,
			"quiz_id": quiz.ID,
			"error":   err.Error(),
		})
	}
}

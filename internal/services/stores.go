// Package services provides the business logic for the academy application.
package services

import (
	"context"

	"academyapp/internal/models"
)

// UserAccountStore persists user accounts.
type UserAccountStore interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetAdmin(ctx context.Context, id string, isAdmin bool) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.User, error)
}

// ProgressRecordStore persists per-course progress. Implementations must
// apply each write as a single atomic field update.
type ProgressRecordStore interface {
	Enroll(ctx context.Context, userID, courseID string) (bool, error)
	Get(ctx context.Context, userID, courseID string) (*models.CourseProgress, error)
	IncrementWatchCount(ctx context.Context, userID, courseID string, week int, videoTitle string, maxCount int) (bool, error)
	MarkItemComplete(ctx context.Context, userID, courseID string, week int, contentType models.ContentType, title string) error
	MarkWeekComplete(ctx context.Context, userID, courseID string, week int) error
	SetLastAccessedWeek(ctx context.Context, userID, courseID string, week int) error
}

// AttemptRecordStore persists quiz attempt records. AppendAttempt must
// enforce the attempt cap and the sticky pass flag in the write itself, so
// concurrent submissions cannot exceed either.
type AttemptRecordStore interface {
	AppendAttempt(ctx context.Context, userID, quizID string, attempt models.QuizAttempt, passed bool, maxAttempts int) (bool, error)
	GetRecord(ctx context.Context, userID, quizID string) (*models.QuizRecord, error)
	GetAllRecords(ctx context.Context, userID string) (map[string]models.QuizRecord, error)
}

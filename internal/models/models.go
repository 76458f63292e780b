// Package models defines data structures used throughout the academy application.
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a user document in the Users collection. Progress and quiz
// attempt records are nested under the user and created lazily on first
// interaction; deleting the user removes them all.
type User struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Username     string             `json:"username" bson:"username"`
	Email        string             `json:"email" bson:"email"`
	PasswordHash string             `json:"-" bson:"passwordHash"` // Omit from JSON responses
	IsAdmin      bool               `json:"is_admin" bson:"isAdmin,omitempty"`
	CreatedAt    time.Time          `json:"created_at" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updatedAt"`

	// UserProgress maps course ID to per-course completion state.
	UserProgress map[string]CourseProgress `json:"user_progress,omitempty" bson:"userProgress,omitempty"`
	// QuizzesTaken maps quiz ID to attempt history.
	QuizzesTaken map[string]QuizRecord `json:"quizzes_taken,omitempty" bson:"quizzesTaken,omitempty"`
}

// HexID returns the user's object ID as a hex string.
func (u *User) HexID() string {
	return u.ID.Hex()
}

// QuizAttempt is one submitted pass through a quiz's questions.
type QuizAttempt struct {
	Score int       `json:"score" bson:"score"`
	Date  time.Time `json:"date" bson:"date"`
}

// QuizRecord is the per-user attempt history for one quiz.
// Attempts is append-only, oldest first, bounded by the attempt cap.
// HasPassedQuiz is sticky: once true it is never reset.
type QuizRecord struct {
	Attempts           []QuizAttempt `json:"attempts" bson:"attempts,omitempty"`
	HasPassedQuiz      bool          `json:"has_passed_quiz" bson:"hasPassedQuiz,omitempty"`
	LatestAttemptScore int           `json:"latest_attempt_score" bson:"latestAttemptScore,omitempty"`
}

// AttemptsRemaining returns how many attempts are left under the given cap.
func (r QuizRecord) AttemptsRemaining(maxAttempts int) int {
	remaining := maxAttempts - len(r.Attempts)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CanAttempt reports whether a new attempt may be started under the given cap.
func (r QuizRecord) CanAttempt(maxAttempts int) bool {
	return !r.HasPassedQuiz && r.AttemptsRemaining(maxAttempts) > 0
}

// Package mailer defines the interface for outbound email.
package mailer

import (
	"context"

	"academyapp/internal/models"
)

// Mailer defines the interface for email sending functionality
type Mailer interface {
	// SendQuizPassedNotification congratulates a user who just passed a quiz
	SendQuizPassedNotification(ctx context.Context, user *models.User, quizTitle string, score, total int) error

	// SendEmail sends a generic email with the given parameters
	SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) error

	// IsEnabled returns whether email functionality is enabled
	IsEnabled() bool
}

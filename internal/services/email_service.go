package services

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"academyapp/internal/config"
	"academyapp/internal/models"
	"academyapp/internal/observability"
	"academyapp/internal/services/mailer"
	contextutils "academyapp/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/mail.v2"
)

// EmailService implements mailer.Mailer over SMTP using gomail.
type EmailService struct {
	cfg    *config.Config
	logger *observability.Logger
	dialer *mail.Dialer
}

// Ensure EmailService implements the Mailer interface
var _ mailer.Mailer = (*EmailService)(nil)

// NewEmailService creates a new EmailService instance
func NewEmailService(cfg *config.Config, logger *observability.Logger) *EmailService {
	var dialer *mail.Dialer
	if cfg.Email.Enabled && cfg.Email.SMTP.Host != "" {
		dialer = mail.NewDialer(
			cfg.Email.SMTP.Host,
			cfg.Email.SMTP.Port,
			cfg.Email.SMTP.Username,
			cfg.Email.SMTP.Password,
		)
	}

	return &EmailService{
		cfg:    cfg,
		logger: logger,
		dialer: dialer,
	}
}

// SendQuizPassedNotification congratulates a user who just passed a quiz.
func (e *EmailService) SendQuizPassedNotification(ctx context.Context, user *models.User, quizTitle string, score, total int) (err error) {
	ctx, span := otel.Tracer("email-service").Start(ctx, "SendQuizPassedNotification",
		trace.WithAttributes(
			attribute.String("user.id", user.HexID()),
			attribute.String("quiz.title", quizTitle),
		),
	)
	defer observability.FinishSpan(span, &err)

	if !e.IsEnabled() {
		e.logger.Info(ctx, "Email disabled, skipping pass notification", map[string]interface{}{
			"user_id": user.HexID(),
		})
		return nil
	}

	if user.Email == "" {
		e.logger.Warn(ctx, "User has no email address, skipping pass notification", map[string]interface{}{
			"user_id": user.HexID(),
		})
		return nil
	}

	data := map[string]interface{}{
		"Username":    user.Username,
		"QuizTitle":   quizTitle,
		"Score":       score,
		"Total":       total,
		"AppBaseURL":  e.cfg.Server.AppBaseURL,
		"CurrentDate": time.Now().Format("January 2, 2006"),
	}

	subject := fmt.Sprintf("You passed %s! 🎉", quizTitle)

	if err = e.SendEmail(ctx, user.Email, subject, "quiz_passed", data); err != nil {
		return contextutils.WrapError(err, "failed to send pass notification")
	}

	e.logger.Info(ctx, "Pass notification sent", map[string]interface{}{
		"user_id": user.HexID(),
		"quiz":    quizTitle,
	})
	return nil
}

// SendEmail sends a generic email with the given parameters
func (e *EmailService) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) (err error) {
	ctx, span := otel.Tracer("email-service").Start(ctx, "SendEmail",
		trace.WithAttributes(
			attribute.String("email.to", to),
			attribute.String("email.subject", subject),
			attribute.String("email.template", templateName),
		),
	)
	defer observability.FinishSpan(span, &err)

	if !e.IsEnabled() {
		e.logger.Info(ctx, "Email disabled, skipping email send", map[string]interface{}{
			"to":       to,
			"template": templateName,
		})
		return nil
	}

	if e.dialer == nil {
		return contextutils.ErrorWithContextf("email service not properly configured")
	}

	m := mail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", e.cfg.Email.SMTP.FromName, e.cfg.Email.SMTP.FromAddress))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	content, err := e.generateEmailContent(templateName, data)
	if err != nil {
		return contextutils.WrapError(err, "failed to generate email content")
	}

	m.SetBody("text/html", content)

	if err = e.dialer.DialAndSend(m); err != nil {
		e.logger.Error(ctx, "Failed to send email", err, map[string]interface{}{
			"to":       to,
			"template": templateName,
			"subject":  subject,
		})
		return contextutils.WrapError(err, "failed to send email")
	}

	e.logger.Info(ctx, "Email sent successfully", map[string]interface{}{
		"to":       to,
		"template": templateName,
		"subject":  subject,
	})

	return nil
}

// IsEnabled returns whether email functionality is enabled
func (e *EmailService) IsEnabled() bool {
	return e.cfg.Email.Enabled && e.cfg.Email.SMTP.Host != ""
}

// generateEmailContent generates email content from templates
func (e *EmailService) generateEmailContent(templateName string, data map[string]interface{}) (string, error) {
	switch templateName {
	case "quiz_passed":
		return renderTemplate("quiz_passed", quizPassedTemplate, data)
	case "test_email":
		return renderTemplate("test_email", testEmailTemplate, data)
	default:
		return "", contextutils.ErrorWithContextf("unknown template: %s", templateName)
	}
}

func renderTemplate(name, templateStr string, data map[string]interface{}) (string, error) {
	tmpl, err := template.New(name).Parse(templateStr)
	if err != nil {
		return "", contextutils.WrapError(err, "failed to parse template")
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", contextutils.WrapError(err, "failed to execute template")
	}
	return buf.String(), nil
}

const quizPassedTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Quiz Passed</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #4CAF50; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9f9f9; padding: 20px; }
        .button { display: inline-block; background-color: #4CAF50; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; margin: 20px 0; }
        .footer { background-color: #eee; padding: 15px; text-align: center; font-size: 12px; color: #666; border-radius: 0 0 5px 5px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>🎉 Congratulations!</h1>
        </div>
        <div class="content">
            <h2>Well done, {{.Username}}!</h2>
            <p>On {{.CurrentDate}} you passed <strong>{{.QuizTitle}}</strong> with a score of <strong>{{.Score}}/{{.Total}}</strong>.</p>
            <p>Keep the momentum going and move on to the next week.</p>
            <div style="text-align: center;">
                <a href="{{.AppBaseURL}}/courses" class="button">Continue Learning</a>
            </div>
        </div>
        <div class="footer">
            <p>This email was sent by Academy. You only receive it the first time you pass a quiz.</p>
        </div>
    </div>
</body>
</html>`

const testEmailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Test Email</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #2196F3; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9f9f9; padding: 20px; }
        .footer { background-color: #eee; padding: 15px; text-align: center; font-size: 12px; color: #666; border-radius: 0 0 5px 5px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>📧 Test Email</h1>
        </div>
        <div class="content">
            <h2>Hello {{.Username}}!</h2>
            <p>This is a test email to verify that your email settings are working correctly.</p>
            <p><strong>Test Time:</strong> {{.TestTime}}</p>
            <p>If you received this email, your email configuration is working properly!</p>
        </div>
        <div class="footer">
            <p>This is a test email from Academy. No action is required.</p>
        </div>
    </div>
</body>
</html>
`

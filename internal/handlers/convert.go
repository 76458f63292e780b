package handlers

import (
	"academyapp/internal/models"
)

// UserResponse is the learner-facing shape of a user account. The password
// hash never leaves the server.
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

// CourseSummary is one row of the course listing.
type CourseSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Tracking    string `json:"tracking"`
	TotalWeeks  int    `json:"total_weeks"`
}

// WeekResponse is the learner-facing shape of one course week.
type WeekResponse struct {
	Number      int                  `json:"number"`
	Title       string               `json:"title"`
	Lessons     []string             `json:"lessons,omitempty"`
	Videos      []string             `json:"videos,omitempty"`
	Readings    []models.ContentItem `json:"readings,omitempty"`
	Assignments []models.ContentItem `json:"assignments,omitempty"`
	QuizID      string               `json:"quiz_id,omitempty"`
}

// CourseDetail is a full course definition as served to enrolled learners.
type CourseDetail struct {
	CourseSummary
	Weeks []WeekResponse `json:"weeks"`
}

// QuizSummary describes a quiz without exposing its questions.
type QuizSummary struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	TotalQuestions int    `json:"total_questions"`
	PassThreshold  int    `json:"pass_threshold"`
	MaxAttempts    int    `json:"max_attempts"`
}

func convertUserToResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:       user.HexID(),
		Username: user.Username,
		Email:    user.Email,
		IsAdmin:  user.IsAdmin,
	}
}

func convertCourseToSummary(course *models.Course) CourseSummary {
	return CourseSummary{
		ID:          course.ID,
		Title:       course.Title,
		Description: course.Description,
		Tracking:    string(course.Tracking),
		TotalWeeks:  len(course.Weeks),
	}
}

func convertCourseToDetail(course *models.Course) CourseDetail {
	detail := CourseDetail{CourseSummary: convertCourseToSummary(course)}
	detail.Weeks = make([]WeekResponse, len(course.Weeks))
	for i, week := range course.Weeks {
		detail.Weeks[i] = WeekResponse{
			Number:      week.Number,
			Title:       week.Title,
			Lessons:     week.Lessons,
			Videos:      week.Videos,
			Readings:    week.Readings,
			Assignments: week.Assignments,
			QuizID:      week.QuizID,
		}
	}
	return detail
}

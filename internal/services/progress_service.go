package services

import (
	"context"

	"academyapp/internal/config"
	"academyapp/internal/models"
	"academyapp/internal/observability"
	contextutils "academyapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// CourseDirectory resolves course IDs to definitions.
type CourseDirectory interface {
	Course(id string) (*models.Course, error)
}

// ProgressView is the learner-facing shape of one course's progress.
type ProgressView struct {
	CourseID          string                      `json:"course_id"`
	CompletedWeeks    []int                       `json:"completed_weeks"`
	LastAccessedWeek  int                         `json:"last_accessed_week"`
	TotalWeeks        int                         `json:"total_weeks"`
	CompletionPercent float64                     `json:"completion_percent"`
	CompletedItems    map[string]models.WeekItems `json:"completed_items,omitempty"`
	VideoWatchCounts  map[string]map[string]int   `json:"video_watch_counts,omitempty"`
}

// EnrollmentView is one row of a user's enrollment listing.
type EnrollmentView struct {
	CourseID          string  `json:"course_id"`
	Title             string  `json:"title"`
	CompletedWeeks    int     `json:"completed_weeks"`
	TotalWeeks        int     `json:"total_weeks"`
	CompletionPercent float64 `json:"completion_percent"`
}

// ProgressService tracks weekly course progress: video watch gating, item
// completion, and the derived completed-weeks set.
type ProgressService struct {
	store   ProgressRecordStore
	users   UserAccountStore
	courses CourseDirectory
	cfg     *config.Config
	logger  *observability.Logger
}

// NewProgressService creates a new progress service.
func NewProgressService(store ProgressRecordStore, users UserAccountStore, courses CourseDirectory, cfg *config.Config, logger *observability.Logger) *ProgressService {
	return &ProgressService{
		store:   store,
		users:   users,
		courses: courses,
		cfg:     cfg,
		logger:  logger,
	}
}

// Enroll creates the user's progress record for the course. Enrolling twice
// is a no-op.
func (s *ProgressService) Enroll(ctx context.Context, userID, courseID string) (err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "Enroll",
		observability.AttributeUserID(userID),
		observability.AttributeCourseID(courseID),
	)
	defer observability.FinishSpan(span, &err)

	if _, err := s.courses.Course(courseID); err != nil {
		return err
	}

	created, err := s.store.Enroll(ctx, userID, courseID)
	if err != nil {
		return err
	}
	if created {
		s.logger.Info(ctx, "User enrolled in course", map[string]interface{}{
			"user_id":   userID,
			"course_id": courseID,
		})
	}
	return nil
}

// GetProgress returns the user's progress for one course.
func (s *ProgressService) GetProgress(ctx context.Context, userID, courseID string) (result0 *ProgressView, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "GetProgress",
		observability.AttributeUserID(userID),
		observability.AttributeCourseID(courseID),
	)
	defer observability.FinishSpan(span, &err)

	course, err := s.courses.Course(courseID)
	if err != nil {
		return nil, err
	}
	progress, err := s.store.Get(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	return &ProgressView{
		CourseID:          courseID,
		CompletedWeeks:    progress.SortedCompletedWeeks(),
		LastAccessedWeek:  progress.LastAccessedWeek,
		TotalWeeks:        len(course.Weeks),
		CompletionPercent: progress.CompletionPercent(len(course.Weeks)),
		CompletedItems:    progress.CompletedItems,
		VideoWatchCounts:  progress.VideoWatchCounts,
	}, nil
}

// ListEnrollments returns every course the user is enrolled in with its
// completion percentage. Enrollments for courses no longer in the catalog
// are skipped.
func (s *ProgressService) ListEnrollments(ctx context.Context, userID string) (result0 []EnrollmentView, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "ListEnrollments",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]EnrollmentView, 0, len(user.UserProgress))
	for courseID, progress := range user.UserProgress {
		course, err := s.courses.Course(courseID)
		if err != nil {
			continue
		}
		views = append(views, EnrollmentView{
			CourseID:          courseID,
			Title:             course.Title,
			CompletedWeeks:    len(progress.CompletedWeeks),
			TotalWeeks:        len(course.Weeks),
			CompletionPercent: progress.CompletionPercent(len(course.Weeks)),
		})
	}
	return views, nil
}

// VideoEnded handles one completed playback of a video. The watch count is
// capped; events past the cap are no-ops. The first completed playback can
// complete the week (videos-tracked courses), and reaching the cap marks the
// video in the completed-items set.
func (s *ProgressService) VideoEnded(ctx context.Context, userID, courseID string, week int, videoTitle string) (err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "VideoEnded",
		observability.AttributeUserID(userID),
		observability.AttributeCourseID(courseID),
		observability.AttributeWeek(week),
		observability.AttributeVideoTitle(videoTitle),
	)
	defer observability.FinishSpan(span, &err)

	course, courseWeek, err := s.resolveWeek(courseID, week)
	if err != nil {
		return err
	}
	if !courseWeek.HasVideo(videoTitle) {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "video is not part of this week")
	}

	maxCount := s.cfg.MaxVideoWatchCount()
	applied, err := s.store.IncrementWatchCount(ctx, userID, courseID, week, videoTitle, maxCount)
	if err != nil {
		return err
	}
	if !applied {
		// Cap already reached, or the user is not enrolled. Both are no-ops
		// for the count; surface not-enrolled via a progress read.
		if _, err := s.store.Get(ctx, userID, courseID); err != nil {
			return err
		}
		s.logger.Debug(ctx, "Watch count at cap, ignoring playback", map[string]interface{}{
			"user_id": userID, "course_id": courseID, "video": videoTitle,
		})
		return nil
	}

	progress, err := s.store.Get(ctx, userID, courseID)
	if err != nil {
		return err
	}

	if progress.WatchCount(week, videoTitle) >= maxCount {
		if err := s.store.MarkItemComplete(ctx, userID, courseID, week, models.ContentVideos, videoTitle); err != nil {
			return err
		}
	}

	return s.recomputeWeekCompletion(ctx, userID, course, courseWeek, progress)
}

// CompleteItem marks one tracked content item as done and re-runs the week
// completion check. Marking the same item twice is a no-op.
func (s *ProgressService) CompleteItem(ctx context.Context, userID, courseID string, week int, contentType models.ContentType, title string) (err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "CompleteItem",
		observability.AttributeUserID(userID),
		observability.AttributeCourseID(courseID),
		observability.AttributeWeek(week),
		attribute.String("progress.content_type", string(contentType)),
	)
	defer observability.FinishSpan(span, &err)

	course, courseWeek, err := s.resolveWeek(courseID, week)
	if err != nil {
		return err
	}

	tracked := courseWeek.TrackedItems()[contentType]
	found := false
	for _, item := range tracked {
		if item == title {
			found = true
			break
		}
	}
	if !found {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "item is not tracked in this week")
	}

	if err := s.store.MarkItemComplete(ctx, userID, courseID, week, contentType, title); err != nil {
		return err
	}

	progress, err := s.store.Get(ctx, userID, courseID)
	if err != nil {
		return err
	}
	return s.recomputeWeekCompletion(ctx, userID, course, courseWeek, progress)
}

// OpenWeek records the week the learner most recently opened.
func (s *ProgressService) OpenWeek(ctx context.Context, userID, courseID string, week int) (err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "OpenWeek",
		observability.AttributeUserID(userID),
		observability.AttributeCourseID(courseID),
		observability.AttributeWeek(week),
	)
	defer observability.FinishSpan(span, &err)

	if _, _, err := s.resolveWeek(courseID, week); err != nil {
		return err
	}
	return s.store.SetLastAccessedWeek(ctx, userID, courseID, week)
}

func (s *ProgressService) resolveWeek(courseID string, week int) (*models.Course, *models.Week, error) {
	course, err := s.courses.Course(courseID)
	if err != nil {
		return nil, nil, err
	}
	courseWeek := course.WeekByNumber(week)
	if courseWeek == nil {
		return nil, nil, contextutils.ErrWeekNotFound
	}
	return course, courseWeek, nil
}

// recomputeWeekCompletion evaluates the course's completion predicate for
// the week and, when satisfied, adds it to the completed set. Weeks are never
// un-completed; the store's $addToSet keeps the set monotonic.
func (s *ProgressService) recomputeWeekCompletion(ctx context.Context, userID string, course *models.Course, week *models.Week, progress *models.CourseProgress) error {
	if progress.HasCompletedWeek(week.Number) {
		return nil
	}
	if !WeekSatisfied(course, week, progress) {
		return nil
	}
	if err := s.store.MarkWeekComplete(ctx, userID, course.ID, week.Number); err != nil {
		return err
	}
	s.logger.Info(ctx, "Week completed", map[string]interface{}{
		"user_id":   userID,
		"course_id": course.ID,
		"week":      week.Number,
	})
	return nil
}

// WeekSatisfied applies the course's tracking variant: every video watched
// once (videos-tracked) or every tracked item completed (items-tracked).
// Exported for offline recomputation tools.
func WeekSatisfied(course *models.Course, week *models.Week, progress *models.CourseProgress) bool {
	switch course.Tracking {
	case models.TrackingVideos:
		if len(week.Videos) == 0 {
			return false
		}
		for _, video := range week.Videos {
			if !progress.WatchedOnce(week.Number, video) {
				return false
			}
		}
		return true
	case models.TrackingItems:
		tracked := week.TrackedItems()
		if len(tracked) == 0 {
			return false
		}
		for contentType, titles := range tracked {
			for _, title := range titles {
				if !progress.ItemCompleted(week.Number, contentType, title) {
					return false
				}
			}
		}
		return true
	}
	return false
}

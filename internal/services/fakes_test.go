package services

import (
	"context"
	"sync"

	"academyapp/internal/models"
	contextutils "academyapp/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory store fakes mirroring the guard semantics of the document store
// implementations.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (f *fakeUserStore) Create(_ context.Context, user *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return nil, contextutils.ErrRecordExists
		}
	}
	user.ID = primitive.NewObjectID()
	f.users[user.ID.Hex()] = user
	return user, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, contextutils.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeUserStore) GetByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, contextutils.ErrRecordNotFound
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, contextutils.ErrRecordNotFound
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return contextutils.ErrRecordNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (f *fakeUserStore) SetAdmin(_ context.Context, id string, isAdmin bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return contextutils.ErrRecordNotFound
	}
	user.IsAdmin = isAdmin
	return nil
}

func (f *fakeUserStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return contextutils.ErrRecordNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserStore) List(_ context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]*models.User, 0, len(f.users))
	for _, user := range f.users {
		users = append(users, user)
	}
	return users, nil
}

type fakeProgressStore struct {
	mu sync.Mutex
	// userID -> courseID -> progress
	progress map[string]map[string]*models.CourseProgress
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{progress: make(map[string]map[string]*models.CourseProgress)}
}

func (f *fakeProgressStore) get(userID, courseID string) *models.CourseProgress {
	byCourse, ok := f.progress[userID]
	if !ok {
		return nil
	}
	return byCourse[courseID]
}

func (f *fakeProgressStore) Enroll(_ context.Context, userID, courseID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.progress[userID] == nil {
		f.progress[userID] = make(map[string]*models.CourseProgress)
	}
	if _, ok := f.progress[userID][courseID]; ok {
		return false, nil
	}
	f.progress[userID][courseID] = &models.CourseProgress{}
	return true, nil
}

func (f *fakeProgressStore) Get(_ context.Context, userID, courseID string) (*models.CourseProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.get(userID, courseID)
	if p == nil {
		return nil, contextutils.ErrNotEnrolled
	}
	clone := *p
	return &clone, nil
}

func (f *fakeProgressStore) IncrementWatchCount(_ context.Context, userID, courseID string, week int, videoTitle string, maxCount int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.get(userID, courseID)
	if p == nil {
		return false, nil
	}
	weekKey := models.WeekKey(week)
	if p.VideoWatchCounts == nil {
		p.VideoWatchCounts = make(map[string]map[string]int)
	}
	if p.VideoWatchCounts[weekKey] == nil {
		p.VideoWatchCounts[weekKey] = make(map[string]int)
	}
	if p.VideoWatchCounts[weekKey][videoTitle] >= maxCount {
		return false, nil
	}
	p.VideoWatchCounts[weekKey][videoTitle]++
	if p.VideosWatchedOnce == nil {
		p.VideosWatchedOnce = make(map[string]map[string]bool)
	}
	if p.VideosWatchedOnce[weekKey] == nil {
		p.VideosWatchedOnce[weekKey] = make(map[string]bool)
	}
	p.VideosWatchedOnce[weekKey][videoTitle] = true
	return true, nil
}

func (f *fakeProgressStore) MarkItemComplete(_ context.Context, userID, courseID string, week int, contentType models.ContentType, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.get(userID, courseID)
	if p == nil {
		return contextutils.ErrNotEnrolled
	}
	weekKey := models.WeekKey(week)
	if p.CompletedItems == nil {
		p.CompletedItems = make(map[string]models.WeekItems)
	}
	items := p.CompletedItems[weekKey]
	existing := items.ForType(contentType)
	for _, t := range existing {
		if t == title {
			return nil
		}
	}
	switch contentType {
	case models.ContentLessons:
		items.Lessons = append(items.Lessons, title)
	case models.ContentVideos:
		items.Videos = append(items.Videos, title)
	case models.ContentReadings:
		items.Readings = append(items.Readings, title)
	case models.ContentAssignments:
		items.Assignments = append(items.Assignments, title)
	}
	p.CompletedItems[weekKey] = items
	return nil
}

func (f *fakeProgressStore) MarkWeekComplete(_ context.Context, userID, courseID string, week int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.get(userID, courseID)
	if p == nil {
		return contextutils.ErrNotEnrolled
	}
	for _, w := range p.CompletedWeeks {
		if w == week {
			return nil
		}
	}
	p.CompletedWeeks = append(p.CompletedWeeks, week)
	return nil
}

func (f *fakeProgressStore) SetLastAccessedWeek(_ context.Context, userID, courseID string, week int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.get(userID, courseID)
	if p == nil {
		return contextutils.ErrNotEnrolled
	}
	p.LastAccessedWeek = week
	return nil
}

type fakeAttemptStore struct {
	mu sync.Mutex
	// userID -> quizID -> record
	records   map[string]map[string]*models.QuizRecord
	appendErr error
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{records: make(map[string]map[string]*models.QuizRecord)}
}

func (f *fakeAttemptStore) AppendAttempt(_ context.Context, userID, quizID string, attempt models.QuizAttempt, passed bool, maxAttempts int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return false, f.appendErr
	}
	if f.records[userID] == nil {
		f.records[userID] = make(map[string]*models.QuizRecord)
	}
	record, ok := f.records[userID][quizID]
	if !ok {
		record = &models.QuizRecord{}
		f.records[userID][quizID] = record
	}
	if record.HasPassedQuiz || len(record.Attempts) >= maxAttempts {
		return false, nil
	}
	record.Attempts = append(record.Attempts, attempt)
	record.LatestAttemptScore = attempt.Score
	if passed {
		record.HasPassedQuiz = true
	}
	return true, nil
}

func (f *fakeAttemptStore) GetRecord(_ context.Context, userID, quizID string) (*models.QuizRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if byQuiz, ok := f.records[userID]; ok {
		if record, ok := byQuiz[quizID]; ok {
			clone := *record
			return &clone, nil
		}
	}
	return &models.QuizRecord{}, nil
}

func (f *fakeAttemptStore) GetAllRecords(_ context.Context, userID string) (map[string]models.QuizRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]models.QuizRecord)
	for quizID, record := range f.records[userID] {
		out[quizID] = *record
	}
	return out, nil
}

type fakeMailer struct {
	mu          sync.Mutex
	passedCalls int
	enabled     bool
}

func (f *fakeMailer) SendQuizPassedNotification(_ context.Context, _ *models.User, _ string, _, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passedCalls++
	return nil
}

func (f *fakeMailer) SendEmail(_ context.Context, _, _, _ string, _ map[string]interface{}) error {
	return nil
}

func (f *fakeMailer) IsEnabled() bool { return f.enabled }

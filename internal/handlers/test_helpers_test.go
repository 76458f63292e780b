package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"academyapp/internal/catalog"
	"academyapp/internal/config"
	"academyapp/internal/models"
	"academyapp/internal/observability"
	"academyapp/internal/services"
	contextutils "academyapp/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
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

// fakeProgressStore writes progress into the user documents held by a
// fakeUserStore, mirroring the real store's single-document layout so
// enrollment listings see the same state as progress reads.
type fakeProgressStore struct {
	users *fakeUserStore
}

func newFakeProgressStore(users *fakeUserStore) *fakeProgressStore {
	return &fakeProgressStore{users: users}
}

// update applies fn to the user's progress for one course and writes the
// result back. Returns ErrNotEnrolled when no progress record exists.
func (f *fakeProgressStore) update(userID, courseID string, fn func(p *models.CourseProgress)) error {
	f.users.mu.Lock()
	defer f.users.mu.Unlock()
	user, ok := f.users.users[userID]
	if !ok {
		return contextutils.ErrNotEnrolled
	}
	progress, ok := user.UserProgress[courseID]
	if !ok {
		return contextutils.ErrNotEnrolled
	}
	fn(&progress)
	user.UserProgress[courseID] = progress
	return nil
}

func (f *fakeProgressStore) Enroll(_ context.Context, userID, courseID string) (bool, error) {
	f.users.mu.Lock()
	defer f.users.mu.Unlock()
	user, ok := f.users.users[userID]
	if !ok {
		return false, contextutils.ErrRecordNotFound
	}
	if user.UserProgress == nil {
		user.UserProgress = make(map[string]models.CourseProgress)
	}
	if _, ok := user.UserProgress[courseID]; ok {
		return false, nil
	}
	user.UserProgress[courseID] = models.CourseProgress{}
	return true, nil
}

func (f *fakeProgressStore) Get(_ context.Context, userID, courseID string) (*models.CourseProgress, error) {
	f.users.mu.Lock()
	defer f.users.mu.Unlock()
	user, ok := f.users.users[userID]
	if !ok {
		return nil, contextutils.ErrNotEnrolled
	}
	progress, ok := user.UserProgress[courseID]
	if !ok {
		return nil, contextutils.ErrNotEnrolled
	}
	return &progress, nil
}

func (f *fakeProgressStore) IncrementWatchCount(_ context.Context, userID, courseID string, week int, videoTitle string, maxCount int) (bool, error) {
	applied := false
	err := f.update(userID, courseID, func(p *models.CourseProgress) {
		weekKey := models.WeekKey(week)
		if p.VideoWatchCounts == nil {
			p.VideoWatchCounts = make(map[string]map[string]int)
		}
		if p.VideoWatchCounts[weekKey] == nil {
			p.VideoWatchCounts[weekKey] = make(map[string]int)
		}
		if p.VideoWatchCounts[weekKey][videoTitle] >= maxCount {
			return
		}
		p.VideoWatchCounts[weekKey][videoTitle]++
		if p.VideosWatchedOnce == nil {
			p.VideosWatchedOnce = make(map[string]map[string]bool)
		}
		if p.VideosWatchedOnce[weekKey] == nil {
			p.VideosWatchedOnce[weekKey] = make(map[string]bool)
		}
		p.VideosWatchedOnce[weekKey][videoTitle] = true
		applied = true
	})
	if err != nil {
		// Matches the document store: a guarded update that matches no
		// document reports applied=false without an error.
		return false, nil
	}
	return applied, nil
}

func (f *fakeProgressStore) MarkItemComplete(_ context.Context, userID, courseID string, week int, contentType models.ContentType, title string) error {
	return f.update(userID, courseID, func(p *models.CourseProgress) {
		weekKey := models.WeekKey(week)
		if p.CompletedItems == nil {
			p.CompletedItems = make(map[string]models.WeekItems)
		}
		items := p.CompletedItems[weekKey]
		for _, t := range items.ForType(contentType) {
			if t == title {
				return
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
	})
}

func (f *fakeProgressStore) MarkWeekComplete(_ context.Context, userID, courseID string, week int) error {
	return f.update(userID, courseID, func(p *models.CourseProgress) {
		for _, w := range p.CompletedWeeks {
			if w == week {
				return
			}
		}
		p.CompletedWeeks = append(p.CompletedWeeks, week)
	})
}

func (f *fakeProgressStore) SetLastAccessedWeek(_ context.Context, userID, courseID string, week int) error {
	return f.update(userID, courseID, func(p *models.CourseProgress) {
		p.LastAccessedWeek = week
	})
}

type fakeAttemptStore struct {
	mu sync.Mutex
	// userID -> quizID -> record
	records map[string]map[string]*models.QuizRecord
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{records: make(map[string]map[string]*models.QuizRecord)}
}

func (f *fakeAttemptStore) AppendAttempt(_ context.Context, userID, quizID string, attempt models.QuizAttempt, passed bool, maxAttempts int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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

type fakeMailer struct{}

func (fakeMailer) SendQuizPassedNotification(_ context.Context, _ *models.User, _ string, _, _ int) error {
	return nil
}

func (fakeMailer) SendEmail(_ context.Context, _, _, _ string, _ map[string]interface{}) error {
	return nil
}

func (fakeMailer) IsEnabled() bool { return false }

// testEnv bundles a router wired against in-memory stores and a small
// two-question catalog.
type testEnv struct {
	router   *gin.Engine
	users    *fakeUserStore
	progress *fakeProgressStore
	attempts *fakeAttemptStore
	userSvc  *services.UserService
	cookies  []*http.Cookie
	t        *testing.T
}

const (
	testQuizID   = "intro_quiz"
	testCourseID = "intro_course"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	quiz := &models.Quiz{
		ID:    testQuizID,
		Title: "Intro Quiz",
		Questions: []models.Question{
			{QuestionText: "First?", Options: []string{"right", "wrong"}, CorrectAnswer: "right"},
			{QuestionText: "Second?", Options: []string{"right", "wrong"}, CorrectAnswer: "right"},
		},
	}
	course := &models.Course{
		ID:       testCourseID,
		Title:    "Intro Course",
		Tracking: models.TrackingVideos,
		Weeks: []models.Week{
			{Number: 1, Title: "Start", Videos: []string{"Welcome"}, QuizID: testQuizID},
		},
	}
	cat, err := catalog.New([]*models.Course{course}, []*models.Quiz{quiz})
	require.NoError(t, err)
	return cat
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{IsTest: true}
	cfg.Server.SessionSecret = "test-session-secret"
	cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	cfg.Server.Debug = true

	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})

	users := newFakeUserStore()
	progress := newFakeProgressStore(users)
	attempts := newFakeAttemptStore()
	cat := testCatalog(t)

	userSvc := services.NewUserServiceWithLogger(users, cfg, logger)
	attemptSvc := services.NewAttemptService(attempts, users, fakeMailer{}, cfg, logger)
	quizSvc := services.NewQuizService(cat, attemptSvc, cfg, logger)
	t.Cleanup(quizSvc.Shutdown)
	progressSvc := services.NewProgressService(progress, users, cat, cfg, logger)

	router := NewRouter(cfg, userSvc, quizSvc, attemptSvc, progressSvc, cat, logger)

	return &testEnv{
		router:   router,
		users:    users,
		progress: progress,
		attempts: attempts,
		userSvc:  userSvc,
		t:        t,
	}
}

// do performs a request, carrying session cookies between calls.
func (e *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range e.cookies {
		req.AddCookie(cookie)
	}

	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)

	if cookies := recorder.Result().Cookies(); len(cookies) > 0 {
		e.cookies = cookies
	}
	return recorder
}

func (e *testEnv) signup(username, email, password string) *httptest.ResponseRecorder {
	e.t.Helper()
	return e.do(http.MethodPost, "/v1/auth/signup", gin.H{
		"username": username,
		"email":    email,
		"password": password,
	})
}

// signupUser creates and logs in a fresh account, failing the test on error.
func (e *testEnv) signupUser(username string) {
	e.t.Helper()
	recorder := e.signup(username, username+"@example.com", "secret-password")
	require.Equal(e.t, http.StatusCreated, recorder.Code, recorder.Body.String())
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

//go:build integration

package database

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"academyapp/internal/config"
	"academyapp/internal/models"
	"academyapp/internal/observability"
	contextutils "academyapp/internal/utils"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// StoreIntegrationTestSuite exercises the guarded single-document updates
// against a real MongoDB instance. Requires ACADEMY_DATABASE_URI to point at
// a disposable server.
type StoreIntegrationTestSuite struct {
	suite.Suite
	Manager   *Manager
	Users     *UserStore
	Progress  *ProgressStore
	Attempts  *AttemptStore
	userCount int
}

func (s *StoreIntegrationTestSuite) SetupSuite() {
	uri := os.Getenv("ACADEMY_DATABASE_URI")
	if uri == "" {
		s.T().Skip("ACADEMY_DATABASE_URI not set, skipping integration tests")
	}

	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	s.Manager = NewManager(logger)

	cfg := config.DatabaseConfig{
		URI:  uri,
		Name: fmt.Sprintf("academy_store_test_%d", time.Now().UnixNano()),
	}
	require.NoError(s.T(), s.Manager.Connect(context.Background(), cfg))

	s.Users = NewUserStore(s.Manager, logger)
	s.Progress = NewProgressStore(s.Manager, logger)
	s.Attempts = NewAttemptStore(s.Manager, logger)
}

func (s *StoreIntegrationTestSuite) TearDownSuite() {
	if s.Manager == nil {
		return
	}
	ctx := context.Background()
	_ = s.Manager.Database().Drop(ctx)
	_ = s.Manager.Close(ctx)
}

func (s *StoreIntegrationTestSuite) newUser() *models.User {
	s.userCount++
	user, err := s.Users.Create(context.Background(), &models.User{
		Username:     fmt.Sprintf("learner%d", s.userCount),
		Email:        fmt.Sprintf("learner%d@example.com", s.userCount),
		PasswordHash: "x",
	})
	s.Require().NoError(err)
	return user
}

func (s *StoreIntegrationTestSuite) TestCreateUserDuplicateUsername() {
	ctx := context.Background()
	user := s.newUser()

	_, err := s.Users.Create(ctx, &models.User{
		Username:     user.Username,
		Email:        "different@example.com",
		PasswordHash: "x",
	})
	s.Require().Error(err)
	s.True(contextutils.IsError(err, contextutils.ErrRecordExists))
}

func (s *StoreIntegrationTestSuite) TestEnrollIsIdempotent() {
	ctx := context.Background()
	user := s.newUser()

	enrolled, err := s.Progress.Enroll(ctx, user.HexID(), "go_course")
	s.Require().NoError(err)
	s.True(enrolled)

	enrolled, err = s.Progress.Enroll(ctx, user.HexID(), "go_course")
	s.Require().NoError(err)
	s.False(enrolled, "second enroll must not reset progress")

	progress, err := s.Progress.Get(ctx, user.HexID(), "go_course")
	s.Require().NoError(err)
	s.Empty(progress.CompletedWeeks)
}

func (s *StoreIntegrationTestSuite) TestEnrollMissingUser() {
	ctx := context.Background()
	user := s.newUser()
	s.Require().NoError(s.Users.Delete(ctx, user.HexID()))

	enrolled, err := s.Progress.Enroll(ctx, user.HexID(), "go_course")
	s.False(enrolled)
	s.True(contextutils.IsError(err, contextutils.ErrRecordNotFound), "enrolling a deleted user must not report success")
}

func (s *StoreIntegrationTestSuite) TestGetProgressNotEnrolled() {
	ctx := context.Background()
	user := s.newUser()

	_, err := s.Progress.Get(ctx, user.HexID(), "go_course")
	s.True(contextutils.IsError(err, contextutils.ErrNotEnrolled))
}

func (s *StoreIntegrationTestSuite) TestWatchCountCapHolds() {
	ctx := context.Background()
	user := s.newUser()

	_, err := s.Progress.Enroll(ctx, user.HexID(), "go_course")
	s.Require().NoError(err)

	const watchCap = 3
	for i := 0; i < watchCap; i++ {
		applied, err := s.Progress.IncrementWatchCount(ctx, user.HexID(), "go_course", 1, "Welcome", watchCap)
		s.Require().NoError(err)
		s.True(applied)
	}

	applied, err := s.Progress.IncrementWatchCount(ctx, user.HexID(), "go_course", 1, "Welcome", watchCap)
	s.Require().NoError(err)
	s.False(applied, "increments beyond the cap must be no-ops")

	progress, err := s.Progress.Get(ctx, user.HexID(), "go_course")
	s.Require().NoError(err)
	s.Equal(watchCap, progress.WatchCount(1, "Welcome"))
	s.True(progress.WatchedOnce(1, "Welcome"))
}

func (s *StoreIntegrationTestSuite) TestWatchCountRequiresEnrollment() {
	ctx := context.Background()
	user := s.newUser()

	applied, err := s.Progress.IncrementWatchCount(ctx, user.HexID(), "go_course", 1, "Welcome", 10)
	s.Require().NoError(err)
	s.False(applied)
}

func (s *StoreIntegrationTestSuite) TestMarkWeekCompleteIsMonotonic() {
	ctx := context.Background()
	user := s.newUser()

	_, err := s.Progress.Enroll(ctx, user.HexID(), "go_course")
	s.Require().NoError(err)

	s.Require().NoError(s.Progress.MarkWeekComplete(ctx, user.HexID(), "go_course", 1))
	s.Require().NoError(s.Progress.MarkWeekComplete(ctx, user.HexID(), "go_course", 1))
	s.Require().NoError(s.Progress.MarkWeekComplete(ctx, user.HexID(), "go_course", 2))

	progress, err := s.Progress.Get(ctx, user.HexID(), "go_course")
	s.Require().NoError(err)
	s.Equal([]int{1, 2}, progress.SortedCompletedWeeks())
}

func (s *StoreIntegrationTestSuite) TestAppendAttemptCapAndStickyPass() {
	ctx := context.Background()
	user := s.newUser()
	now := time.Now().UTC()

	const maxAttempts = 3
	for i := 0; i < maxAttempts; i++ {
		applied, err := s.Attempts.AppendAttempt(ctx, user.HexID(), "go_quiz", models.QuizAttempt{Score: i, Date: now}, false, maxAttempts)
		s.Require().NoError(err)
		s.True(applied)
	}

	applied, err := s.Attempts.AppendAttempt(ctx, user.HexID(), "go_quiz", models.QuizAttempt{Score: 9, Date: now}, true, maxAttempts)
	s.Require().NoError(err)
	s.False(applied, "attempt past the cap must be rejected")

	record, err := s.Attempts.GetRecord(ctx, user.HexID(), "go_quiz")
	s.Require().NoError(err)
	s.Len(record.Attempts, maxAttempts)
	s.False(record.HasPassedQuiz)
	s.Equal(2, record.LatestAttemptScore)

	// A passed quiz accepts no further attempts even with room left.
	user2 := s.newUser()
	applied, err = s.Attempts.AppendAttempt(ctx, user2.HexID(), "go_quiz", models.QuizAttempt{Score: 8, Date: now}, true, maxAttempts)
	s.Require().NoError(err)
	s.True(applied)

	applied, err = s.Attempts.AppendAttempt(ctx, user2.HexID(), "go_quiz", models.QuizAttempt{Score: 9, Date: now}, false, maxAttempts)
	s.Require().NoError(err)
	s.False(applied)

	record, err = s.Attempts.GetRecord(ctx, user2.HexID(), "go_quiz")
	s.Require().NoError(err)
	s.True(record.HasPassedQuiz)
	s.Len(record.Attempts, 1)
}

func (s *StoreIntegrationTestSuite) TestDeleteUserRemovesNestedRecords() {
	ctx := context.Background()
	user := s.newUser()

	_, err := s.Progress.Enroll(ctx, user.HexID(), "go_course")
	s.Require().NoError(err)

	s.Require().NoError(s.Users.Delete(ctx, user.HexID()))

	_, err = s.Users.GetByID(ctx, user.HexID())
	s.True(contextutils.IsError(err, contextutils.ErrRecordNotFound))

	_, err = s.Progress.Get(ctx, user.HexID(), "go_course")
	s.True(contextutils.IsError(err, contextutils.ErrRecordNotFound))
}

func TestStoreIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(StoreIntegrationTestSuite))
}

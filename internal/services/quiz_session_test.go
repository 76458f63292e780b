package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"academyapp/internal/config"
	"academyapp/internal/models"
	contextutils "academyapp/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuizDirectory map[string]*models.Quiz

func (f fakeQuizDirectory) Quiz(id string) (*models.Quiz, error) {
	quiz, ok := f[id]
	if !ok {
		return nil, contextutils.ErrQuizNotFound
	}
	return quiz, nil
}

func newTestQuizService(t *testing.T, quiz *models.Quiz, timeLimit time.Duration) (*QuizService, *fakeAttemptStore) {
	t.Helper()
	store := newFakeAttemptStore()
	cfg := &config.Config{}
	cfg.Quiz.QuestionTimeLimit = timeLimit
	attempts := NewAttemptService(store, newFakeUserStore(), nil, cfg, testLogger())
	svc := NewQuizService(fakeQuizDirectory{quiz.ID: quiz}, attempts, cfg, testLogger())
	t.Cleanup(svc.Shutdown)
	return svc, store
}

func TestStartSessionUnknownQuiz(t *testing.T) {
	svc, _ := newTestQuizService(t, makeQuiz(3), time.Minute)

	_, err := svc.StartSession(context.Background(), "user1", "missing")
	assert.ErrorIs(t, err, contextutils.ErrQuizNotFound)
}

func TestSessionWalkThrough(t *testing.T) {
	// Nine questions, answer the first two right and the rest wrong.
	quiz := makeQuiz(9)
	svc, _ := newTestQuizService(t, quiz, time.Minute)
	ctx := context.Background()

	view, err := svc.StartSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionInProgress, view.State)
	assert.Equal(t, 0, view.QuestionIndex)
	assert.Equal(t, 9, view.TotalQuestions)
	assert.Equal(t, 3, view.AttemptsRemaining)
	require.NotNil(t, view.Question)
	assert.NotEmpty(t, view.Question.Options)
	assert.Positive(t, view.TimeRemainingMS)

	answer := func(i int, choice string) {
		t.Helper()
		_, err := svc.SelectAnswer(ctx, "user1", quiz.ID, i, choice)
		require.NoError(t, err)
		if i < 8 {
			view, err = svc.NextQuestion(ctx, "user1", quiz.ID)
			require.NoError(t, err)
			assert.Equal(t, i+1, view.QuestionIndex)
		}
	}

	answer(0, "right")
	answer(1, "right")
	for i := 2; i < 9; i++ {
		answer(i, "wrong")
	}

	view, err = svc.Submit(ctx, "user1", quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionSubmitted, view.State)
	require.NotNil(t, view.Result)
	assert.Equal(t, 2, view.Result.Summary.Score)
	assert.Len(t, view.Result.Summary.Correct, 2)
	assert.Len(t, view.Result.Summary.Wrong, 7)
	assert.Empty(t, view.Result.Summary.NotAttempted)
	assert.False(t, view.Result.Summary.Passed)
	assert.Equal(t, 2, view.Result.AttemptsRemaining)
}

func TestNextRequiresAnswer(t *testing.T) {
	quiz := makeQuiz(3)
	svc, _ := newTestQuizService(t, quiz, time.Minute)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)

	_, err = svc.NextQuestion(ctx, "user1", quiz.ID)
	assert.ErrorIs(t, err, contextutils.ErrAnswerRequired)
}

func TestSelectAnswerValidation(t *testing.T) {
	quiz := makeQuiz(3)
	svc, _ := newTestQuizService(t, quiz, time.Minute)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)

	_, err = svc.SelectAnswer(ctx, "user1", quiz.ID, 0, "not-an-option")
	assert.Error(t, err)

	_, err = svc.SelectAnswer(ctx, "user1", quiz.ID, 2, "right")
	assert.Error(t, err, "index must match the current question")
}

func TestSubmitBlankFinalAnswerAllowed(t *testing.T) {
	quiz := makeQuiz(2)
	svc, _ := newTestQuizService(t, quiz, time.Minute)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)
	_, err = svc.SelectAnswer(ctx, "user1", quiz.ID, 0, "right")
	require.NoError(t, err)
	_, err = svc.NextQuestion(ctx, "user1", quiz.ID)
	require.NoError(t, err)

	view, err := svc.Submit(ctx, "user1", quiz.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Result)
	assert.Equal(t, []int{1}, view.Result.Summary.NotAttempted)
	assert.Equal(t, 1, view.Result.Summary.Score)
}

func TestSubmitOnlyOnFinalQuestion(t *testing.T) {
	quiz := makeQuiz(3)
	svc, _ := newTestQuizService(t, quiz, time.Minute)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, "user1", quiz.ID)
	assert.Error(t, err)
}

func TestTimerExpiryAdvancesWithAnswerUnset(t *testing.T) {
	quiz := makeQuiz(3)
	svc, _ := newTestQuizService(t, quiz, 30*time.Millisecond)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)

	// Select without advancing; expiry must discard the selection.
	_, err = svc.SelectAnswer(ctx, "user1", quiz.ID, 0, "right")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		view, err := svc.GetSession(ctx, "user1", quiz.ID)
		return err == nil && view.QuestionIndex == 1
	}, time.Second, 5*time.Millisecond)

	view, err := svc.GetSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionInProgress, view.State)
	assert.Nil(t, view.SelectedAnswer)
}

func TestTimerExpiryOnFinalQuestionAutoSubmits(t *testing.T) {
	quiz := makeQuiz(1)
	svc, store := newTestQuizService(t, quiz, 30*time.Millisecond)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		view, err := svc.GetSession(ctx, "user1", quiz.ID)
		return err == nil && view.State != SessionInProgress
	}, time.Second, 5*time.Millisecond)

	view, err := svc.GetSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Result)
	assert.Equal(t, 0, view.Result.Summary.Score)
	assert.Equal(t, []int{0}, view.Result.Summary.NotAttempted)

	record, err := store.GetRecord(ctx, "user1", quiz.ID)
	require.NoError(t, err)
	assert.Len(t, record.Attempts, 1)
}

func TestPlayAgainResetsSession(t *testing.T) {
	quiz := makeQuiz(1)
	svc, _ := newTestQuizService(t, quiz, time.Minute)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)
	_, err = svc.SelectAnswer(ctx, "user1", quiz.ID, 0, "wrong")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "user1", quiz.ID)
	require.NoError(t, err)

	view, err := svc.PlayAgain(ctx, "user1", quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionInProgress, view.State)
	assert.Equal(t, 0, view.QuestionIndex)
	assert.Nil(t, view.SelectedAnswer)
	assert.Nil(t, view.Result)
	assert.Equal(t, 2, view.AttemptsRemaining)
}

func TestAttemptCapLocksSession(t *testing.T) {
	quiz := makeQuiz(1)
	svc, _ := newTestQuizService(t, quiz, time.Minute)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.SelectAnswer(ctx, "user1", quiz.ID, 0, "wrong")
		require.NoError(t, err)
		view, err := svc.Submit(ctx, "user1", quiz.ID)
		require.NoError(t, err)
		if i < 2 {
			assert.Equal(t, SessionSubmitted, view.State)
			_, err = svc.PlayAgain(ctx, "user1", quiz.ID)
			require.NoError(t, err)
		} else {
			// Third failed attempt exhausts the cap.
			assert.Equal(t, SessionLocked, view.State)
			assert.Equal(t, 0, view.AttemptsRemaining)
		}
	}

	_, err = svc.PlayAgain(ctx, "user1", quiz.ID)
	assert.Error(t, err)

	// A fresh start also lands in the locked state.
	view, err := svc.StartSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionLocked, view.State)
}

func TestPassLocksFurtherAttempts(t *testing.T) {
	quiz := makeQuiz(1)
	svc, _ := newTestQuizService(t, quiz, time.Minute)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)
	_, err = svc.SelectAnswer(ctx, "user1", quiz.ID, 0, "right")
	require.NoError(t, err)

	view, err := svc.Submit(ctx, "user1", quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionLocked, view.State)
	assert.True(t, view.HasPassed)

	_, err = svc.PlayAgain(ctx, "user1", quiz.ID)
	assert.Error(t, err)

	view, err = svc.StartSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionLocked, view.State)
	assert.True(t, view.HasPassed)
}

func TestStartSessionResumesInProgress(t *testing.T) {
	quiz := makeQuiz(3)
	svc, _ := newTestQuizService(t, quiz, time.Minute)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)
	_, err = svc.SelectAnswer(ctx, "user1", quiz.ID, 0, "right")
	require.NoError(t, err)
	_, err = svc.NextQuestion(ctx, "user1", quiz.ID)
	require.NoError(t, err)

	view, err := svc.StartSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.QuestionIndex, "resume, not restart")
}

func TestEndSessionDropsState(t *testing.T) {
	quiz := makeQuiz(3)
	svc, _ := newTestQuizService(t, quiz, time.Minute)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)

	svc.EndSession("user1", quiz.ID)

	_, err = svc.GetSession(ctx, "user1", quiz.ID)
	assert.ErrorIs(t, err, contextutils.ErrSessionNotFound)
}

func TestSubmitSurfacesWriteFailure(t *testing.T) {
	quiz := makeQuiz(1)
	svc, store := newTestQuizService(t, quiz, time.Minute)
	store.appendErr = contextutils.ErrDatabaseConnection
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)
	_, err = svc.SelectAnswer(ctx, "user1", quiz.ID, 0, "right")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, "user1", quiz.ID)
	require.Error(t, err)
	assert.True(t, contextutils.IsRetryable(err))

	// The graded result stays visible even though the write failed.
	view, err := svc.GetSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionSubmitted, view.State)
	require.NotNil(t, view.Result)
	assert.Equal(t, 1, view.Result.Summary.Score)
}

func TestConcurrentStartsShareOneSession(t *testing.T) {
	quiz := makeQuiz(1)
	svc, store := newTestQuizService(t, quiz, 100*time.Millisecond)
	ctx := context.Background()

	// Racing starts must converge on a single live session; a displaced
	// session's timer firing would record an attempt the user never saw.
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.StartSession(ctx, "user1", quiz.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		view, err := svc.GetSession(ctx, "user1", quiz.ID)
		return err == nil && view.State != SessionInProgress
	}, time.Second, 5*time.Millisecond)

	// Give any stray timer a chance to fire before counting.
	time.Sleep(150 * time.Millisecond)
	record, err := store.GetRecord(ctx, "user1", quiz.ID)
	require.NoError(t, err)
	assert.Len(t, record.Attempts, 1)

	view, err := svc.GetSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.AttemptsRemaining)
}

func TestSweepEvictsFinishedSessions(t *testing.T) {
	quiz := makeQuiz(1)
	svc, _ := newTestQuizService(t, quiz, time.Minute)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "user1", quiz.ID)
	require.NoError(t, err)

	// Still reachable inside the idle TTL.
	assert.Zero(t, svc.sweepIdleSessions(time.Now()))
	_, err = svc.GetSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, svc.sweepIdleSessions(time.Now().Add(sessionIdleTTL+time.Second)))
	_, err = svc.GetSession(ctx, "user1", quiz.ID)
	assert.ErrorIs(t, err, contextutils.ErrSessionNotFound)
}

func TestSweepKeepsInProgressSessions(t *testing.T) {
	quiz := makeQuiz(3)
	svc, _ := newTestQuizService(t, quiz, time.Minute)
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)

	assert.Zero(t, svc.sweepIdleSessions(time.Now().Add(2*sessionIdleTTL)))
	_, err = svc.GetSession(ctx, "user1", quiz.ID)
	require.NoError(t, err)
}

package services

import (
	"context"
	"sync"
	"time"

	"academyapp/internal/config"
	"academyapp/internal/models"
	"academyapp/internal/observability"
	contextutils "academyapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// SessionState is the lifecycle state of one quiz session.
type SessionState string

// Session states.
const (
	// SessionInProgress means the user is answering questions.
	SessionInProgress SessionState = "in_progress"
	// SessionSubmitted means the attempt has been graded; the user may play
	// again while attempts remain.
	SessionSubmitted SessionState = "submitted"
	// SessionLocked means no further attempts are possible, either because
	// the quiz was passed or the attempt cap was reached.
	SessionLocked SessionState = "locked"
)

// Janitor timing. Finished sessions linger for the idle TTL so the client can
// still fetch the result, then get swept.
const (
	sessionSweepInterval = time.Minute
	sessionIdleTTL       = 30 * time.Minute
)

// QuizDirectory resolves quiz IDs to definitions.
type QuizDirectory interface {
	Quiz(id string) (*models.Quiz, error)
}

// QuestionView is the learner-facing shape of one question. The correct
// answer is never included.
type QuestionView struct {
	Index        int      `json:"index"`
	QuestionText string   `json:"question_text"`
	Options      []string `json:"options"`
}

// SessionView is a snapshot of a session for the API layer.
type SessionView struct {
	QuizID            string         `json:"quiz_id"`
	State             SessionState   `json:"state"`
	QuestionIndex     int            `json:"question_index"`
	TotalQuestions    int            `json:"total_questions"`
	Question          *QuestionView  `json:"question,omitempty"`
	SelectedAnswer    *string        `json:"selected_answer,omitempty"`
	TimeRemainingMS   int64          `json:"time_remaining_ms"`
	AttemptsRemaining int            `json:"attempts_remaining"`
	HasPassed         bool           `json:"has_passed"`
	Result            *AttemptResult `json:"result,omitempty"`
}

// quizSession is the server-side state of one (user, quiz) pair. All fields
// are guarded by mu; the timer callback re-enters through the same lock.
type quizSession struct {
	mu      sync.Mutex
	userID  string
	quiz    *models.Quiz
	state   SessionState
	current int
	// answers holds the committed answer per question; nil means not
	// attempted. A selection only becomes an answer when the user advances.
	answers   []*string
	selection *string
	// timerGen invalidates stale timer callbacks after a cancel or restart.
	timerGen int
	timer    *time.Timer
	deadline time.Time
	result   *AttemptResult
	// attemptsRemaining and hasPassed mirror the stored record as of the
	// last load or submission.
	attemptsRemaining int
	hasPassed         bool
	// touched is the last client interaction; the janitor evicts finished
	// sessions once it goes stale.
	touched time.Time
}

// QuizService runs quiz sessions: one in-memory session per (user, quiz),
// with a per-question countdown and grading on submit.
type QuizService struct {
	mu       sync.Mutex
	sessions map[string]*quizSession

	quizzes  QuizDirectory
	attempts *AttemptService
	cfg      *config.Config
	logger   *observability.Logger

	janitorStop chan struct{}
	janitorDone chan struct{}
}

// NewQuizService creates a new quiz session service and starts its janitor.
func NewQuizService(quizzes QuizDirectory, attempts *AttemptService, cfg *config.Config, logger *observability.Logger) *QuizService {
	s := &QuizService{
		sessions:    make(map[string]*quizSession),
		quizzes:     quizzes,
		attempts:    attempts,
		cfg:         cfg,
		logger:      logger,
		janitorStop: make(chan struct{}),
		janitorDone: make(chan struct{}),
	}
	go s.janitor()
	return s
}

func sessionKey(userID, quizID string) string {
	return userID + "/" + quizID
}

// StartSession loads the quiz and the user's attempt record and opens a
// session. A session already in progress is resumed as-is. When the quiz has
// been passed or no attempts remain the session opens locked.
func (s *QuizService) StartSession(ctx context.Context, userID, quizID string) (result0 *SessionView, err error) {
	ctx, span := observability.TraceQuizFunction(ctx, "StartSession",
		observability.AttributeUserID(userID),
		observability.AttributeQuizID(quizID),
	)
	defer observability.FinishSpan(span, &err)

	quiz, err := s.quizzes.Quiz(quizID)
	if err != nil {
		return nil, err
	}

	key := sessionKey(userID, quizID)
	s.mu.Lock()
	if existing, ok := s.sessions[key]; ok {
		existing.mu.Lock()
		if existing.state == SessionInProgress {
			view := existing.viewLocked()
			existing.mu.Unlock()
			s.mu.Unlock()
			return view, nil
		}
		existing.stopTimerLocked()
		existing.mu.Unlock()
	}
	s.mu.Unlock()

	canAttempt, record, err := s.attempts.CanAttempt(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}

	session := &quizSession{
		userID:            userID,
		quiz:              quiz,
		answers:           make([]*string, len(quiz.Questions)),
		attemptsRemaining: record.AttemptsRemaining(s.cfg.MaxQuizAttempts()),
		hasPassed:         record.HasPassedQuiz,
		touched:           time.Now(),
	}
	if canAttempt {
		session.state = SessionInProgress
		s.startTimer(session)
	} else {
		session.state = SessionLocked
	}

	s.mu.Lock()
	if existing, ok := s.sessions[key]; ok {
		// A concurrent start won the race while the attempt record was
		// loading. Hand back the winner; the extra session's timer must not
		// fire and burn an attempt the user never saw.
		existing.mu.Lock()
		if existing.state == SessionInProgress {
			view := existing.viewLocked()
			existing.mu.Unlock()
			s.mu.Unlock()
			session.mu.Lock()
			session.stopTimerLocked()
			session.mu.Unlock()
			return view, nil
		}
		existing.stopTimerLocked()
		existing.mu.Unlock()
	}
	s.sessions[key] = session
	s.mu.Unlock()

	s.logger.Info(ctx, "Quiz session started", map[string]interface{}{
		"user_id": userID,
		"quiz_id": quizID,
		"state":   string(session.state),
	})

	session.mu.Lock()
	defer session.mu.Unlock()
	return session.viewLocked(), nil
}

// GetSession returns a snapshot of the current session.
func (s *QuizService) GetSession(ctx context.Context, userID, quizID string) (result0 *SessionView, err error) {
	_, span := observability.TraceQuizFunction(ctx, "GetSession",
		observability.AttributeUserID(userID),
		observability.AttributeQuizID(quizID),
	)
	defer observability.FinishSpan(span, &err)

	session, err := s.lookup(userID, quizID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	session.touched = time.Now()
	return session.viewLocked(), nil
}

// SelectAnswer records the user's current choice for the question they are
// on. Selection does not commit the answer and does not touch the countdown;
// only advancing commits.
func (s *QuizService) SelectAnswer(ctx context.Context, userID, quizID string, questionIndex int, answer string) (result0 *SessionView, err error) {
	_, span := observability.TraceQuizFunction(ctx, "SelectAnswer",
		observability.AttributeUserID(userID),
		observability.AttributeQuizID(quizID),
		observability.AttributeQuestionIndex(questionIndex),
	)
	defer observability.FinishSpan(span, &err)

	session, err := s.lookup(userID, quizID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	session.touched = time.Now()

	if session.state != SessionInProgress {
		return nil, contextutils.ErrInvalidSessionState
	}
	if questionIndex != session.current {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "question index does not match the current question")
	}

	valid := false
	for _, opt := range session.quiz.Questions[session.current].Options {
		if opt == answer {
			valid = true
			break
		}
	}
	if !valid {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "answer is not one of the question's options")
	}

	session.selection = &answer
	return session.viewLocked(), nil
}

// NextQuestion commits the current selection and advances. It refuses to
// advance without a selection, and refuses on the final question, which is
// submitted instead.
func (s *QuizService) NextQuestion(ctx context.Context, userID, quizID string) (result0 *SessionView, err error) {
	_, span := observability.TraceQuizFunction(ctx, "NextQuestion",
		observability.AttributeUserID(userID),
		observability.AttributeQuizID(quizID),
	)
	defer observability.FinishSpan(span, &err)

	session, err := s.lookup(userID, quizID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	session.touched = time.Now()

	if session.state != SessionInProgress {
		return nil, contextutils.ErrInvalidSessionState
	}
	if session.current >= len(session.quiz.Questions)-1 {
		return nil, contextutils.WrapError(contextutils.ErrInvalidSessionState, "final question must be submitted")
	}
	if session.selection == nil {
		return nil, contextutils.ErrAnswerRequired
	}

	session.answers[session.current] = session.selection
	session.selection = nil
	session.current++
	s.startTimerLocked(session)

	return session.viewLocked(), nil
}

// Submit grades the attempt from the final question. A blank final answer is
// allowed and counts as not attempted.
func (s *QuizService) Submit(ctx context.Context, userID, quizID string) (result0 *SessionView, err error) {
	ctx, span := observability.TraceQuizFunction(ctx, "Submit",
		observability.AttributeUserID(userID),
		observability.AttributeQuizID(quizID),
	)
	defer observability.FinishSpan(span, &err)

	session, err := s.lookup(userID, quizID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	session.touched = time.Now()

	if session.state != SessionInProgress {
		return nil, contextutils.ErrInvalidSessionState
	}
	if session.current != len(session.quiz.Questions)-1 {
		return nil, contextutils.WrapError(contextutils.ErrInvalidSessionState, "submission is only allowed on the final question")
	}

	session.answers[session.current] = session.selection
	session.selection = nil

	if err := s.submitLocked(ctx, session); err != nil {
		return nil, err
	}
	return session.viewLocked(), nil
}

// PlayAgain resets a submitted session for a fresh attempt, provided the quiz
// has not been passed and attempts remain.
func (s *QuizService) PlayAgain(ctx context.Context, userID, quizID string) (result0 *SessionView, err error) {
	ctx, span := observability.TraceQuizFunction(ctx, "PlayAgain",
		observability.AttributeUserID(userID),
		observability.AttributeQuizID(quizID),
	)
	defer observability.FinishSpan(span, &err)

	session, err := s.lookup(userID, quizID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	session.touched = time.Now()

	if session.state != SessionSubmitted {
		return nil, contextutils.ErrInvalidSessionState
	}
	if session.hasPassed {
		return nil, contextutils.ErrQuizAlreadyPassed
	}

	canAttempt, record, err := s.attempts.CanAttempt(ctx, session.userID, session.quiz.ID)
	if err != nil {
		return nil, err
	}
	session.attemptsRemaining = record.AttemptsRemaining(s.cfg.MaxQuizAttempts())
	session.hasPassed = record.HasPassedQuiz
	if !canAttempt {
		session.state = SessionLocked
		return nil, contextutils.ErrAttemptLimitReached
	}

	session.answers = make([]*string, len(session.quiz.Questions))
	session.selection = nil
	session.result = nil
	session.current = 0
	session.state = SessionInProgress
	s.startTimerLocked(session)

	return session.viewLocked(), nil
}

// EndSession drops the session and cancels its timer.
func (s *QuizService) EndSession(userID, quizID string) {
	key := sessionKey(userID, quizID)
	s.mu.Lock()
	session, ok := s.sessions[key]
	if ok {
		delete(s.sessions, key)
	}
	s.mu.Unlock()
	if ok {
		session.mu.Lock()
		session.stopTimerLocked()
		session.mu.Unlock()
	}
}

// janitor sweeps the registry until Shutdown. Only finished sessions are
// collected; an abandoned in-progress session reaches a terminal state on its
// own once the final-question countdown auto-submits it.
func (s *QuizService) janitor() {
	defer close(s.janitorDone)
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.janitorStop:
			return
		case <-ticker.C:
			if n := s.sweepIdleSessions(time.Now()); n > 0 {
				s.logger.Debug(context.Background(), "Swept idle quiz sessions", map[string]interface{}{
					"evicted": n,
				})
			}
		}
	}
}

// sweepIdleSessions evicts submitted and locked sessions whose last client
// interaction is older than the idle TTL. Returns the number evicted.
func (s *QuizService) sweepIdleSessions(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for key, session := range s.sessions {
		session.mu.Lock()
		stale := session.state != SessionInProgress && now.Sub(session.touched) >= sessionIdleTTL
		if stale {
			session.stopTimerLocked()
		}
		session.mu.Unlock()
		if stale {
			delete(s.sessions, key)
			evicted++
		}
	}
	return evicted
}

// Shutdown stops the janitor and cancels every pending timer. Sessions are
// not persisted.
func (s *QuizService) Shutdown() {
	close(s.janitorStop)
	<-s.janitorDone

	s.mu.Lock()
	sessions := make([]*quizSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.sessions = make(map[string]*quizSession)
	s.mu.Unlock()

	for _, session := range sessions {
		session.mu.Lock()
		session.stopTimerLocked()
		session.mu.Unlock()
	}
}

func (s *QuizService) lookup(userID, quizID string) (*quizSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionKey(userID, quizID)]
	if !ok {
		return nil, contextutils.ErrSessionNotFound
	}
	return session, nil
}

func (s *QuizService) startTimer(session *quizSession) {
	session.mu.Lock()
	defer session.mu.Unlock()
	s.startTimerLocked(session)
}

// startTimerLocked restarts the per-question countdown. Exactly one timer is
// live per session; bumping the generation invalidates callbacks from any
// timer that already fired but has not run yet.
func (s *QuizService) startTimerLocked(session *quizSession) {
	session.stopTimerLocked()
	session.timerGen++
	gen := session.timerGen
	limit := s.cfg.QuestionTimeLimit()
	session.deadline = time.Now().Add(limit)
	session.timer = time.AfterFunc(limit, func() {
		s.onTimerExpired(session, gen)
	})
}

func (session *quizSession) stopTimerLocked() {
	session.timerGen++
	if session.timer != nil {
		session.timer.Stop()
		session.timer = nil
	}
}

// onTimerExpired advances past the current question with its answer unset,
// or auto-submits when the final question times out. A selection the user
// never advanced past is discarded.
func (s *QuizService) onTimerExpired(session *quizSession, gen int) {
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.timerGen != gen || session.state != SessionInProgress {
		return
	}
	session.selection = nil

	ctx := context.Background()
	if session.current < len(session.quiz.Questions)-1 {
		session.current++
		s.startTimerLocked(session)
		s.logger.Debug(ctx, "Question timer expired, advancing", map[string]interface{}{
			"user_id": session.userID,
			"quiz_id": session.quiz.ID,
			"index":   session.current,
		})
		return
	}

	s.logger.Info(ctx, "Final question timer expired, auto-submitting", map[string]interface{}{
		"user_id": session.userID,
		"quiz_id": session.quiz.ID,
	})
	if err := s.submitLocked(ctx, session); err != nil {
		s.logger.Error(ctx, "Auto-submit failed", err, map[string]interface{}{
			"user_id": session.userID,
			"quiz_id": session.quiz.ID,
		})
	}
}

// submitLocked grades the committed answers and records the attempt. The
// session transitions to Submitted before the write, so a persistence failure
// leaves the graded result visible and surfaces a retryable error rather than
// rolling the session back.
func (s *QuizService) submitLocked(ctx context.Context, session *quizSession) error {
	session.stopTimerLocked()
	session.state = SessionSubmitted

	summary := ScoreQuiz(session.quiz, session.answers, s.cfg.PassThresholdRatio())

	tracer := observability.GetGlobalTracer()
	ctx, span := tracer.Start(ctx, "quiz.grade")
	span.SetAttributes(
		observability.AttributeQuizID(session.quiz.ID),
		observability.AttributeScore(summary.Score),
		attribute.Bool("quiz.passed", summary.Passed),
	)
	defer span.End()

	result, err := s.attempts.RecordAttempt(ctx, session.userID, session.quiz, summary)
	if err != nil {
		// Reflect the grade locally even though the record write failed.
		session.result = &AttemptResult{
			QuizID:            session.quiz.ID,
			Summary:           summary,
			AttemptsRemaining: session.attemptsRemaining,
			HasPassed:         session.hasPassed || summary.Passed,
		}
		return err
	}

	session.result = result
	session.attemptsRemaining = result.AttemptsRemaining
	session.hasPassed = result.HasPassed
	if result.HasPassed || result.AttemptsRemaining == 0 {
		// No replay possible; the submitted view is final.
		session.state = SessionLocked
	}
	return nil
}

// viewLocked builds an API snapshot. Callers hold session.mu.
func (session *quizSession) viewLocked() *SessionView {
	view := &SessionView{
		QuizID:            session.quiz.ID,
		State:             session.state,
		QuestionIndex:     session.current,
		TotalQuestions:    len(session.quiz.Questions),
		SelectedAnswer:    session.selection,
		AttemptsRemaining: session.attemptsRemaining,
		HasPassed:         session.hasPassed,
		Result:            session.result,
	}
	if session.state == SessionInProgress {
		q := session.quiz.Questions[session.current]
		view.Question = &QuestionView{
			Index:        session.current,
			QuestionText: q.QuestionText,
			Options:      q.Options,
		}
		if remaining := time.Until(session.deadline); remaining > 0 {
			view.TimeRemainingMS = remaining.Milliseconds()
		}
	}
	return view
}

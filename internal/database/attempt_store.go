package database

import (
	"context"
	"time"

	"academyapp/internal/models"
	"academyapp/internal/observability"
	contextutils "academyapp/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
)

// AttemptStore persists quiz attempt records nested under the user document.
type AttemptStore struct {
	users  *mongo.Collection
	logger *observability.Logger
}

// NewAttemptStore creates an attempt store backed by the manager's users collection.
func NewAttemptStore(dm *Manager, logger *observability.Logger) *AttemptStore {
	return &AttemptStore{users: dm.Users(), logger: logger}
}

// AppendAttempt appends one attempt to the user's record for the quiz. The
// attempt-cap and already-passed guards live in the update filter, so under
// concurrent submissions at most maxAttempts attempts are ever recorded and
// a passed quiz accepts none. Returns false when the filters rejected the
// write.
func (s *AttemptStore) AppendAttempt(ctx context.Context, userID, quizID string, attempt models.QuizAttempt, passed bool, maxAttempts int) (result0 bool, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "AppendAttempt",
		observability.AttributeUserID(userID),
		observability.AttributeQuizID(quizID),
		observability.AttributeScore(attempt.Score),
		attribute.Bool("quiz.passed", passed),
	)
	defer observability.FinishSpan(span, &err)

	oid, err := userObjectID(userID)
	if err != nil {
		return false, err
	}

	recordRoot := "quizzesTaken." + quizID
	attemptsPath := recordRoot + ".attempts"

	set := bson.M{
		recordRoot + ".latestAttemptScore": attempt.Score,
		"updatedAt":                        time.Now().UTC(),
	}
	if passed {
		set[recordRoot+".hasPassedQuiz"] = true
	}

	res, err := s.users.UpdateOne(ctx,
		bson.M{
			"_id":                         oid,
			recordRoot + ".hasPassedQuiz": bson.M{"$ne": true},
			"$expr": bson.M{"$lt": bson.A{
				bson.M{"$size": bson.M{"$ifNull": bson.A{"$" + attemptsPath, bson.A{}}}},
				maxAttempts,
			}},
		},
		bson.M{
			"$push": bson.M{attemptsPath: attempt},
			"$set":  set,
		},
	)
	if err != nil {
		return false, contextutils.WrapError(err, "failed to append quiz attempt")
	}
	return res.ModifiedCount > 0, nil
}

// GetRecord returns the user's attempt record for one quiz. A user who never
// attempted the quiz gets an empty record, not an error.
func (s *AttemptStore) GetRecord(ctx context.Context, userID, quizID string) (result0 *models.QuizRecord, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "GetAttemptRecord",
		observability.AttributeUserID(userID),
		observability.AttributeQuizID(quizID),
	)
	defer observability.FinishSpan(span, &err)

	oid, err := userObjectID(userID)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, contextutils.ErrRecordNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to fetch quiz record")
	}

	record, ok := user.QuizzesTaken[quizID]
	if !ok {
		return &models.QuizRecord{}, nil
	}
	return &record, nil
}

// GetAllRecords returns every quiz record for the user keyed by quiz ID.
func (s *AttemptStore) GetAllRecords(ctx context.Context, userID string) (result0 map[string]models.QuizRecord, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "GetAllAttemptRecords",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	oid, err := userObjectID(userID)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, contextutils.ErrRecordNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to fetch quiz records")
	}

	if user.QuizzesTaken == nil {
		return map[string]models.QuizRecord{}, nil
	}
	return user.QuizzesTaken, nil
}

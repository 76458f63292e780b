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

// ProgressStore persists per-course progress nested under the user document.
// All writes are single, filtered update operations so that concurrent
// requests cannot overwrite each other's changes.
type ProgressStore struct {
	users  *mongo.Collection
	logger *observability.Logger
}

// NewProgressStore creates a progress store backed by the manager's users collection.
func NewProgressStore(dm *Manager, logger *observability.Logger) *ProgressStore {
	return &ProgressStore{users: dm.Users(), logger: logger}
}

func progressRoot(courseID string) string {
	return "userProgress." + courseID
}

// Enroll initializes an empty progress record for the course if one does not
// exist yet. Returns false when the user is already enrolled.
func (s *ProgressStore) Enroll(ctx context.Context, userID, courseID string) (result0 bool, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "Enroll",
		observability.AttributeUserID(userID),
		observability.AttributeCourseID(courseID),
	)
	defer observability.FinishSpan(span, &err)

	oid, err := userObjectID(userID)
	if err != nil {
		return false, err
	}

	root := progressRoot(courseID)
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": oid, root: bson.M{"$exists": false}},
		bson.M{"$set": bson.M{
			root:        models.CourseProgress{},
			"updatedAt": time.Now().UTC(),
		}},
	)
	if err != nil {
		return false, contextutils.WrapError(err, "failed to enroll user")
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	// No match means either the enrollment already exists or the user
	// document is gone; tell the two apart.
	err = s.users.FindOne(ctx, bson.M{"_id": oid}).Err()
	if err == mongo.ErrNoDocuments {
		return false, contextutils.ErrRecordNotFound
	}
	if err != nil {
		return false, contextutils.WrapError(err, "failed to enroll user")
	}
	return false, nil
}

// Get returns the user's progress for one course, or ErrNotEnrolled.
func (s *ProgressStore) Get(ctx context.Context, userID, courseID string) (result0 *models.CourseProgress, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "GetProgress",
		observability.AttributeUserID(userID),
		observability.AttributeCourseID(courseID),
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
		return nil, contextutils.WrapError(err, "failed to fetch user progress")
	}

	progress, ok := user.UserProgress[courseID]
	if !ok {
		return nil, contextutils.ErrNotEnrolled
	}
	return &progress, nil
}

// IncrementWatchCount adds one completed playback for the video, bounded by
// maxCount, and records that the video has been watched at least once. The
// count guard lives in the update filter so the cap holds under concurrent
// requests. Returns false when the cap was already reached.
func (s *ProgressStore) IncrementWatchCount(ctx context.Context, userID, courseID string, week int, videoTitle string, maxCount int) (result0 bool, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "IncrementWatchCount",
		observability.AttributeUserID(userID),
		observability.AttributeCourseID(courseID),
		observability.AttributeWeek(week),
		observability.AttributeVideoTitle(videoTitle),
	)
	defer observability.FinishSpan(span, &err)

	oid, err := userObjectID(userID)
	if err != nil {
		return false, err
	}

	root := progressRoot(courseID)
	weekKey := models.WeekKey(week)
	countPath := root + ".videoWatchCounts." + weekKey + "." + videoTitle
	oncePath := root + ".videosWatchedOnce." + weekKey + "." + videoTitle

	res, err := s.users.UpdateOne(ctx,
		bson.M{
			"_id": oid,
			root:  bson.M{"$exists": true},
			"$expr": bson.M{"$lt": bson.A{
				bson.M{"$ifNull": bson.A{"$" + countPath, 0}},
				maxCount,
			}},
		},
		bson.M{
			"$inc": bson.M{countPath: 1},
			"$set": bson.M{oncePath: true, "updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, contextutils.WrapError(err, "failed to increment watch count")
	}
	return res.ModifiedCount > 0, nil
}

// MarkItemComplete records one content item as completed. $addToSet keeps the
// operation idempotent.
func (s *ProgressStore) MarkItemComplete(ctx context.Context, userID, courseID string, week int, contentType models.ContentType, title string) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "MarkItemComplete",
		observability.AttributeUserID(userID),
		observability.AttributeCourseID(courseID),
		observability.AttributeWeek(week),
		attribute.String("progress.content_type", string(contentType)),
	)
	defer observability.FinishSpan(span, &err)

	oid, err := userObjectID(userID)
	if err != nil {
		return err
	}

	root := progressRoot(courseID)
	itemsPath := root + ".completedItems." + models.WeekKey(week) + "." + string(contentType)

	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": oid, root: bson.M{"$exists": true}},
		bson.M{
			"$addToSet": bson.M{itemsPath: title},
			"$set":      bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return contextutils.WrapError(err, "failed to mark item complete")
	}
	if res.MatchedCount == 0 {
		return contextutils.ErrNotEnrolled
	}
	return nil
}

// MarkWeekComplete records the week as completed. Completed weeks only ever
// accumulate; there is no un-complete operation.
func (s *ProgressStore) MarkWeekComplete(ctx context.Context, userID, courseID string, week int) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "MarkWeekComplete",
		observability.AttributeUserID(userID),
		observability.AttributeCourseID(courseID),
		observability.AttributeWeek(week),
	)
	defer observability.FinishSpan(span, &err)

	oid, err := userObjectID(userID)
	if err != nil {
		return err
	}

	root := progressRoot(courseID)
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": oid, root: bson.M{"$exists": true}},
		bson.M{
			"$addToSet": bson.M{root + ".completedWeeks": week},
			"$set":      bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return contextutils.WrapError(err, "failed to mark week complete")
	}
	if res.MatchedCount == 0 {
		return contextutils.ErrNotEnrolled
	}
	return nil
}

// SetLastAccessedWeek records the week the user most recently opened.
func (s *ProgressStore) SetLastAccessedWeek(ctx context.Context, userID, courseID string, week int) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "SetLastAccessedWeek",
		observability.AttributeUserID(userID),
		observability.AttributeCourseID(courseID),
		observability.AttributeWeek(week),
	)
	defer observability.FinishSpan(span, &err)

	oid, err := userObjectID(userID)
	if err != nil {
		return err
	}

	root := progressRoot(courseID)
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": oid, root: bson.M{"$exists": true}},
		bson.M{"$set": bson.M{
			root + ".lastAccessedWeek": week,
			"updatedAt":                time.Now().UTC(),
		}},
	)
	if err != nil {
		return contextutils.WrapError(err, "failed to set last accessed week")
	}
	if res.MatchedCount == 0 {
		return contextutils.ErrNotEnrolled
	}
	return nil
}

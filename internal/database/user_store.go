package database

import (
	"context"
	"time"

	"academyapp/internal/models"
	"academyapp/internal/observability"
	contextutils "academyapp/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
)

// UserStore persists user accounts in the users collection.
type UserStore struct {
	users  *mongo.Collection
	logger *observability.Logger
}

// NewUserStore creates a user store backed by the manager's users collection.
func NewUserStore(dm *Manager, logger *observability.Logger) *UserStore {
	return &UserStore{users: dm.Users(), logger: logger}
}

func userObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, contextutils.WrapError(contextutils.ErrRecordNotFound, "invalid user id")
	}
	return oid, nil
}

// Create inserts a new user document and returns it with the generated ID.
func (s *UserStore) Create(ctx context.Context, user *models.User) (result0 *models.User, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "CreateUser",
		attribute.String("user.username", user.Username),
	)
	defer observability.FinishSpan(span, &err)

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := s.users.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, contextutils.WrapError(contextutils.ErrRecordExists, "username or email already taken")
		}
		return nil, contextutils.WrapError(err, "failed to insert user")
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid
	}
	return user, nil
}

// GetByID returns the user with the given hex ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (result0 *models.User, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "GetUserByID",
		observability.AttributeUserID(id),
	)
	defer observability.FinishSpan(span, &err)

	oid, err := userObjectID(id)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

// GetByUsername returns the user with the given username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (result0 *models.User, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "GetUserByUsername",
		attribute.String("user.username", username),
	)
	defer observability.FinishSpan(span, &err)

	return s.findOne(ctx, bson.M{"username": username})
}

// GetByEmail returns the user with the given email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (result0 *models.User, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "GetUserByEmail")
	defer observability.FinishSpan(span, &err)

	return s.findOne(ctx, bson.M{"email": email})
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, filter).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, contextutils.ErrRecordNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to fetch user")
	}
	return &user, nil
}

// UpdatePassword replaces the stored password hash.
func (s *UserStore) UpdatePassword(ctx context.Context, id, passwordHash string) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "UpdateUserPassword",
		observability.AttributeUserID(id),
	)
	defer observability.FinishSpan(span, &err)

	oid, err := userObjectID(id)
	if err != nil {
		return err
	}
	return s.updateOne(ctx, oid, bson.M{"$set": bson.M{
		"passwordHash": passwordHash,
		"updatedAt":    time.Now().UTC(),
	}})
}

// SetAdmin toggles the admin flag.
func (s *UserStore) SetAdmin(ctx context.Context, id string, isAdmin bool) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "SetUserAdmin",
		observability.AttributeUserID(id),
		attribute.Bool("user.is_admin", isAdmin),
	)
	defer observability.FinishSpan(span, &err)

	oid, err := userObjectID(id)
	if err != nil {
		return err
	}
	return s.updateOne(ctx, oid, bson.M{"$set": bson.M{
		"isAdmin":   isAdmin,
		"updatedAt": time.Now().UTC(),
	}})
}

func (s *UserStore) updateOne(ctx context.Context, oid primitive.ObjectID, update bson.M) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return contextutils.WrapError(err, "failed to update user")
	}
	if res.MatchedCount == 0 {
		return contextutils.ErrRecordNotFound
	}
	return nil
}

// Delete removes the user document.
func (s *UserStore) Delete(ctx context.Context, id string) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "DeleteUser",
		observability.AttributeUserID(id),
	)
	defer observability.FinishSpan(span, &err)

	oid, err := userObjectID(id)
	if err != nil {
		return err
	}
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return contextutils.WrapError(err, "failed to delete user")
	}
	if res.DeletedCount == 0 {
		return contextutils.ErrRecordNotFound
	}
	return nil
}

// List returns all users sorted by username.
func (s *UserStore) List(ctx context.Context) (result0 []*models.User, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "ListUsers")
	defer observability.FinishSpan(span, &err)

	cursor, err := s.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list users")
	}
	defer func() {
		if closeErr := cursor.Close(ctx); closeErr != nil {
			s.logger.Error(ctx, "Failed to close user cursor", closeErr)
		}
	}()

	var users []*models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, contextutils.WrapError(err, "failed to decode users")
	}
	return users, nil
}

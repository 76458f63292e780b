package services

import (
	"context"
	"strings"

	"academyapp/internal/config"
	"academyapp/internal/models"
	"academyapp/internal/observability"
	contextutils "academyapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// UserService handles account creation, authentication, and administration.
type UserService struct {
	store  UserAccountStore
	cfg    *config.Config
	logger *observability.Logger
}

// NewUserServiceWithLogger creates a new user service
func NewUserServiceWithLogger(store UserAccountStore, cfg *config.Config, logger *observability.Logger) *UserService {
	return &UserService{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// CreateUserWithPassword creates a new user with a bcrypt-hashed password.
func (s *UserService) CreateUserWithPassword(ctx context.Context, username, email, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "CreateUserWithPassword",
		attribute.String("user.username", username),
	)
	defer observability.FinishSpan(span, &err)

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || password == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "username and password are required")
	}
	if !contextutils.IsValidEmail(email) {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "invalid email address")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to hash password")
	}

	user, err := s.store.Create(ctx, &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "User created", map[string]interface{}{
		"user_id":  user.HexID(),
		"username": user.Username,
	})
	return user, nil
}

// AuthenticateUser verifies the username/password pair and returns the user.
func (s *UserService) AuthenticateUser(ctx context.Context, username, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "AuthenticateUser",
		attribute.String("user.username", username),
	)
	defer observability.FinishSpan(span, &err)

	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			// Same error as a wrong password so usernames cannot be probed.
			return nil, contextutils.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, contextutils.ErrInvalidCredentials
	}
	return user, nil
}

// GetUserByID returns the user with the given ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetUserByID",
		observability.AttributeUserID(id),
	)
	defer observability.FinishSpan(span, &err)

	return s.store.GetByID(ctx, id)
}

// IsAdmin reports whether the user holds the admin role. Unknown users are
// not admins.
func (s *UserService) IsAdmin(ctx context.Context, userID string) (result0 bool, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "IsAdmin",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin, nil
}

// GetUserByUsername returns the user with the given username.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetUserByUsername",
		attribute.String("user.username", username),
	)
	defer observability.FinishSpan(span, &err)

	return s.store.GetByUsername(ctx, username)
}

// UpdateUserPassword replaces the user's password with a new bcrypt hash.
func (s *UserService) UpdateUserPassword(ctx context.Context, userID, newPassword string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "UpdateUserPassword",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	if newPassword == "" {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "password is required")
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return contextutils.WrapError(err, "failed to hash password")
	}
	return s.store.UpdatePassword(ctx, userID, string(hashedPassword))
}

// DeleteUser removes the user document and everything nested under it,
// including all progress and quiz attempt records.
func (s *UserService) DeleteUser(ctx context.Context, userID string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "DeleteUser",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	if err := s.store.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Info(ctx, "User deleted", map[string]interface{}{"user_id": userID})
	return nil
}

// SetAdminStatus grants or revokes admin rights for the user.
func (s *UserService) SetAdminStatus(ctx context.Context, userID string, isAdmin bool) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "SetAdminStatus",
		observability.AttributeUserID(userID),
		attribute.Bool("user.is_admin", isAdmin),
	)
	defer observability.FinishSpan(span, &err)

	if err := s.store.SetAdmin(ctx, userID, isAdmin); err != nil {
		return err
	}
	s.logger.Info(ctx, "Admin status updated", map[string]interface{}{"user_id": userID, "is_admin": isAdmin})
	return nil
}

// GetAllUsers returns every user account.
func (s *UserService) GetAllUsers(ctx context.Context) (result0 []*models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetAllUsers")
	defer observability.FinishSpan(span, &err)

	return s.store.List(ctx)
}

// EnsureAdminUserExists creates the admin account on first boot, or promotes
// an existing account with the admin username.
func (s *UserService) EnsureAdminUserExists(ctx context.Context, adminUsername, adminPassword string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "EnsureAdminUserExists",
		attribute.String("user.username", adminUsername),
	)
	defer observability.FinishSpan(span, &err)

	if adminUsername == "" || adminPassword == "" {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "admin username and password must be configured")
	}

	existing, err := s.store.GetByUsername(ctx, adminUsername)
	if err != nil && !contextutils.IsError(err, contextutils.ErrRecordNotFound) {
		return err
	}

	if existing != nil {
		if existing.IsAdmin {
			return nil
		}
		if err := s.store.SetAdmin(ctx, existing.HexID(), true); err != nil {
			return err
		}
		s.logger.Info(ctx, "Promoted existing user to admin", map[string]interface{}{
			"username": adminUsername,
		})
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return contextutils.WrapError(err, "failed to hash admin password")
	}

	admin, err := s.store.Create(ctx, &models.User{
		Username:     adminUsername,
		Email:        adminUsername + "@localhost",
		PasswordHash: string(hashedPassword),
		IsAdmin:      true,
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "Admin user created", map[string]interface{}{
		"user_id":  admin.HexID(),
		"username": adminUsername,
	})
	return nil
}

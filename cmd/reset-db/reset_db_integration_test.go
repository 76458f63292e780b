//go:build integration

package main

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"academyapp/internal/config"
	"academyapp/internal/database"
	"academyapp/internal/observability"
	"academyapp/internal/services"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
)

// ResetDBIntegrationTestSuite exercises the reset flow against a real
// MongoDB instance. Requires ACADEMY_DATABASE_URI to point at a disposable
// database.
type ResetDBIntegrationTestSuite struct {
	suite.Suite
	Manager     *database.Manager
	UserService *services.UserService
	Logger      *observability.Logger
	Config      *config.Config
}

func (s *ResetDBIntegrationTestSuite) SetupSuite() {
	uri := os.Getenv("ACADEMY_DATABASE_URI")
	if uri == "" {
		s.T().Skip("ACADEMY_DATABASE_URI not set, skipping integration tests")
	}

	cfg := &config.Config{}
	cfg.Database.URI = uri
	cfg.Database.Name = fmt.Sprintf("academy_reset_test_%d", time.Now().UnixNano())
	cfg.Server.AdminUsername = "admin"
	cfg.Server.AdminPassword = "admin-test-password"

	s.Config = cfg
	s.Logger = observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})

	s.Manager = database.NewManager(s.Logger)
	require.NoError(s.T(), s.Manager.Connect(context.Background(), cfg.Database))

	s.UserService = services.NewUserServiceWithLogger(database.NewUserStore(s.Manager, s.Logger), cfg, s.Logger)
}

func (s *ResetDBIntegrationTestSuite) TearDownSuite() {
	if s.Manager == nil {
		return
	}
	ctx := context.Background()
	_ = s.Manager.Database().Drop(ctx)
	_ = s.Manager.Close(ctx)
}

func (s *ResetDBIntegrationTestSuite) TestResetRemovesAllUsers() {
	ctx := context.Background()

	_, err := s.UserService.CreateUserWithPassword(ctx, "resetme", "resetme@example.com", "password123")
	s.Require().NoError(err)

	count, err := s.Manager.Users().CountDocuments(ctx, bson.M{})
	s.Require().NoError(err)
	s.Require().Positive(count)

	s.Require().NoError(s.Manager.Reset(ctx))

	count, err = s.Manager.Users().CountDocuments(ctx, bson.M{})
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *ResetDBIntegrationTestSuite) TestResetRecreatesUniqueIndexes() {
	ctx := context.Background()

	s.Require().NoError(s.Manager.Reset(ctx))

	_, err := s.UserService.CreateUserWithPassword(ctx, "uniq", "uniq@example.com", "password123")
	s.Require().NoError(err)

	_, err = s.UserService.CreateUserWithPassword(ctx, "uniq", "other@example.com", "password123")
	s.Error(err, "duplicate username must be rejected after reset")
}

func (s *ResetDBIntegrationTestSuite) TestAdminUserRecreatedAfterReset() {
	ctx := context.Background()

	s.Require().NoError(s.Manager.Reset(ctx))
	s.Require().NoError(s.UserService.EnsureAdminUserExists(ctx, s.Config.Server.AdminUsername, s.Config.Server.AdminPassword))

	admin, err := s.UserService.GetUserByUsername(ctx, s.Config.Server.AdminUsername)
	s.Require().NoError(err)
	s.True(admin.IsAdmin)

	_, err = s.UserService.AuthenticateUser(ctx, s.Config.Server.AdminUsername, s.Config.Server.AdminPassword)
	s.NoError(err)
}

func TestResetDBIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(ResetDBIntegrationTestSuite))
}

// Package commands provides CLI commands for the admin tool
package commands

import (
	"context"
	"os"

	"go.mongodb.org/mongo-driver/bson"

	"academyapp/internal/database"
	"academyapp/internal/observability"
	"academyapp/internal/services"
	contextutils "academyapp/internal/utils"

	"github.com/spf13/cobra"
)

// DatabaseCommands returns the database management commands
func DatabaseCommands(userService *services.UserService, logger *observability.Logger, dbManager *database.Manager) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands for the academy backend.

Available commands:
  stats - Show database statistics
  ping  - Verify database connectivity`,
	}

	// Add subcommands
	dbCmd.AddCommand(statsCmd(userService, logger, dbManager))
	dbCmd.AddCommand(pingCmd(logger, dbManager))

	return dbCmd
}

// statsCmd returns the stats command
func statsCmd(userService *services.UserService, logger *observability.Logger, dbManager *database.Manager) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Long:  `Show database statistics including user counts and other metrics.`,
		RunE:  runStats(userService, logger, dbManager),
	}
}

// pingCmd returns the ping command
func pingCmd(logger *observability.Logger, dbManager *database.Manager) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Verify database connectivity",
		RunE:  runPing(logger, dbManager),
	}
}

// runStats returns a function that shows database statistics
func runStats(userService *services.UserService, logger *observability.Logger, dbManager *database.Manager) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		// Log diagnostic information
		logger.Info(ctx, "Diagnostic info", map[string]interface{}{"config_file": os.Getenv("ACADEMY_CONFIG_FILE"), "database": getDatabaseInfo(dbManager)})

		logger.Info(ctx, "Showing database statistics", map[string]interface{}{})

		totalUsers, err := dbManager.Users().CountDocuments(ctx, bson.M{})
		if err != nil {
			logger.Error(ctx, "Failed to count users", err, map[string]interface{}{})
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to count users: %v", err)
		}

		adminUsers, err := dbManager.Users().CountDocuments(ctx, bson.M{"isAdmin": true})
		if err != nil {
			logger.Error(ctx, "Failed to count admin users", err, map[string]interface{}{})
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to count admin users: %v", err)
		}

		enrolledUsers, err := dbManager.Users().CountDocuments(ctx, bson.M{"userProgress": bson.M{"$exists": true, "$ne": bson.M{}}})
		if err != nil {
			logger.Error(ctx, "Failed to count enrolled users", err, map[string]interface{}{})
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to count enrolled users: %v", err)
		}

		logger.Info(ctx, "Database statistics", map[string]interface{}{
			"total_users":    totalUsers,
			"admin_users":    adminUsers,
			"enrolled_users": enrolledUsers,
			"database":       "MongoDB",
			"status":         "Connected",
		})

		return nil
	}
}

// runPing returns a function that pings the database
func runPing(logger *observability.Logger, dbManager *database.Manager) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		// Log diagnostic information
		logger.Info(ctx, "Diagnostic info", map[string]interface{}{"config_file": os.Getenv("ACADEMY_CONFIG_FILE"), "database": getDatabaseInfo(dbManager)})

		var result bson.M
		if err := dbManager.Database().RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Decode(&result); err != nil {
			logger.Error(ctx, "Ping failed", err, map[string]interface{}{})
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "ping failed: %v", err)
		}

		logger.Info(ctx, "Database is reachable", map[string]interface{}{"database": dbManager.Database().Name()})
		return nil
	}
}

package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"academyapp/internal/observability"
	"academyapp/internal/services"
	contextutils "academyapp/internal/utils"

	"github.com/spf13/cobra"
)

// UserCommands returns the user management commands
func UserCommands(userService *services.UserService, logger *observability.Logger, databaseURI string) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long: `User management commands for the academy backend.

Available commands:
  list           - List all users
  create         - Create a new user
  delete         - Delete a user and all their records
  promote        - Grant admin rights to a user
  reset-password - Reset password for a specific user`,
	}

	// Add subcommands
	userCmd.AddCommand(listCmd(userService, logger, databaseURI))
	userCmd.AddCommand(createCmd(userService, logger))
	userCmd.AddCommand(deleteCmd(userService, logger))
	userCmd.AddCommand(promoteCmd(userService, logger))
	userCmd.AddCommand(resetPasswordCmd(userService, logger))

	return userCmd
}

// listCmd returns the list command
func listCmd(userService *services.UserService, logger *observability.Logger, databaseURI string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Long:  `List all users in the database with their basic information.`,
		RunE:  runListUsers(userService, logger, databaseURI),
	}
}

// createCmd returns the create command
func createCmd(userService *services.UserService, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "create [username] [email]",
		Short: "Create a new user",
		Long:  `Create a new user account. You will be prompted for the password.`,
		Args:  cobra.ExactArgs(2),
		RunE:  runCreateUser(userService, logger),
	}
}

// deleteCmd returns the delete command
func deleteCmd(userService *services.UserService, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [username]",
		Short: "Delete a user",
		Long:  `Delete a user account along with their enrollments and quiz records.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runDeleteUser(userService, logger),
	}
}

// promoteCmd returns the promote command
func promoteCmd(userService *services.UserService, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "promote [username]",
		Short: "Grant admin rights to a user",
		RunE:  runPromoteUser(userService, logger),
		Args:  cobra.ExactArgs(1),
	}
}

// resetPasswordCmd returns the reset-password command
func resetPasswordCmd(userService *services.UserService, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password [username]",
		Short: "Reset password for a user",
		Long:  `Reset the password for a specific user. If username is not provided, you will be prompted for it.`,
		RunE:  runResetPassword(userService, logger),
	}
}

// runListUsers returns a function that lists all users
func runListUsers(userService *services.UserService, logger *observability.Logger, databaseURI string) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		// Show diagnostic information
		logger.Info(ctx, "Admin command diagnostics", map[string]interface{}{"config_file": os.Getenv("ACADEMY_CONFIG_FILE"), "database_uri": maskDatabaseURI(databaseURI)})

		logger.Info(ctx, "Listing all users", map[string]interface{}{})

		users, err := userService.GetAllUsers(ctx)
		if err != nil {
			logger.Error(ctx, "Failed to get users", err, map[string]interface{}{})
			return contextutils.WrapError(err, "failed to get users")
		}

		if len(users) == 0 {
			logger.Info(ctx, "No users found in the database", nil)
			return nil
		}

		// Print header to stdout (user-facing table)
		fmt.Printf("%-26s %-20s %-30s %-8s %-12s %-8s %-10s\n", "ID", "Username", "Email", "Admin", "Enrollments", "Quizzes", "Created")

		// Print each user
		for _, user := range users {
			isAdmin := "No"
			if user.IsAdmin {
				isAdmin = "Yes"
			}

			fmt.Printf("%-26s %-20s %-30s %-8s %-12d %-8d %-10s\n",
				user.HexID(),
				user.Username,
				user.Email,
				isAdmin,
				len(user.UserProgress),
				len(user.QuizzesTaken),
				user.CreatedAt.Format("2006-01-02"),
			)
		}

		logger.Info(ctx, "Listed users", map[string]interface{}{"total": len(users)})
		return nil
	}
}

// runCreateUser returns a function that creates a new user
func runCreateUser(userService *services.UserService, logger *observability.Logger) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		username := args[0]
		email := args[1]

		password, err := promptPassword()
		if err != nil {
			return err
		}

		user, err := userService.CreateUserWithPassword(ctx, username, email, password)
		if err != nil {
			logger.Error(ctx, "Failed to create user", err, map[string]interface{}{"username": username})
			return contextutils.WrapErrorf(err, "failed to create user '%s'", username)
		}

		fmt.Printf("User '%s' created (ID: %s)\n", user.Username, user.HexID())
		logger.Info(ctx, "User created", map[string]interface{}{"username": username, "user_id": user.HexID()})
		return nil
	}
}

// runDeleteUser returns a function that deletes a user by username
func runDeleteUser(userService *services.UserService, logger *observability.Logger) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		username := args[0]

		user, err := userService.GetUserByUsername(ctx, username)
		if err != nil {
			logger.Error(ctx, "Failed to get user", err, map[string]interface{}{"username": username})
			return contextutils.WrapErrorf(err, "failed to get user '%s'", username)
		}

		if err := userService.DeleteUser(ctx, user.HexID()); err != nil {
			logger.Error(ctx, "Failed to delete user", err, map[string]interface{}{"username": username, "user_id": user.HexID()})
			return contextutils.WrapErrorf(err, "failed to delete user '%s'", username)
		}

		fmt.Printf("User '%s' deleted (ID: %s)\n", username, user.HexID())
		logger.Info(ctx, "User deleted", map[string]interface{}{"username": username, "user_id": user.HexID()})
		return nil
	}
}

// runPromoteUser returns a function that grants admin rights to a user
func runPromoteUser(userService *services.UserService, logger *observability.Logger) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		username := args[0]

		user, err := userService.GetUserByUsername(ctx, username)
		if err != nil {
			logger.Error(ctx, "Failed to get user", err, map[string]interface{}{"username": username})
			return contextutils.WrapErrorf(err, "failed to get user '%s'", username)
		}

		if user.IsAdmin {
			fmt.Printf("User '%s' is already an admin\n", username)
			return nil
		}

		if err := userService.SetAdminStatus(ctx, user.HexID(), true); err != nil {
			logger.Error(ctx, "Failed to promote user", err, map[string]interface{}{"username": username, "user_id": user.HexID()})
			return contextutils.WrapErrorf(err, "failed to promote user '%s'", username)
		}

		fmt.Printf("User '%s' is now an admin\n", username)
		logger.Info(ctx, "User promoted to admin", map[string]interface{}{"username": username, "user_id": user.HexID()})
		return nil
	}
}

// runResetPassword returns a function that resets a user's password
func runResetPassword(userService *services.UserService, logger *observability.Logger) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		var username string

		// Get username from args or prompt
		if len(args) > 0 {
			username = args[0]
		} else {
			fmt.Print("Enter username: ")
			if _, err := fmt.Scanln(&username); err != nil {
				return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read username: %v", err)
			}
		}

		if username == "" {
			return contextutils.ErrorWithContextf("username is required")
		}

		newPassword, err := promptPassword()
		if err != nil {
			return err
		}

		logger.Info(ctx, "Resetting password for user", map[string]interface{}{
			"username": username,
		})

		// Get user by username
		user, err := userService.GetUserByUsername(ctx, username)
		if err != nil {
			logger.Error(ctx, "Failed to get user", err, map[string]interface{}{"username": username})
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to get user '%s': %v", username, err)
		}

		// Update the password
		err = userService.UpdateUserPassword(ctx, user.HexID(), newPassword)
		if err != nil {
			logger.Error(ctx, "Failed to update password", err, map[string]interface{}{
				"username": username,
				"user_id":  user.HexID(),
			})
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to update password for user '%s': %v", username, err)
		}

		fmt.Printf("Password successfully reset for user '%s' (ID: %s)\n", username, user.HexID())
		logger.Info(ctx, "Password reset successful", map[string]interface{}{
			"username": username,
			"user_id":  user.HexID(),
		})

		return nil
	}
}

// promptPassword reads and confirms a password without echoing it.
func promptPassword() (string, error) {
	fmt.Print("Enter new password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password: %v", err)
	}
	password := string(passwordBytes)
	fmt.Println() // New line after password input

	if password == "" {
		return "", contextutils.ErrorWithContextf("password cannot be empty")
	}

	// Confirm password
	fmt.Print("Confirm new password: ")
	confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password confirmation: %v", err)
	}
	fmt.Println() // New line after password input

	if password != string(confirmBytes) {
		return "", contextutils.ErrorWithContextf("passwords do not match")
	}

	return password, nil
}

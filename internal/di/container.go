// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"sync"

	"academyapp/internal/catalog"
	"academyapp/internal/config"
	"academyapp/internal/database"
	"academyapp/internal/observability"
	"academyapp/internal/services"
	contextutils "academyapp/internal/utils"
)

// The document store implementations must satisfy the store interfaces the
// services are written against.
var (
	_ services.UserAccountStore    = (*database.UserStore)(nil)
	_ services.ProgressRecordStore = (*database.ProgressStore)(nil)
	_ services.AttemptRecordStore  = (*database.AttemptStore)(nil)
)

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	dbManager     *database.Manager
	catalog       *catalog.Catalog
	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger) *ServiceContainer {
	return &ServiceContainer{
		cfg:      cfg,
		logger:   logger,
		services: make(map[string]interface{}),
	}
}

// Initialize sets up all services and their dependencies
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	cat, err := catalog.Load()
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to load course catalog")
	}
	sc.catalog = cat

	sc.dbManager = database.NewManager(sc.logger)
	if err := sc.dbManager.Connect(ctx, sc.cfg.Database); err != nil {
		return contextutils.WrapErrorf(err, "failed to connect to database")
	}
	sc.shutdownFuncs = append(sc.shutdownFuncs, sc.dbManager.Close)

	sc.initializeServices()

	return nil
}

// initializeServices sets up all service dependencies
func (sc *ServiceContainer) initializeServices() {
	userStore := database.NewUserStore(sc.dbManager, sc.logger)
	progressStore := database.NewProgressStore(sc.dbManager, sc.logger)
	attemptStore := database.NewAttemptStore(sc.dbManager, sc.logger)

	userService := services.NewUserServiceWithLogger(userStore, sc.cfg, sc.logger)
	sc.services["user"] = userService

	emailService := services.NewEmailService(sc.cfg, sc.logger)
	sc.services["email"] = emailService

	attemptService := services.NewAttemptService(attemptStore, userStore, emailService, sc.cfg, sc.logger)
	sc.services["attempt"] = attemptService

	quizService := services.NewQuizService(sc.catalog, attemptService, sc.cfg, sc.logger)
	sc.services["quiz"] = quizService
	// Session timers run off goroutines; cancel them on shutdown.
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(context.Context) error {
		quizService.Shutdown()
		return nil
	})

	progressService := services.NewProgressService(progressStore, userStore, sc.catalog, sc.cfg, sc.logger)
	sc.services["progress"] = progressService
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetUserService returns the user service
func (sc *ServiceContainer) GetUserService() (*services.UserService, error) {
	return GetServiceAs[*services.UserService](sc, "user")
}

// GetQuizService returns the quiz session service
func (sc *ServiceContainer) GetQuizService() (*services.QuizService, error) {
	return GetServiceAs[*services.QuizService](sc, "quiz")
}

// GetAttemptService returns the attempt record service
func (sc *ServiceContainer) GetAttemptService() (*services.AttemptService, error) {
	return GetServiceAs[*services.AttemptService](sc, "attempt")
}

// GetProgressService returns the progress tracking service
func (sc *ServiceContainer) GetProgressService() (*services.ProgressService, error) {
	return GetServiceAs[*services.ProgressService](sc, "progress")
}

// GetEmailService returns the email service
func (sc *ServiceContainer) GetEmailService() (*services.EmailService, error) {
	return GetServiceAs[*services.EmailService](sc, "email")
}

// GetCatalog returns the loaded course catalog
func (sc *ServiceContainer) GetCatalog() *catalog.Catalog {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.catalog
}

// GetDatabase returns the database manager
func (sc *ServiceContainer) GetDatabase() *database.Manager {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.dbManager
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// Shutdown gracefully shuts down all services in reverse order of
// initialization.
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var errs []error
	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			sc.logger.Error(ctx, "Shutdown step failed", err)
			errs = append(errs, err)
		}
	}
	sc.shutdownFuncs = nil

	if len(errs) > 0 {
		return contextutils.ErrorWithContextf("shutdown errors: %v", errs)
	}
	return nil
}

// EnsureAdminUser creates the admin user if it doesn't exist
func (sc *ServiceContainer) EnsureAdminUser(ctx context.Context) error {
	userService, err := sc.GetUserService()
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to get user service")
	}

	return userService.EnsureAdminUserExists(ctx, sc.cfg.Server.AdminUsername, sc.cfg.Server.AdminPassword)
}

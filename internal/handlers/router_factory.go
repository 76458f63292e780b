package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"academyapp/internal/catalog"
	"academyapp/internal/config"
	"academyapp/internal/middleware"
	"academyapp/internal/observability"
	"academyapp/internal/services"
	"academyapp/internal/version"
)

// NewRouter creates a new router with all the necessary middleware and routes
func NewRouter(
	cfg *config.Config,
	userService *services.UserService,
	quizService *services.QuizService,
	attemptService *services.AttemptService,
	progressService *services.ProgressService,
	cat *catalog.Catalog,
	logger *observability.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.ErrorRecoveryMiddleware(logger, middleware.DefaultErrorRecoveryConfig()))

	// HTTP request logging through the observability logger
	router.Use(func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.status_code": statusCode,
			"http.latency_ms":  latency.Milliseconds(),
			"http.client_ip":   c.ClientIP(),
			"http.user_agent":  c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			fields["http.error"] = c.Errors.String()
		}

		switch {
		case statusCode >= 500:
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		case statusCode >= 400:
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		default:
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	})

	// Health check endpoint (defined before any middleware)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "backend"})
	})

	// OpenTelemetry middleware for HTTP tracing and context propagation
	router.Use(observability.GinMiddlewareWithErrorHandling(cfg.OpenTelemetry.ServiceName))

	// Response validation against the OpenAPI spec
	schemaLoader := middleware.AutoLoadSchemas()
	router.Use(middleware.ResponseValidationMiddleware(logger, schemaLoader))

	router.StaticFile("/swagger.yaml", "./swagger.yaml")

	// Disable automatic redirection for trailing slashes, which is better for APIs
	router.RedirectTrailingSlash = false

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	sessionOpts := sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(config.SessionMaxAge.Seconds()),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   config.SessionSecure,
	}
	if cfg.Server.Debug {
		sessionOpts.SameSite = http.SameSiteDefaultMode
	} else {
		sessionOpts.SameSite = http.SameSiteLaxMode
		sessionOpts.Secure = true
	}
	store.Options(sessionOpts)
	router.Use(sessions.Sessions(config.SessionName, store))

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	authHandler := NewAuthHandler(userService, cfg, logger)
	quizHandler := NewQuizHandler(quizService, attemptService, cat, cfg, logger)
	progressHandler := NewProgressHandler(progressService, cat, cfg, logger)
	adminHandler := NewAdminHandler(userService, attemptService, progressService, cfg, logger)

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"service":   "backend",
				"version":   version.Version,
				"commit":    version.Commit,
				"buildTime": version.BuildTime,
			})
		})

		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/status", authHandler.Status)
			auth.GET("/check", middleware.RequireAuth(), authHandler.Check)
		}

		courses := v1.Group("/courses")
		{
			courses.GET("", progressHandler.ListCourses)
			courses.GET("/:courseID", progressHandler.GetCourse)

			enrolled := courses.Group("/:courseID")
			enrolled.Use(middleware.RequireAuth())
			{
				enrolled.POST("/enroll", progressHandler.Enroll)
				enrolled.GET("/progress", progressHandler.GetProgress)
				enrolled.POST("/videos/ended", progressHandler.VideoEnded)
				enrolled.POST("/items/complete", progressHandler.CompleteItem)
				enrolled.POST("/weeks/:week/open", progressHandler.OpenWeek)
			}
		}
		v1.GET("/enrollments", middleware.RequireAuth(), progressHandler.ListEnrollments)

		quizzes := v1.Group("/quizzes")
		{
			quizzes.GET("", quizHandler.ListQuizzes)
			quizzes.GET("/records", middleware.RequireAuth(), quizHandler.GetAllQuizRecords)

			quiz := quizzes.Group("/:quizID")
			quiz.Use(middleware.RequireAuth())
			{
				quiz.GET("/record", quizHandler.GetQuizRecord)
				quiz.POST("/session", quizHandler.StartSession)
				quiz.GET("/session", quizHandler.GetSession)
				quiz.DELETE("/session", quizHandler.EndSession)
				quiz.POST("/session/answer", quizHandler.SelectAnswer)
				quiz.POST("/session/next", quizHandler.NextQuestion)
				quiz.POST("/session/submit", quizHandler.Submit)
				quiz.POST("/session/play-again", quizHandler.PlayAgain)
			}
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.RequireAdmin(userService))
		{
			admin.GET("/userz", adminHandler.GetAllUsers)
			admin.DELETE("/userz/:id", adminHandler.DeleteUser)
			admin.POST("/userz/:id/reset-password", adminHandler.ResetUserPassword)
			admin.GET("/userz/:id/records", adminHandler.GetUserQuizRecords)
			admin.GET("/userz/:id/enrollments", adminHandler.GetUserEnrollments)
			admin.GET("/configz", adminHandler.GetConfigz)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return router
}

package config

import "time"

// Quiz rule defaults
const (
	// DefaultMaxQuizAttempts bounds the attempt history per quiz
	DefaultMaxQuizAttempts = 3
	// DefaultQuestionTimeLimit is the per-question countdown
	DefaultQuestionTimeLimit = 10 * time.Second
	// DefaultPassThresholdRatio is the fraction of correct answers required to pass
	DefaultPassThresholdRatio = 0.8
)

// Progress rule defaults
const (
	// DefaultMaxVideoWatchCount caps counted completed playbacks per video
	DefaultMaxVideoWatchCount = 10
)

// Database defaults
const (
	// DatabaseConnectTimeout is the default timeout for the initial connection and ping
	DatabaseConnectTimeout = 10 * time.Second
	// DatabaseMaxPoolSize is the default driver connection pool size
	DatabaseMaxPoolSize = 25
)

// Session cookie settings
const (
	// SessionName is the cookie name used for login sessions
	SessionName = "academy-session"
	// SessionPath scopes the session cookie
	SessionPath = "/"
	// SessionMaxAge is how long a login session stays valid
	SessionMaxAge = 24 * time.Hour
	// SessionHTTPOnly keeps the cookie out of reach of frontend scripts
	SessionHTTPOnly = true
	// SessionSecure requires HTTPS for the cookie outside of debug mode
	SessionSecure = false
)

// DefaultCSP is the Content-Security-Policy header applied to all responses.
const DefaultCSP = "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'"

// UsersCollection is the document collection holding one document per user,
// with progress and quiz attempt records nested under it.
const UsersCollection = "Users"

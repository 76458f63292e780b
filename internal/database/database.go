// Package database provides the document store connection and the typed
// stores built on top of it.
package database

import (
	"context"

	"academyapp/internal/config"
	"academyapp/internal/observability"
	contextutils "academyapp/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.opentelemetry.io/otel/attribute"
)

// Manager owns the client lifecycle and hands out collections.
type Manager struct {
	logger *observability.Logger
	client *mongo.Client
	db     *mongo.Database
}

// NewManager creates a new database manager with the provided logger
func NewManager(logger *observability.Logger) *Manager {
	return &Manager{
		logger: logger,
	}
}

// Connect opens an instrumented client, pings the server, and ensures the
// indexes the application relies on.
func (dm *Manager) Connect(ctx context.Context, cfg config.DatabaseConfig) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "Connect",
		attribute.String("db.system", "mongodb"),
		attribute.String("db.name", cfg.Name),
	)
	defer observability.FinishSpan(span, &err)

	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = config.DatabaseConnectTimeout
	}
	maxPoolSize := cfg.MaxPoolSize
	if maxPoolSize == 0 {
		maxPoolSize = config.DatabaseMaxPoolSize
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(connectTimeout).
		SetMaxPoolSize(maxPoolSize).
		SetMonitor(otelmongo.NewMonitor())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return contextutils.WrapError(err, "failed to connect to database")
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		if dcErr := client.Disconnect(ctx); dcErr != nil {
			dm.logger.Error(ctx, "Failed to disconnect after ping failure", dcErr)
		}
		return contextutils.WrapError(err, "failed to ping database")
	}

	dm.client = client
	dm.db = client.Database(cfg.Name)

	if err := dm.ensureIndexes(ctx); err != nil {
		return err
	}

	dm.logger.Info(ctx, "Database connection established", map[string]interface{}{
		"db_name":       cfg.Name,
		"max_pool_size": maxPoolSize,
	})
	return nil
}

// Close disconnects the underlying client.
func (dm *Manager) Close(ctx context.Context) error {
	if dm.client == nil {
		return nil
	}
	if err := dm.client.Disconnect(ctx); err != nil {
		return contextutils.WrapError(err, "failed to disconnect from database")
	}
	return nil
}

// Database returns the application database handle.
func (dm *Manager) Database() *mongo.Database {
	return dm.db
}

// Users returns the users collection. One document per user holds the
// account plus the nested progress and quiz attempt records.
func (dm *Manager) Users() *mongo.Collection {
	return dm.db.Collection(config.UsersCollection)
}

// Reset drops the users collection and recreates the indexes, leaving an
// empty database behind. Intended for local development and tests only.
func (dm *Manager) Reset(ctx context.Context) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "Reset",
		attribute.String("db.collection", config.UsersCollection),
	)
	defer observability.FinishSpan(span, &err)

	if err := dm.Users().Drop(ctx); err != nil {
		return contextutils.WrapError(err, "failed to drop users collection")
	}
	return dm.ensureIndexes(ctx)
}

// ensureIndexes creates the unique indexes enforcing username and email
// uniqueness. CreateMany is idempotent for identical definitions.
func (dm *Manager) ensureIndexes(ctx context.Context) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "ensureIndexes",
		attribute.String("db.collection", config.UsersCollection),
	)
	defer observability.FinishSpan(span, &err)

	_, err = dm.Users().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_username"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
	})
	if err != nil {
		return contextutils.WrapError(err, "failed to ensure indexes")
	}
	return nil
}

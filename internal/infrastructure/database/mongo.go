package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/citc/clubhub/internal/infrastructure/config"
)

// Collection names used by the document backend.
const (
	UsersCollection    = "users"
	EventsCollection   = "events"
	TeamsCollection    = "teams"
	MembersCollection  = "members"
	ProjectsCollection = "projects"
)

// Mongo wraps the client and database handle of the document backend
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
	config config.DatabaseConfig
}

// NewMongo connects to MongoDB and verifies the connection.
func NewMongo(ctx context.Context, cfg config.DatabaseConfig) (*Mongo, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &Mongo{
		Client: client,
		DB:     client.Database(cfg.MongoDatabase),
		config: cfg,
	}, nil
}

// Close disconnects the client
func (m *Mongo) Close(ctx context.Context) error {
	if m.Client != nil {
		return m.Client.Disconnect(ctx)
	}
	return nil
}

// Ping pings the primary
func (m *Mongo) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Client.Ping(ctx, readpref.Primary())
}

// HealthCheck checks database health
func (m *Mongo) HealthCheck() error {
	if err := m.Ping(); err != nil {
		return fmt.Errorf("mongo health check failed: %w", err)
	}
	return nil
}

// GetConnectionInfo returns backend details for the health endpoint
func (m *Mongo) GetConnectionInfo() map[string]interface{} {
	return map[string]interface{}{
		"driver":   config.DriverMongo,
		"database": m.DB.Name(),
	}
}

// EnsureIndexes creates the indexes the repositories rely on. Each call is
// idempotent; problems are aggregated so startup fails with all of them.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
			{Keys: bson.D{{Key: "google_id", Value: 1}}, Options: options.Index().SetSparse(true).SetName("idx_google_id")},
		},
		EventsCollection: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetName("idx_slug")},
			{Keys: bson.D{{Key: "year", Value: 1}, {Key: "start_at", Value: 1}}, Options: options.Index().SetName("idx_year_start")},
		},
		MembersCollection: {
			{Keys: bson.D{{Key: "team_id", Value: 1}, {Key: "order", Value: 1}}, Options: options.Index().SetName("idx_team_order")},
		},
	}

	var problems []string
	for coll, models := range specs {
		if _, err := m.DB.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			problems = append(problems, coll+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

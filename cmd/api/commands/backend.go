package commands

import (
	"context"
	"fmt"

	"github.com/citc/clubhub/internal/adapters/repository"
	"github.com/citc/clubhub/internal/infrastructure/config"
	"github.com/citc/clubhub/internal/infrastructure/database"
	"github.com/citc/clubhub/internal/infrastructure/logger"
	"github.com/citc/clubhub/internal/infrastructure/server"
	"github.com/citc/clubhub/internal/ports"
)

// backend is an opened storage driver with its repositories
type backend struct {
	store server.Store
	repos ports.Repositories
	// files is set only for the file driver
	files *database.DB
	close func(context.Context) error
}

func openBackend(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (*backend, error) {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		m, err := database.NewMongo(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := m.EnsureIndexes(ctx); err != nil {
			m.Close(ctx)
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		appLogger.Infow("Connected to MongoDB", "database", cfg.Database.MongoDatabase)
		return &backend{
			store: m,
			repos: repository.NewMongoRepositories(m),
			close: m.Close,
		}, nil

	case config.DriverFile:
		db, err := database.New(cfg.Database, appLogger)
		if err != nil {
			return nil, err
		}
		appLogger.Infow("Using file store", "data_dir", db.DataDir())
		return &backend{
			store: db,
			repos: repository.NewFileRepositories(db),
			files: db,
			close: func(context.Context) error { return db.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/citc/clubhub/internal/application/services"
	"github.com/citc/clubhub/internal/domain/entities"
	"github.com/citc/clubhub/internal/infrastructure/config"
	"github.com/citc/clubhub/internal/infrastructure/logger"
	"github.com/citc/clubhub/internal/infrastructure/server"
	"github.com/citc/clubhub/internal/seed"
)

// Set at build time with -ldflags "-X .../commands.Version=..."
var (
	Version   = "dev"
	GitCommit = "development"
	BuildDate = "unknown"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the API server with all configured routes and middleware. Empty collections are seeded first unless SEED_ON_START is false.",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewSeedCommand creates the seed command
func NewSeedCommand() *cobra.Command {
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed empty collections from the bundled snapshot",
		Run: func(cmd *cobra.Command, args []string) {
			dir, _ := cmd.Flags().GetString("dir")
			runSeed(dir)
		},
	}
	seedCmd.Flags().String("dir", "", "Directory with teams.json/events.json overriding the bundled snapshot")
	return seedCmd
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Data migration commands",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "events",
		Short: "Split the legacy events.json into year partitions",
		Long:  "Copy every event of <data_dir>/events.json into events/<year>.json. Events already present are skipped; the legacy file is kept.",
		Run: func(cmd *cobra.Command, args []string) {
			runEventMigration()
		},
	})

	return migrateCmd
}

// NewUserCommand creates the user management command
func NewUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
	}

	createUserCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user",
		Run: func(cmd *cobra.Command, args []string) {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			role, _ := cmd.Flags().GetString("role")

			if email == "" || password == "" {
				log.Fatal("Email and password are required")
			}

			createUser(name, email, password, entities.UserRole(role))
		},
	}

	createUserCmd.Flags().String("name", "", "Display name (defaults to the email's local part)")
	createUserCmd.Flags().String("email", "", "User email (required)")
	createUserCmd.Flags().String("password", "", "User password (required)")
	createUserCmd.Flags().String("role", string(entities.UserRoleMember), "User role (admin, mentor, member, guest)")

	userCmd.AddCommand(createUserCmd)
	return userCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("clubhub %s\n", Version)
			fmt.Printf("Build Date: %s\n", BuildDate)
			fmt.Printf("Git Commit: %s\n", GitCommit)
		},
	}
}

func setup() (*config.Config, *logger.Logger) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return cfg, appLogger
}

func runServer() {
	cfg, appLogger := setup()
	defer appLogger.Sync()

	ctx := context.Background()

	b, err := openBackend(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatalw("Failed to open store", "driver", cfg.Database.Driver, "error", err)
	}
	defer b.close(ctx)

	if err := b.store.Ping(); err != nil {
		appLogger.Fatalw("Store is not reachable", "error", err)
	}

	if cfg.Database.SeedOnStart {
		if _, err := seed.New(b.repos, cfg.Database.SeedDir, appLogger).Run(ctx); err != nil {
			appLogger.Fatalw("Seeding failed", "error", err)
		}
	}

	srv, err := server.New(cfg, b.store, b.repos, appLogger)
	if err != nil {
		appLogger.Fatalw("Failed to initialize server", "error", err)
	}

	go func() {
		appLogger.Infow("Starting API server",
			"port", cfg.Server.Port,
			"environment", cfg.App.Environment,
		)

		if err := srv.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalw("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Errorw("Server forced to shutdown", "error", err)
		return
	}

	appLogger.Infow("Server exited gracefully")
}

func runSeed(dir string) {
	cfg, appLogger := setup()
	defer appLogger.Sync()

	if dir == "" {
		dir = cfg.Database.SeedDir
	}

	ctx := context.Background()
	b, err := openBackend(ctx, cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer b.close(ctx)

	res, err := seed.New(b.repos, dir, appLogger).Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	fmt.Printf("Seeded %d teams, %d members, %d events\n", res.Teams, res.Members, res.Events)
}

func runEventMigration() {
	cfg, appLogger := setup()
	defer appLogger.Sync()

	if cfg.Database.Driver != config.DriverFile {
		log.Fatalf("migrate events only applies to the %q driver", config.DriverFile)
	}

	ctx := context.Background()
	b, err := openBackend(ctx, cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer b.close(ctx)

	res, err := seed.MigrateLegacyEvents(ctx, b.files, appLogger)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	fmt.Printf("Found %d legacy events: %d migrated, %d already present\n", res.Found, res.Migrated, res.Skipped)
	if len(res.Years) > 0 {
		fmt.Printf("Partitions written: %v\n", res.Years)
	}
}

func createUser(name, email, password string, role entities.UserRole) {
	if !role.Valid() {
		log.Fatalf("Invalid role %q", role)
	}

	cfg, appLogger := setup()
	defer appLogger.Sync()

	ctx := context.Background()
	b, err := openBackend(ctx, cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer b.close(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	hash, err := services.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user := &entities.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsVerified:   true,
	}
	if err := b.repos.Users.Create(ctx, user); err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("User created successfully:\n")
	fmt.Printf("  ID: %s\n", user.ID)
	fmt.Printf("  Name: %s\n", user.Name)
	fmt.Printf("  Email: %s\n", user.Email)
	fmt.Printf("  Role: %s\n", user.Role)
}

package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/citc/clubhub/cmd/api/commands"
)

// @title ClubHub API
// @version 1.0
// @description Club management backend: accounts, events with RSVP, team directory and projects

// @host localhost:5053
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	rootCmd := &cobra.Command{
		Use:   "clubhub",
		Short: "ClubHub API Server",
		Long:  `ClubHub is the backend of the club website: accounts, events, the team directory and project showcases.`,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewSeedCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}

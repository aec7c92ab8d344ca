package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/508dev/interview-service/internal/config"
	"github.com/508dev/interview-service/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "./config/application.yaml"

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "interview-service",
		Short: "508.dev mock interview marketplace",
		Long: `Runs the interview marketplace web application and its admin tasks.

Without a subcommand the web server is started.`,
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the YAML configuration file")

	root.AddCommand(serveCmd)
	root.AddCommand(migrateCmd)
	root.AddCommand(newCreateInterviewerCmd())
	root.AddCommand(createTagCmd)
	root.AddCommand(setPasswordCmd)
	return root
}

// Execute runs the command line.
func Execute() error {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// openDatabase loads the configuration, applies migrations and opens a pool.
func openDatabase() (config.Application, *pgxpool.Pool, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Application{}, nil, err
	}
	if err := database.Migrate(cfg.Database); err != nil {
		return config.Application{}, nil, err
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return config.Application{}, nil, err
	}
	return cfg, db, nil
}

func withDatabase(fn func(ctx context.Context, cfg config.Application, db *pgxpool.Pool) error) error {
	cfg, db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(context.Background(), cfg, db)
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/activity-log/cmd/cli/commands"
	"github.com/jakechorley/activity-log/internal/config"
	"github.com/jakechorley/activity-log/pkg/clients/sheetsclient"
	"github.com/jakechorley/activity-log/pkg/core/roster"
	"github.com/jakechorley/activity-log/pkg/db"
	"github.com/jakechorley/activity-log/pkg/postgres"
	"github.com/jakechorley/activity-log/pkg/sheetssql"
	"github.com/jakechorley/activity-log/pkg/utils/logging"
)

var (
	env     string
	app     = &commands.AppContext{}
	closers []func()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Activity log - members log work, admins review it",
		Long:  `Serves and manages the member activity log kept in a Google Sheets (or PostgreSQL) row store.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			for _, c := range closers {
				c()
			}
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.ListMembersCmd(app))
	rootCmd.AddCommand(commands.ListPendingCmd(app))
	rootCmd.AddCommand(commands.LogActivityCmd(app))
	rootCmd.AddCommand(commands.ReviewEntryCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up config, logger, row store and the loaded roster
func initApp() error {
	var err error
	app.Ctx = context.Background()

	// Load configuration first so the logger can honour the debug flag
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app.Logger, err = logging.InitLogger(env, app.Cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application",
		zap.String("environment", env),
		zap.String("backend", app.Cfg.Backend))

	app.Store, err = openStore(app.Ctx, app.Cfg, app.Logger)
	if err != nil {
		return err
	}

	app.Roster = roster.New(app.Store, app.Logger, roster.Options{
		StoreTimeout:          app.Cfg.StoreTimeout,
		SupportMembershipType: app.Cfg.SupportMembershipType,
		LoadConcurrency:       app.Cfg.LoadConcurrency,
	})

	// The roster must load before anything is served
	if err := app.Roster.Reload(app.Ctx); err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}

	return nil
}

// openStore connects the configured row store backend
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (db.Store, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		logger.Info("Connecting to PostgreSQL")
		pg, err := postgres.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		closers = append(closers, pg.Close)

		if err := pg.RunMigrations(ctx); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Debug("Migrations applied")
		return pg, nil

	default:
		logger.Info("Loading service account credentials")
		creds, err := config.LoadServiceAccount(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load credentials: %w", err)
		}

		logger.Info("Initializing sheets client", zap.Int("requests_per_minute", cfg.RequestsPerMinute))
		client, err := sheetsclient.NewClient(ctx, creds, cfg.RequestsPerMinute)
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets client: %w", err)
		}

		logger.Info("Connecting to spreadsheet", zap.String("spreadsheet_id", cfg.SpreadsheetID))
		database, err := db.NewDB(sheetssql.NewDB(client, cfg.SpreadsheetID), cfg.DirectoryTab, cfg.DirectoryColumns, cfg.EntryColumns)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return database, nil
	}
}

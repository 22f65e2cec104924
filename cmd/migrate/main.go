package main

import (
	"fmt"
	"os"
	"strconv"

	"go-conge/internal/config"
	"go-conge/internal/shared/connection"
	"go-conge/internal/shared/database"
	"go-conge/internal/shared/logger"

	"github.com/MakeNowJust/heredoc"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Example: heredoc.Doc(`
			$ migrate up
			$ migrate down 1
			$ migrate version -c ./config/config.yaml
		`),
		SilenceUsage: true,
	}

	cmd.AddCommand(upCmd(), downCmd(), versionCmd())
	cmd.PersistentFlags().StringP("config", "c", os.Getenv("CONFIG_FILE"), "Config file path")

	return cmd
}

func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd, func(db *gorm.DB, log *zap.Logger) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return database.RunMigrations(sqlDB, log)
			})
		},
	}
}

func downCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down [steps]",
		Short: "Revert migrations, one step unless told otherwise",
		Example: heredoc.Doc(`
			$ migrate down
			$ migrate down 3
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("steps must be a positive integer, got %q", args[0])
				}
				steps = n
			}

			return withDatabase(cmd, func(db *gorm.DB, log *zap.Logger) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return database.RollbackMigrations(sqlDB, steps, log)
			})
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd, func(db *gorm.DB, log *zap.Logger) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				version, dirty, err := database.Version(sqlDB)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
				return nil
			})
		},
	}
}

func withDatabase(cmd *cobra.Command, fn func(db *gorm.DB, log *zap.Logger) error) error {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("getting config flag value: %w", err)
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := connection.ConnectGORMWithRetry(cfg.Database, log)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	return fn(db, log.Named("migrate"))
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"distance-request-service/internal/adapters/repositories"
	"distance-request-service/internal/config"
	"distance-request-service/internal/platform/db"
	"distance-request-service/internal/platform/logging"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	databaseURL string
	dbPath      string
	seedPath    string
)

var rootCmd = &cobra.Command{
	Use:   "dbtool",
	Short: "Manage the distance request database",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadDotEnv()
		logging.Setup(os.Stderr, config.Get("LOG_FORMAT", "human"), config.Get("LOG_LEVEL", "info"))
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create tables and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, _, err := open()
		if err != nil {
			return err
		}
		defer conn.Close()

		log.Info().Msg("initializing database schema")
		if err := repositories.InitSchema(cmd.Context(), conn); err != nil {
			return err
		}
		log.Info().Msg("schema ready")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Initialize the schema and upsert demo transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, dialect, err := open()
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := repositories.InitSchema(cmd.Context(), conn); err != nil {
			return err
		}
		n, err := repositories.SeedFromJSON(cmd.Context(), conn, dialect, seedPath)
		if err != nil {
			return err
		}
		log.Info().Int("transactions", n).Str("file", seedPath).Msg("seeding complete")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres connection URL (defaults to $DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "SQLite file used when no Postgres URL is given (defaults to $DB_PATH)")
	seedCmd.Flags().StringVar(&seedPath, "file", "data/seeds/transactions.json", "JSON file of transactions to upsert")

	rootCmd.AddCommand(initCmd, seedCmd)
}

func open() (*sql.DB, db.Dialect, error) {
	url := databaseURL
	if url == "" {
		url = config.Get("DATABASE_URL", "")
	}
	if url != "" {
		conn, err := db.Open(url)
		return conn, db.Postgres, err
	}

	path := dbPath
	if path == "" {
		path = config.Get("DB_PATH", "data/app.db")
	}
	conn, err := db.OpenSQLite(path)
	return conn, db.SQLite, err
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

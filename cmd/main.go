package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Dosada05/scrim-system/config"
	"github.com/Dosada05/scrim-system/db"
	"github.com/urfave/cli/v2"
)

const (
	purgeInterval    = time.Minute // как часто чистим брошенные комнаты
	txMaxAttempts    = 3
	dbConnectTimeout = 5 * time.Second
	shutdownTimeout  = 15 * time.Second
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	app := &cli.App{
		Name:  "scrim",
		Usage: "CS2 5v5 scrim server",
		Commands: []*cli.Command{
			serveCommand(cfg, logger),
			migrateCommand(cfg, logger),
		},
		// Без подкоманды запускаем сервер.
		Action: func(c *cli.Context) error {
			return serve(cfg, logger, true)
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("application failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func serveCommand(cfg *config.Config, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP and websocket server",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "migrate",
				Usage:   "apply pending migrations before start",
				Value:   true,
				EnvVars: []string{"AUTO_MIGRATE"},
			},
		},
		Action: func(c *cli.Context) error {
			return serve(cfg, logger, c.Bool("migrate"))
		},
	}
}

func migrateCommand(cfg *config.Config, logger *slog.Logger) *cli.Command {
	withDB := func(fn func(conn *sql.DB) error) error {
		conn, err := openDB(cfg, logger)
		if err != nil {
			return err
		}
		defer conn.Close()
		return fn(conn)
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: func(c *cli.Context) error {
					return withDB(func(conn *sql.DB) error { return db.Migrate(conn, logger) })
				},
			},
			{
				Name:  "down",
				Usage: "roll back the latest migration",
				Action: func(c *cli.Context) error {
					return withDB(func(conn *sql.DB) error { return db.Rollback(conn, logger) })
				},
			},
			{
				Name:  "version",
				Usage: "print the current schema version",
				Action: func(c *cli.Context) error {
					return withDB(func(conn *sql.DB) error {
						version, err := db.Version(conn)
						if err != nil {
							return err
						}
						fmt.Fprintln(c.App.Writer, version)
						return nil
					})
				},
			},
		},
	}
}

func openDB(cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	conn, err := db.Connect(cfg.DatabaseURL, dbConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("database connection established")
	return conn, nil
}

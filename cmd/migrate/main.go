package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"openmusic/internal/config"
	"openmusic/internal/logging"
	"openmusic/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.SetGlobalLogger(logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}))

	dsnFlag := &cli.StringFlag{
		Name:  "database-url",
		Usage: "PostgreSQL connection URL",
		Value: cfg.Database.URL,
	}

	app := &cli.Command{
		Name:  "migrate",
		Usage: "Apply the embedded OpenMusic schema migrations",
		Flags: []cli.Flag{dsnFlag},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations, or N with --steps",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Usage: "number of migrations to apply (0 = all)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withMigrator(cmd.String("database-url"), func(m *migrate.Migrate) error {
						steps := int(cmd.Int("steps"))
						if steps > 0 {
							return m.Steps(steps)
						}
						return m.Up()
					})
				},
			},
			{
				Name:  "down",
				Usage: "Roll back one migration, or N with --steps, or everything with --all",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Usage: "number of migrations to roll back", Value: 1},
					&cli.BoolFlag{Name: "all", Usage: "roll back every migration"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withMigrator(cmd.String("database-url"), func(m *migrate.Migrate) error {
						if cmd.Bool("all") {
							return m.Down()
						}
						return m.Steps(-int(cmd.Int("steps")))
					})
				},
			},
			{
				Name:  "version",
				Usage: "Print the current schema version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withMigrator(cmd.String("database-url"), func(m *migrate.Migrate) error {
						version, dirty, err := m.Version()
						if errors.Is(err, migrate.ErrNilVersion) {
							fmt.Println("no migrations applied")
							return nil
						}
						if err != nil {
							return err
						}
						fmt.Printf("version %d (dirty: %t)\n", version, dirty)
						return nil
					})
				},
			},
			{
				Name:      "force",
				Usage:     "Set the schema version without running migrations, clearing the dirty flag",
				ArgsUsage: "VERSION",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "version"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					version, err := strconv.Atoi(cmd.StringArg("version"))
					if err != nil {
						return fmt.Errorf("invalid version %q: %w", cmd.StringArg("version"), err)
					}
					return withMigrator(cmd.String("database-url"), func(m *migrate.Migrate) error {
						return m.Force(version)
					})
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
}

// withMigrator opens the database, runs fn against the embedded migrations
// and treats ErrNoChange as success.
func withMigrator(dsn string, fn func(*migrate.Migrate) error) error {
	if dsn == "" {
		return errors.New("database url is required (DATABASE_URL or PG* variables)")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, err := m.Version()
	if err == nil {
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema version")
	}
	return nil
}

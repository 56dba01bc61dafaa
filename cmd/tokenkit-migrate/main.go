// Command tokenkit-migrate applies the refresh-token schema migrations to a
// PostgreSQL database. SQLite deployments bootstrap their schema through
// store.SQL.Init and do not need this tool.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, version, force")
		steps   = flag.Int("steps", 0, "Number of migration steps (for up/down)")
		version = flag.Uint("version", 0, "Target version (for force command)")
		dir     = flag.String("dir", "./migrations", "Migrations directory")
	)
	flag.Parse()

	_ = godotenv.Load()

	dsn := os.Getenv("TOKENKIT_DATABASE_URL")
	if dsn == "" {
		log.Fatal("TOKENKIT_DATABASE_URL is required")
	}

	switch *command {
	case "up":
		if err := run(*dir, dsn, true, *steps); err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		fmt.Println("migrations applied")
	case "down":
		if err := run(*dir, dsn, false, *steps); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		fmt.Println("migrations rolled back")
	case "version":
		v, dirty, err := currentVersion(*dir, dsn)
		if err != nil {
			log.Fatalf("Failed to get version: %v", err)
		}
		if dirty {
			fmt.Printf("database is in a dirty state (version %d)\n", v)
			os.Exit(1)
		}
		fmt.Printf("current migration version: %d\n", v)
	case "force":
		if *version == 0 {
			log.Fatal("Version required for force command (use -version flag)")
		}
		if err := force(*dir, dsn, int(*version)); err != nil {
			log.Fatalf("Force migration failed: %v", err)
		}
		fmt.Printf("forced database to version %d\n", *version)
	default:
		log.Fatalf("Unknown command: %s (supported: up, down, version, force)", *command)
	}
}

func newMigrate(migrationsDir, dsn string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database connection: %w", err)
	}
	cleanup := func() { _ = db.Close() }

	if err := db.Ping(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("database ping failed: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("creating migrate driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, "postgres", driver)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("creating migrate instance: %w", err)
	}
	return m, cleanup, nil
}

func run(migrationsDir, dsn string, up bool, steps int) error {
	m, cleanup, err := newMigrate(migrationsDir, dsn)
	if err != nil {
		return err
	}
	defer cleanup()

	if steps > 0 {
		if !up {
			steps = -steps
		}
		if err := m.Steps(steps); err != nil && err != migrate.ErrNoChange {
			return fmt.Errorf("applying migrations: %w", err)
		}
		return nil
	}

	if up {
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			return fmt.Errorf("applying migrations: %w", err)
		}
		return nil
	}
	if err := m.Down(); err != nil {
		return fmt.Errorf("rolling back migrations: %w", err)
	}
	return nil
}

func currentVersion(migrationsDir, dsn string) (uint, bool, error) {
	m, cleanup, err := newMigrate(migrationsDir, dsn)
	if err != nil {
		return 0, false, err
	}
	defer cleanup()

	version, dirty, err := m.Version()
	if err == migrate.ErrNilVersion {
		return 0, false, nil
	}
	return version, dirty, err
}

func force(migrationsDir, dsn string, version int) error {
	m, cleanup, err := newMigrate(migrationsDir, dsn)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := m.Force(version); err != nil {
		return fmt.Errorf("forcing version: %w", err)
	}
	return nil
}

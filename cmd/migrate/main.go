package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/taic/backend/internal/infrastructure/config"
	"github.com/taic/backend/internal/infrastructure/event"
	"github.com/taic/backend/internal/infrastructure/logger"
	"github.com/taic/backend/internal/infrastructure/migration"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

func main() {
	var (
		migrationsPath string
		logLevel       string
	)
	flag.StringVar(&migrationsPath, "path", "", "Path to migrations directory (default: ./migrations)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	if err := run(args[0], args[1:], migrationsPath, log); err != nil {
		if errors.Is(err, errUnknownCommand) {
			log.Error("Unknown command", zap.String("command", args[0]))
			printUsage()
			os.Exit(1)
		}
		log.Fatal("Command failed", zap.String("command", args[0]), zap.Error(err))
	}
}

var errUnknownCommand = errors.New("unknown command")

func run(command string, args []string, migrationsPath string, log *zap.Logger) error {
	path, err := resolveMigrationsPath(migrationsPath)
	if err != nil {
		return err
	}
	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("migrations_path", path),
	)

	// create and list work on files alone.
	switch command {
	case "create":
		return runCreate(path, args, log)
	case "list":
		return runList(path, log)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if command == "events" {
		return migrateEventPayloads(db, log, hasFlag(args, "dry-run"))
	}

	m, err := migration.New(db, path, log)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	switch command {
	case "up":
		return m.Up()

	case "down":
		return m.Down()

	case "step":
		n, err := intArg(args, "step count")
		if err != nil {
			return err
		}
		return m.Steps(n)

	case "goto":
		if len(args) < 1 {
			return errors.New("version required, usage: migrate goto <version>")
		}
		version, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version number %q", args[0])
		}
		return m.GoTo(uint(version))

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		if version == 0 {
			log.Info("No migrations applied")
		} else {
			log.Info("Current migration version",
				zap.Uint("version", version),
				zap.Bool("dirty", dirty),
			)
		}
		return nil

	case "force":
		v, err := intArg(args, "version")
		if err != nil {
			return err
		}
		log.Warn("Forcing migration version - use with caution!")
		return m.Force(v)

	case "drop":
		if !hasFlag(args, "confirm") {
			return errors.New("drop cancelled, use 'migrate drop -confirm' to confirm")
		}
		return m.Drop()

	default:
		return errUnknownCommand
	}
}

func runCreate(path string, args []string, log *zap.Logger) error {
	if len(args) < 1 {
		return errors.New("migration name required, usage: migrate create <name> [description]")
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}

	mf, err := migration.CreateMigration(path, args[0], description)
	if err != nil {
		return err
	}

	log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func runList(path string, log *zap.Logger) error {
	migrations, err := migration.ListMigrations(path)
	if err != nil {
		return err
	}
	if len(migrations) == 0 {
		log.Info("No migrations found")
		return nil
	}
	log.Info("Available migrations", zap.Int("count", len(migrations)))
	for _, m := range migrations {
		fmt.Println("  -", m)
	}
	return nil
}

// resolveMigrationsPath returns an absolute migrations directory. An empty
// argument falls back to ./migrations, then to <executable>/../../migrations
// so the binary works both from the repo root and an install tree.
func resolveMigrationsPath(path string) (string, error) {
	if path == "" {
		path = defaultMigrationsPath
		if _, err := os.Stat(path); err != nil {
			if execPath, execErr := os.Executable(); execErr == nil {
				candidate := filepath.Join(filepath.Dir(execPath), "..", "..", defaultMigrationsPath)
				if _, err := os.Stat(candidate); err == nil {
					path = candidate
				}
			}
		}
	}
	return filepath.Abs(path)
}

func hasFlag(args []string, name string) bool {
	for _, arg := range args {
		if arg == "-"+name || arg == "--"+name {
			return true
		}
	}
	return false
}

func intArg(args []string, what string) (int, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("%s required", what)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, args[0])
	}
	return n, nil
}

// migrateEventPayloads rewrites stale outbox payloads to the current event
// schema version using the registered upgrader chains. Run it after
// deploying a build that bumps an event's schema version, so the outbox
// processor reads only current-version payloads.
func migrateEventPayloads(db *sql.DB, log *zap.Logger, dryRun bool) error {
	serializer := event.NewVersionedSerializer(log)
	if err := event.RegisterAllEvents(serializer); err != nil {
		return err
	}
	migrator := event.NewEventMigrator(serializer, log)

	rows, err := db.Query(`SELECT id, event_type, payload FROM outbox_events`)
	if err != nil {
		return fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	type staleEntry struct {
		id        string
		eventType string
		payload   []byte
	}

	var (
		stale   []staleEntry
		scanned int
		unknown int
	)
	for rows.Next() {
		var e staleEntry
		if err := rows.Scan(&e.id, &e.eventType, &e.payload); err != nil {
			return fmt.Errorf("scan outbox row: %w", err)
		}
		scanned++

		current, ok := serializer.CurrentVersion(e.eventType)
		if !ok {
			unknown++
			log.Warn("Skipping outbox entry with unregistered event type",
				zap.String("id", e.id),
				zap.String("event_type", e.eventType),
			)
			continue
		}
		if event.ExtractVersion(e.payload) < current {
			stale = append(stale, e)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate outbox rows: %w", err)
	}

	log.Info("Scanned outbox for stale event payloads",
		zap.Int("scanned", scanned),
		zap.Int("stale", len(stale)),
		zap.Int("unknown_types", unknown),
		zap.Bool("dry_run", dryRun),
	)
	if dryRun || len(stale) == 0 {
		return nil
	}

	var upgraded, failed int
	for _, e := range stale {
		payload, version, err := migrator.MigratePayload(e.eventType, e.payload)
		if err != nil {
			failed++
			log.Error("Failed to upgrade outbox payload",
				zap.String("id", e.id),
				zap.String("event_type", e.eventType),
				zap.Error(err),
			)
			continue
		}
		if _, err := db.Exec(
			`UPDATE outbox_events SET payload = $1, updated_at = NOW() WHERE id = $2`,
			payload, e.id,
		); err != nil {
			return fmt.Errorf("update outbox entry %s: %w", e.id, err)
		}
		upgraded++
		log.Debug("Upgraded outbox payload",
			zap.String("id", e.id),
			zap.String("event_type", e.eventType),
			zap.Int("to_version", version),
		)
	}

	log.Info("Outbox payload migration complete",
		zap.Int("upgraded", upgraded),
		zap.Int("failed", failed),
	)
	if failed > 0 {
		return fmt.Errorf("%d payloads failed to upgrade", failed)
	}
	return nil
}

func printUsage() {
	fmt.Println(`TAIC Database Migration Tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  force <version>       Force set migration version (use with caution)
  events [-dry-run]     Upgrade stored outbox event payloads to the current schema
  drop -confirm         Drop all database objects (DANGEROUS)
  create <name> [desc]  Create a new migration file pair
  list                  List available migrations

Flags:
  -path string          Path to migrations directory (default: ./migrations)
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME, DB_SSL_MODE

Examples:
  # Apply all pending migrations
  migrate up

  # Roll back the last migration
  migrate step -1

  # Create a new migration
  migrate create add_listings_table "Create product listings table"

  # Check current version
  migrate version`)
}

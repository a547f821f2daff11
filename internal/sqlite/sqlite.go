package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/mr-karan/hawkalert/internal/config"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB stores the sync journal and runtime settings.
// Reads use a pool while writes go through a single connection, matching
// SQLite's WAL model of concurrent readers and one writer.
type DB struct {
	readDB  *sql.DB
	writeDB *sql.DB
	log     *slog.Logger
}

// Options holds configuration for creating a new DB instance.
type Options struct {
	Logger *slog.Logger
	Config config.SQLiteConfig
}

// New establishes a connection to the SQLite database, configures it,
// runs migrations, and returns a DB instance ready for use.
func New(opts Options) (*DB, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "sqlite")

	// Run migrations first using a temporary connection.
	if err := setupAndRunMigrations(opts.Config.Path, log); err != nil {
		return nil, err
	}

	// Open read connection pool (concurrent readers allowed in WAL mode).
	readDB, err := sql.Open("sqlite", opts.Config.Path)
	if err != nil {
		log.Error("failed to open read database", "error", err, "path", opts.Config.Path)
		return nil, fmt.Errorf("error opening read database: %w", err)
	}

	readDB.SetMaxOpenConns(8)
	readDB.SetMaxIdleConns(4)
	readDB.SetConnMaxLifetime(30 * time.Minute)
	readDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := setPragmas(readDB); err != nil {
		readDB.Close()
		log.Error("failed to set pragmas on read database", "error", err)
		return nil, fmt.Errorf("error setting pragmas on read database: %w", err)
	}

	// _txlock=immediate takes the write lock at BEGIN.
	writeDSN := opts.Config.Path + "?_txlock=immediate"
	writeDB, err := sql.Open("sqlite", writeDSN)
	if err != nil {
		readDB.Close()
		log.Error("failed to open write database", "error", err, "path", opts.Config.Path)
		return nil, fmt.Errorf("error opening write database: %w", err)
	}

	// Single connection enforces serialized writes (SQLite limitation).
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)
	writeDB.SetConnMaxLifetime(0)

	if err := setPragmas(writeDB); err != nil {
		readDB.Close()
		writeDB.Close()
		log.Error("failed to set pragmas on write database", "error", err)
		return nil, fmt.Errorf("error setting pragmas on write database: %w", err)
	}

	log.Debug("sqlite initialized with read/write separation", "path", opts.Config.Path)

	return &DB{
		readDB:  readDB,
		writeDB: writeDB,
		log:     log,
	}, nil
}

// setupAndRunMigrations handles the setup and execution of database migrations.
func setupAndRunMigrations(dsn string, log *slog.Logger) error {
	migrationDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Error("failed to open migration database", "error", err, "path", dsn)
		return fmt.Errorf("error opening migration database: %w", err)
	}
	defer func() {
		log.Debug("closing migration database connection")
		_ = migrationDB.Close()
	}()

	if _, err := migrationDB.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		log.Error("failed to set busy_timeout on migration database", "error", err)
		return fmt.Errorf("error setting busy_timeout on migration database: %w", err)
	}

	log.Debug("running database migrations")
	if err := runMigrations(migrationDB, log); err != nil {
		log.Error("migration failed", "error", err, "path", dsn)
		return fmt.Errorf("error running migrations: %w", err)
	}
	log.Debug("database migrations completed")
	return nil
}

// setPragmas configures WAL mode and the connection limits the journal relies on.
func setPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA journal_size_limit = 5000000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA cache_size = -4000", // KiB
		"PRAGMA mmap_size = 0",      // modernc.org/sqlite misbehaves with mmap
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("error setting pragma %q: %w", pragma, err)
		}
	}
	return nil
}

// runMigrations applies the embedded migrations with golang-migrate.
func runMigrations(db *sql.DB, log *slog.Logger) error {
	log.Debug("initializing database migrations")
	migrationFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		log.Error("failed to create migrations filesystem subsection", "error", err)
		return fmt.Errorf("error creating migrations filesystem: %w", err)
	}

	sourceDriver, err := iofs.New(migrationFS, ".")
	if err != nil {
		log.Error("failed to create migration source driver", "error", err)
		return fmt.Errorf("error creating migration source driver: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		log.Error("failed to create sqlite migration database driver", "error", err)
		return fmt.Errorf("error creating sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		log.Error("failed to create migrate instance", "error", err)
		return fmt.Errorf("error creating migrate instance: %w", err)
	}

	currentVersion, dirty, err := m.Version()
	switch {
	case err != nil && !errors.Is(err, migrate.ErrNilVersion):
		log.Error("failed to get current migration version", "error", err)
	case errors.Is(err, migrate.ErrNilVersion):
		log.Debug("no previous migrations found")
	default:
		log.Debug("current migration version", "version", currentVersion, "dirty", dirty)
		if dirty {
			log.Warn("journal database is in a dirty migration state")
		}
	}

	defer func() {
		if m != nil {
			sourceErr, dbErr := m.Close()
			if sourceErr != nil {
				log.Warn("error closing migration source driver", "error", sourceErr)
			}
			if dbErr != nil {
				log.Warn("error closing migration database driver", "error", dbErr)
			}
		}
	}()

	log.Debug("applying database migrations")
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Debug("migrations up to date")
			return nil
		}
		log.Error("migration failed", "error", err)
		return fmt.Errorf("error applying migrations: %w", err)
	}

	finalVersion, dirty, err := m.Version()
	if err != nil {
		log.Error("failed to get migration version", "error", err)
	} else {
		log.Debug("migrations applied", "new_version", finalVersion, "dirty", dirty)
	}

	return nil
}

// Close closes both connection pools.
func (db *DB) Close() error {
	db.log.Debug("closing database connections")
	var errs []error
	if err := db.writeDB.Close(); err != nil {
		db.log.Error("error closing write database", "error", err)
		errs = append(errs, err)
	}
	if err := db.readDB.Close(); err != nil {
		db.log.Error("error closing read database", "error", err)
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("error closing database connections: %v", errs)
	}
	return nil
}

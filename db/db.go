package db

import (
	"baseroom/logs"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	msqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"
)

// DriverName is the sqlite3 driver with the casefold() SQL function attached to
// every connection.
const DriverName = "sqlite3_casefold"

// TimeLayout is fixed width so that timestamps sort lexically.
const TimeLayout = "2006-01-02 15:04:05.000000"

//go:embed migrations/*.sql
var MigrationFiles embed.FS

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("casefold", Fold, true)
		},
	})
}

// Fold returns the Unicode case folded form of s. A Caser is stateful, so one
// is built per call.
func Fold(s string) string {
	return cases.Fold().String(s)
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func ParseTime(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// InitSQLite opens the database file with foreign keys enforced. Writers take
// the lock at BEGIN and wait on each other instead of failing with SQLITE_BUSY.
func InitSQLite(databaseName string) (*sql.DB, error) {
	if databaseName == "" {
		return nil, fmt.Errorf("empty database path")
	}
	sep := "?"
	if strings.Contains(databaseName, "?") {
		sep = "&"
	}
	dsn := databaseName + sep + "_foreign_keys=1&_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL"

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, err
	}

	var enabled int
	err = db.QueryRow("PRAGMA foreign_keys").Scan(&enabled)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error checking foreign keys: %v", err)
	}
	if enabled != 1 {
		db.Close()
		return nil, fmt.Errorf("foreign keys are not enabled")
	}

	return db, nil
}

// InitDB opens the database and applies every pending migration found in dir.
func InitDB(databaseName string, migrationFiles fs.FS, dir string) (*sql.DB, error) {
	db, err := InitSQLite(databaseName)
	if err != nil {
		return nil, err
	}

	if err := migrateUp(db, migrationFiles, dir); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func migrateUp(db *sql.DB, migrationFiles fs.FS, dir string) error {
	source, err := iofs.New(migrationFiles, dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	driver, err := msqlite.WithInstance(db, &msqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	// m.Close would also close db, which the caller still owns.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, _, _ := m.Version()
	logs.Info.Printf("database schema at version %d", version)
	return nil
}

func CloseDB(databaseInstance *sql.DB) {
	if databaseInstance != nil {
		databaseInstance.Close()
		logs.Info.Println("Database connection closed")
	}
}

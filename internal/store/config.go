package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/winebox/dbmigrate/internal/schema"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultTableName is the version tracker table.
const DefaultTableName = "schema_version"

// SqliteConfig configures the sqlite driver
type SqliteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// PostgresConfig configures the postgres driver
type PostgresConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// Config selects and configures the database the migration session runs
// against. The version tracker lives in the same database as the schema it
// tracks.
type Config struct {
	Driver    string         `mapstructure:"driver" yaml:"driver"`
	Sqlite    SqliteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres  PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
	TableName string         `mapstructure:"table_name" yaml:"table_name"`
}

// Dialect returns the schema dialect for the configured driver.
func (c Config) Dialect() (schema.Dialect, error) {
	switch c.Driver {
	case DriverSqlite, "":
		return schema.NewSqliteDialect(), nil
	case DriverPostgres, "postgresql":
		return schema.NewPostgresDialect(), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", c.Driver)
	}
}

// Connect opens the configured database. The sqlite pool is pinned to a
// single connection: SQLite allows only one writer, and session pragmas
// must stick to the connection the steps run on.
func (c Config) Connect() (*sql.DB, error) {
	switch c.Driver {
	case DriverSqlite, "":
		if c.Sqlite.Path == "" {
			return nil, fmt.Errorf("sqlite store requires a path")
		}
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", c.Sqlite.Path)
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
		}
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(10 * time.Minute)
		return db, nil
	case DriverPostgres, "postgresql":
		if c.Postgres.DSN == "" {
			return nil, fmt.Errorf("postgres store requires a dsn")
		}
		db, err := sql.Open("pgx", c.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
		}
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", c.Driver)
	}
}

func (c Config) tableName() string {
	if c.TableName != "" {
		return c.TableName
	}
	return DefaultTableName
}

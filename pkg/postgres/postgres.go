package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/Layr-Labs/contract-activity/internal/config"
	"github.com/Layr-Labs/contract-activity/internal/tests"
	"github.com/Layr-Labs/contract-activity/pkg/postgres/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultSSLMode = "disable"

var validSSLModes = []string{
	"disable",
	"require",
	"verify-ca",
	"verify-full",
}

// database names are interpolated into DDL, which cannot take parameters
var validDbName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig contains all configuration parameters needed to establish
// a connection to a PostgreSQL database.
type PostgresConfig struct {
	// Host is the PostgreSQL server hostname or IP address
	Host string
	// Port is the PostgreSQL server port number
	Port int
	// Username for authentication with the PostgreSQL server
	Username string
	// Password for authentication with the PostgreSQL server
	Password string
	// DbName is the name of the database to connect to
	DbName string
	// CreateDbIfNotExists indicates whether to create the database if it doesn't exist
	CreateDbIfNotExists bool
	// SchemaName specifies the schema to use within the database
	SchemaName string
	// SSLMode is one of disable, require, verify-ca, verify-full
	SSLMode     string
	SSLCert     string
	SSLKey      string
	SSLRootCert string
}

// Postgres represents a connection to a PostgreSQL database.
type Postgres struct {
	Db *sql.DB
}

// PostgresConfigFromDbConfig converts a DatabaseConfig to a PostgresConfig.
func PostgresConfigFromDbConfig(dbCfg *config.DatabaseConfig) *PostgresConfig {
	return &PostgresConfig{
		Host:                dbCfg.Host,
		Port:                dbCfg.Port,
		Username:            dbCfg.User,
		Password:            dbCfg.Password,
		DbName:              dbCfg.DbName,
		CreateDbIfNotExists: dbCfg.CreateDb,
		SchemaName:          dbCfg.SchemaName,
		SSLMode:             dbCfg.SSLMode,
		SSLCert:             dbCfg.SSLCert,
		SSLKey:              dbCfg.SSLKey,
		SSLRootCert:         dbCfg.SSLRootCert,
	}
}

// OpenAndMigrate connects to the configured database, creating it when asked
// to, and applies every pending migration.
//
// Parameters:
//   - ctx: Context bounding the connectivity check
//   - cfg: Database configuration
//   - l: Logger
//
// Returns:
//   - *sql.DB: SQL database connection
//   - *gorm.DB: GORM database connection
//   - error: Any error encountered
func OpenAndMigrate(ctx context.Context, cfg *config.DatabaseConfig, l *zap.Logger) (*sql.DB, *gorm.DB, error) {
	pg, err := NewPostgres(PostgresConfigFromDbConfig(cfg), l)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.Db.PingContext(ctx); err != nil {
		_ = pg.Db.Close()
		return nil, nil, fmt.Errorf("failed to reach postgres at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	grm, err := NewGormFromPostgresConnection(pg.Db)
	if err != nil {
		_ = pg.Db.Close()
		return nil, nil, err
	}

	if err := migrations.NewMigrator(pg.Db, grm, l).MigrateAll(); err != nil {
		_ = pg.Db.Close()
		return nil, nil, err
	}
	return pg.Db, grm, nil
}

// GetTestPostgresDatabase creates a uniquely named, migrated test database.
//
// Returns:
//   - string: Test database name
//   - *sql.DB: SQL database connection
//   - *gorm.DB: GORM database connection
//   - error: Any error encountered
func GetTestPostgresDatabase(cfg config.DatabaseConfig, l *zap.Logger) (
	string,
	*sql.DB,
	*gorm.DB,
	error,
) {
	testDbName, err := tests.GenerateTestDbName()
	if err != nil {
		return testDbName, nil, nil, err
	}
	cfg.DbName = testDbName
	cfg.CreateDb = true

	pg, grm, err := OpenAndMigrate(context.Background(), &cfg, l)
	if err != nil {
		return testDbName, nil, nil, err
	}
	return testDbName, pg, grm, nil
}

// getPostgresRootConnection connects to the server's 'postgres' database for
// administrative operations.
func getPostgresRootConnection(cfg *PostgresConfig) (*sql.DB, error) {
	postgresConnStr, err := getPostgresConnectionString(&PostgresConfig{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DbName:      "postgres",
		SSLMode:     cfg.SSLMode,
		SSLCert:     cfg.SSLCert,
		SSLKey:      cfg.SSLKey,
		SSLRootCert: cfg.SSLRootCert,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection string: %v", err)
	}

	postgresDB, err := sql.Open("postgres", postgresConnStr)
	if err != nil {
		return nil, fmt.Errorf("error connecting to postgres database: %v", err)
	}
	return postgresDB, nil
}

func getPostgresConnectionString(cfg *PostgresConfig) (string, error) {
	authString := ""
	sslMode := defaultSSLMode

	if cfg.Username != "" {
		authString = fmt.Sprintf("%s user=%s", authString, cfg.Username)
	}
	if cfg.Password != "" {
		authString = fmt.Sprintf("%s password=%s", authString, cfg.Password)
	}

	if cfg.SSLMode != "" {
		if !slices.Contains(validSSLModes, cfg.SSLMode) {
			return "", fmt.Errorf("invalid ssl mode: %s. Must be one of: %s", cfg.SSLMode, strings.Join(validSSLModes, ", "))
		}
		sslMode = cfg.SSLMode
	}

	baseString := fmt.Sprintf("host=%s %s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		cfg.Host,
		authString,
		cfg.DbName,
		cfg.Port,
		sslMode,
	)

	if cfg.SchemaName != "" {
		baseString = fmt.Sprintf("%s search_path=%s", baseString, cfg.SchemaName)
	}

	if sslMode != defaultSSLMode {
		if cfg.SSLCert != "" {
			baseString = fmt.Sprintf("%s sslcert=%s", baseString, cfg.SSLCert)
		}
		if cfg.SSLKey != "" {
			baseString = fmt.Sprintf("%s sslkey=%s", baseString, cfg.SSLKey)
		}
		if cfg.SSLRootCert != "" {
			baseString = fmt.Sprintf("%s sslrootcert=%s", baseString, cfg.SSLRootCert)
		}
	}
	return baseString, nil
}

// DeleteTestDatabase drops a test database.
func DeleteTestDatabase(cfg *PostgresConfig, dbName string) error {
	if !validDbName.MatchString(dbName) {
		return fmt.Errorf("invalid database name '%s'", dbName)
	}
	postgresDB, err := getPostgresRootConnection(cfg)
	if err != nil {
		return err
	}
	defer postgresDB.Close()

	if _, err = postgresDB.Exec(fmt.Sprintf("DROP DATABASE %s", dbName)); err != nil {
		return fmt.Errorf("error dropping database: %v", err)
	}
	return nil
}

// CreateDatabaseIfNotExists creates cfg.DbName unless it already exists.
func CreateDatabaseIfNotExists(cfg *PostgresConfig, l *zap.Logger) error {
	if !validDbName.MatchString(cfg.DbName) {
		return fmt.Errorf("invalid database name '%s'", cfg.DbName)
	}
	postgresDB, err := getPostgresRootConnection(cfg)
	if err != nil {
		return err
	}
	defer postgresDB.Close()

	var exists bool
	err = postgresDB.QueryRow(`SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)`, cfg.DbName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("error checking if database exists: %v", err)
	}

	if !exists {
		if _, err = postgresDB.Exec(fmt.Sprintf("CREATE DATABASE %s", cfg.DbName)); err != nil {
			// another process created it between the check and the create
			if IsDuplicateKeyError(err) {
				return nil
			}
			return fmt.Errorf("error creating database: %v", err)
		}
		l.Sugar().Infow("Created database", zap.String("dbName", cfg.DbName))
	}
	return nil
}

// NewPostgres opens a connection pool for cfg. No query is sent yet.
func NewPostgres(cfg *PostgresConfig, l *zap.Logger) (*Postgres, error) {
	if cfg.CreateDbIfNotExists {
		if err := CreateDatabaseIfNotExists(cfg, l); err != nil {
			return nil, fmt.Errorf("Failed to create database if not exists %+v", err)
		}
	}
	connectString, err := getPostgresConnectionString(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", connectString)
	if err != nil {
		return nil, fmt.Errorf("Failed to setup database %+v", err)
	}

	return &Postgres{
		Db: db,
	}, nil
}

// NewGormFromPostgresConnection wraps an existing connection in gorm.
func NewGormFromPostgresConnection(pgDb *sql.DB) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn: pgDb,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("Failed to setup database %+v", err)
	}

	return db, nil
}

// TeardownTestDatabase closes the connection and drops the test database.
func TeardownTestDatabase(dbname string, cfg *config.DatabaseConfig, db *gorm.DB, l *zap.Logger) {
	rawDb, _ := db.DB()
	_ = rawDb.Close()

	if err := DeleteTestDatabase(PostgresConfigFromDbConfig(cfg), dbname); err != nil {
		l.Sugar().Errorw("Failed to delete test database", "error", err)
	}
}

// IsDuplicateKeyError checks if an error is a PostgreSQL duplicate key violation error.
func IsDuplicateKeyError(err error) bool {
	r := regexp.MustCompile(`duplicate key value violates unique constraint`)

	return r.MatchString(err.Error())
}

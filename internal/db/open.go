package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultMaxOpenConns    = 20
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
)

// Open connects to the database named by dsn. DSNs starting with "file:" or
// ending in ".db"/".sqlite" use SQLite; everything else is parsed as a
// PostgreSQL connection string.
func Open(dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("db: empty dsn")
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	if isSQLiteDSN(dsn) {
		conn, errOpen := gorm.Open(sqlite.Open(dsn), gormCfg)
		if errOpen != nil {
			return nil, fmt.Errorf("db: open sqlite: %w", errOpen)
		}
		sqlDB, errDB := conn.DB()
		if errDB != nil {
			return nil, fmt.Errorf("db: sqlite handle: %w", errDB)
		}
		sqlDB.SetMaxOpenConns(1)
		if errPragma := conn.Exec("PRAGMA foreign_keys = ON").Error; errPragma != nil {
			log.WithError(errPragma).Warn("db: enable sqlite foreign keys failed")
		}
		return conn, nil
	}

	pgCfg, errParse := pgx.ParseConfig(dsn)
	if errParse != nil {
		return nil, fmt.Errorf("db: parse postgres dsn: %w", errParse)
	}
	sqlDB := stdlib.OpenDB(*pgCfg)
	sqlDB.SetMaxOpenConns(defaultMaxOpenConns)
	sqlDB.SetMaxIdleConns(defaultMaxIdleConns)
	sqlDB.SetConnMaxLifetime(defaultConnMaxLifetime)

	conn, errOpen := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormCfg)
	if errOpen != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db: open postgres: %w", errOpen)
	}
	return conn, nil
}

// Close releases the underlying connection pool.
func Close(conn *gorm.DB) error {
	if conn == nil {
		return nil
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		return errDB
	}
	return sqlDB.Close()
}

func isSQLiteDSN(dsn string) bool {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "file:") || strings.HasPrefix(lower, "sqlite:") {
		return true
	}
	base := lower
	if idx := strings.Index(base, "?"); idx >= 0 {
		base = base[:idx]
	}
	return strings.HasSuffix(base, ".db") || strings.HasSuffix(base, ".sqlite") || strings.HasSuffix(base, ".sqlite3")
}

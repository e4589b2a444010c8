package db

import (
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/iKamranShahzad/osm-boundaries-importer/internal/logger"
)

var DB *gorm.DB

// Connect opens the session named by DATABASE_URL and stores it in DB.
// Fatal on any failure; nothing works without a database.
func Connect() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.L().Fatal().Msg("DATABASE_URL is empty")
	}

	gdb, err := Open(dsn)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to connect to database")
	}

	DB = gdb
	logger.L().Info().Msg("connected to database")
}

// Open dials dsn with the matching driver: postgres URLs and key/value DSNs
// go through pgx, anything else is treated as a sqlite file path.
func Open(dsn string) (*gorm.DB, error) {
	// Warn-level gorm logger: imports write thousands of rows, Info would
	// echo every one of them.
	lg := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	if isPostgres(dsn) {
		gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: lg})
		if err != nil {
			return nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(20)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		return gdb, nil
	}

	gdb, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{Logger: lg})
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	// modernc's driver reports SQLITE_BUSY rather than queueing a second
	// writer connection.
	sqlDB.SetMaxOpenConns(1)
	return gdb, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ysicing/pulseguard/internal/config"
	"github.com/ysicing/pulseguard/internal/models"
)

// Database represents the database connection
type Database struct {
	DB *gorm.DB
}

// NewDatabase creates a new database connection supporting PostgreSQL, MySQL, and SQLite
func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	// Configure GORM logger to show SQL queries
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Info, // Log level: Silent, Error, Warn, Info
			IgnoreRecordNotFoundError: false,       // Don't ignore ErrRecordNotFound error
			Colorful:                  true,        // Enable color
		},
	)

	gormConfig := &gorm.Config{
		Logger: newLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var db *gorm.DB
	var err error

	// Detect database type and create appropriate connection
	// Default to SQLite for ease of use
	dbType := cfg.Type
	if dbType == "" {
		dbType = "sqlite"
	}

	switch dbType {
	case "postgres", "postgresql":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host,
			cfg.Port,
			cfg.User,
			cfg.Password,
			cfg.Name,
			cfg.SSLMode,
		)
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)

	case "mysql":
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.Name,
		)
		db, err = gorm.Open(mysql.Open(dsn), gormConfig)

	case "sqlite":
		// For SQLite, use Name as the database file path
		dsn := cfg.Name
		if dsn == "" {
			dsn = "pulseguard.db"
		}
		logrus.Infof("SQLite database path: %s", dsn)
		db, err = gorm.Open(sqlite.Open(dsn), gormConfig)

	default:
		return nil, fmt.Errorf("unsupported database type: %s (supported: postgres, mysql, sqlite)", dbType)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", dbType, err)
	}

	// Get underlying SQL DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Set connection pool settings (not applicable for SQLite)
	if dbType != "sqlite" {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Enable foreign key enforcement for SQLite
	if dbType == "sqlite" {
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("failed to enable sqlite foreign keys: %w", err)
		}
	}

	logrus.Infof("Database connection established successfully (type: %s)", dbType)

	return &Database{DB: db}, nil
}

// AutoMigrate runs database migrations for every model this core persists
// (§3, §6 "Persisted state layout").
func (d *Database) AutoMigrate() error {
	logrus.Info("Running database migrations...")

	err := d.DB.AutoMigrate(
		&models.Monitor{},
		&models.Check{},
		&models.Incident{},
		&models.Availability{},
		&models.AlertRule{},
		&models.ScheduledTask{},
		&models.TaskExecution{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := d.ensureSingleOngoingIncidentIndex(); err != nil {
		logrus.Warnf("Failed to create partial unique index for ongoing incidents: %v", err)
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}

// ensureSingleOngoingIncidentIndex enforces invariant 1 (§8) at the write
// layer: at most one row with status='ongoing' per monitor_id. Postgres and
// SQLite support a partial unique index directly; MySQL has no WHERE-clause
// index support, so the same invariant there is enforced transactionally by
// internal/repository's incident repository (SELECT ... FOR UPDATE re-check
// before insert), per the Open Question decision in DESIGN.md.
func (d *Database) ensureSingleOngoingIncidentIndex() error {
	switch d.DB.Dialector.Name() {
	case "postgres":
		return d.DB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_incidents_one_ongoing
			ON incidents (monitor_id) WHERE status = 'ongoing'`).Error
	case "sqlite":
		return d.DB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_incidents_one_ongoing
			ON incidents (monitor_id) WHERE status = 'ongoing'`).Error
	default:
		return nil
	}
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package repository

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/carelink/carewallet/internal/models"
	"github.com/carelink/carewallet/pkg/logger"
)

// DB implements models.Repository on top of gorm.
type DB struct {
	logger *logger.Logger

	Conn *gorm.DB
}

var _ models.Repository = (*DB)(nil)

// GormConfig is the gorm configuration shared by every dialect. Timestamps are UTC.
func GormConfig() *gorm.Config {
	// Suppress "record not found" messages, lookups that miss are expected.
	gormLogger := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	return &gorm.Config{
		Logger:  gormLogger,
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func NewPostgresDB(user, password, dbname, host string, port int, logger *logger.Logger) (*DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		host, user, password, dbname, port)

	conn, err := gorm.Open(postgres.Open(dsn), GormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	db, err := New(conn, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Successfully connected to PostgreSQL!")
	return db, nil
}

// New migrates the schema on conn and wraps it.
func New(conn *gorm.DB, logger *logger.Logger) (*DB, error) {
	if err := conn.AutoMigrate(
		&models.EarningEntry{},
		&models.ProviderWallet{},
		&models.WithdrawalRequest{},
		&models.SubscriptionPlan{},
		&models.Subscription{},
		&models.Payment{},
		&models.AdminCommissionEntry{},
		&models.AppLock{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	return &DB{Conn: conn, logger: logger.Named("repository")}, nil
}

func (db *DB) Close() error {
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return sqlDB.Close()
}

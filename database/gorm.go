package database

import (
	"fmt"
	"time"

	"github.com/sahilchouksey/course-marketplace/config"
	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type GORMStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// StartGORM opens the database selected by DB_DRIVER (postgres or sqlite)
func StartGORM(env *config.EnvironmentVariable, log *logger.Logger) (*GORMStore, error) {
	gormLogger := gormlogger.Default.LogMode(gormlogger.Warn)
	if env.GO_ENV == "production" {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Error)
	}

	var dialector gorm.Dialector
	switch env.DB_DRIVER {
	case "sqlite":
		dialector = sqlite.Open(env.DB_NAME)
	case "postgres", "":
		dialector = postgres.Open(env.PostgresDSN())
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", env.DB_DRIVER)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		log.Error("Unable to connect to database", "driver", env.DB_DRIVER, "error", err)
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("Connected to database", "driver", env.DB_DRIVER)

	return &GORMStore{db: db, log: log}, nil
}

// OpenSQLite opens a sqlite database (":memory:" style DSNs included) and migrates it
func OpenSQLite(dsn string, log *logger.Logger) (*GORMStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer; one connection keeps in-memory databases shared
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	store := &GORMStore{db: db, log: log}
	if err := store.Init(); err != nil {
		return nil, err
	}
	return store, nil
}

// Models lists every table in migration order
func Models() []interface{} {
	return []interface{}{
		// Accounts
		&model.User{},
		&model.SignupOTP{},
		&model.PasswordResetToken{},
		&model.JWTTokenBlacklist{},

		// Catalog
		&model.Category{},
		&model.Course{},
		&model.Chapter{},
		&model.Video{},
		&model.Exercise{},

		// Commerce
		&model.CartItem{},
		&model.WishlistItem{},
		&model.Enrollment{},
		&model.Progress{},
		&model.ProgressItem{},
		&model.ProcessedPaymentEvent{},

		// Community
		&model.ChatMessage{},
		&model.Review{},
		&model.Banner{},

		// Reporting & audit
		&model.Report{},
		&model.CronJobLog{},
		&model.AdminAuditLog{},
	}
}

// Init runs AutoMigrate for all models
func (s *GORMStore) Init() error {
	s.log.Info("Running GORM AutoMigrate")

	if err := s.db.AutoMigrate(Models()...); err != nil {
		s.log.Error("AutoMigrate failed", "error", err)
		return err
	}

	s.log.Info("GORM AutoMigrate completed")
	return nil
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB returns the GORM handle for services
func (s *GORMStore) DB() *gorm.DB {
	return s.db
}

// HealthCheck verifies the database connection is alive
func (s *GORMStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

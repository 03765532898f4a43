package models

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/Daskott/kavach/server/logger"
	"github.com/Daskott/kavach/shared"
	"github.com/Daskott/kavach/utils"
	sqliteEncrypt "github.com/Daskott/gorm-sqlite-cipher"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const DB_NAME = "kavach.db"

var logg = logger.NewLogger()
var db *gorm.DB

// AutoMigrate opens the configured database, migrates the schema and
// inserts seed data.
func AutoMigrate(config shared.DatabaseConfig, dbRootDir string) error {
	err := openDB(config, dbRootDir)
	if err != nil {
		return err
	}

	err = db.AutoMigrate(
		&JobStatus{}, &Job{},
		&Profile{}, &QRCode{}, &ActivationCounter{},
		&EmergencyProfile{}, &MedicalInfo{}, &EmergencyNote{}, &EmergencyContact{},
		&Payment{}, &ScanLog{},
		&FleetVehicle{}, &FleetDriver{},
		&Admin{}, &MobileVerification{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %v", err)
	}

	return populateDBWithSeedData()
}

// Ping reports whether the database is reachable.
func Ping(ctx context.Context) error {
	if db == nil {
		return errors.New("database is not initialized")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close() error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//
func openDB(config shared.DatabaseConfig, dbRootDir string) error {
	var err error
	var dialector gorm.Dialector

	switch config.Driver {
	case shared.POSTGRES_DRIVER:
		if config.DSN == "" {
			return errors.New("database.dsn is required for postgres")
		}
		dialector = postgres.Open(config.DSN)
	case shared.SQLITE_DRIVER:
		if config.PassPhrase == "" {
			return errors.New("database.passPhrase is required for sqlite")
		}

		var dsn string
		dsn, err = sqliteDSN(config.PassPhrase, dbRootDir)
		if err != nil {
			return fmt.Errorf("failed to set sqlite DSN: %v", err)
		}
		dialector = sqliteEncrypt.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver %q", config.Driver)
	}

	db, err = gorm.Open(dialector, gormConfig())
	if err != nil {
		return fmt.Errorf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	if config.Driver == shared.SQLITE_DRIVER {
		// sqlite allows one writer, serialize on a single connection
		sqlDB.SetMaxOpenConns(1)
		return nil
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				LogLevel:                  gormLogger.Silent,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func populateDBWithSeedData() error {
	if err := db.First(&JobStatus{}).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		logg.Info("Inserting seed data into 'JobStatus'")
		err = db.Create(&[]JobStatus{{Name: ENQUEUED_JOB}, {Name: IN_PROGRESS_JOB}, {Name: SUCCESSFUL_JOB}, {Name: DEAD_JOB}}).Error
		if err != nil {
			return err
		}
	}

	if err := db.First(&ActivationCounter{}, ACTIVATION_COUNTER_ID).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		logg.Info("Inserting seed data into 'ActivationCounter'")
		err = db.Create(&ActivationCounter{ID: ACTIVATION_COUNTER_ID}).Error
		if err != nil {
			return err
		}
	}

	return nil
}

func sqliteDSN(passPhrase string, dbRootDir string) (string, error) {
	dbDir, err := DbDirectory(dbRootDir)
	if err != nil {
		return "", err
	}

	dbFilePath := filepath.Join(dbDir, DB_NAME)
	if !utils.FileExist(dbFilePath) {
		logg.Infof("Creating new sqlite database at %v", dbFilePath)
	}
	dbName := fmt.Sprintf("file:%v", dbFilePath)

	return fmt.Sprintf(
		"%v?_pragma_key=%s&_pragma_cipher_page_size=4096&_journal_mode=WAL&_busy_timeout=5000",
		dbName,
		passPhrase,
	), nil
}

func DbDirectory(dbRootDir string) (string, error) {
	dbDir := filepath.Join(dbRootDir, "db")

	err := utils.CreateDirIfNotExist(dbDir)
	if err != nil {
		return "", err
	}

	return dbDir, nil
}

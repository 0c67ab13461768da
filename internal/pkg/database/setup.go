package database

import (
	"fmt"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/iiskills-cloud/appaccess/app/models"
	"github.com/iiskills-cloud/appaccess/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// Open connects to MySQL, retrying while the server comes up. In dev the
// access table is auto-migrated; production relies on cmd/migrate.
func Open(cfg env.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		// Duplicate-key errors surface as gorm.ErrDuplicatedKey.
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       cfg.MySQLDSN(),
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), gormCfg)
		if err == nil {
			break
		}

		fiberlog.Warnf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if cfg.IsDev() {
		if err := AutoMigrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// AutoMigrate creates or updates the access table. The payments table is
// owned elsewhere and is never migrated here.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.UserAppAccess{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

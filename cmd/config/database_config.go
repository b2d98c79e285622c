package config

import (
	"fmt"
	"time"

	"foodgram/internal/utils"
	"foodgram/internal/utils/logger"

	"github.com/avast/retry-go"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		utils.GetConfig("DB_HOST"),
		utils.GetConfig("DB_USER"),
		utils.GetConfig("DB_PASSWORD"),
		utils.GetConfig("DB_NAME"),
		utils.GetConfig("DB_PORT"),
	)
}

// ConnectDB opens Postgres, retrying while the server is still starting up.
// Unique violations come back as gorm.ErrDuplicatedKey.
func ConnectDB() (*gorm.DB, error) {
	var db *gorm.DB
	err := retry.Do(
		func() error {
			var err error
			db, err = gorm.Open(postgres.Open(DSN()), &gorm.Config{
				TranslateError: true,
				Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
			})
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Ping()
		},
		retry.Attempts(5),
		retry.Delay(2*time.Second),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("database not ready, retrying", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return db, nil
}

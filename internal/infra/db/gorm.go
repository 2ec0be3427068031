package db

import (
	"fmt"

	"moviestore/internal/config"
	"moviestore/internal/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(cfg config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		// unique違反を gorm.ErrDuplicatedKey に変換
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}

	// DATABASE_URL があれば最優先で使う
	if cfg.DatabaseURL != "" {
		return gorm.Open(postgres.Open(cfg.DatabaseURL), gcfg)
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresSSLMode,
	)

	return gorm.Open(postgres.Open(dsn), gcfg)
}

// Migrate は認証ユーザーと購入台帳のテーブルを作る。
// firestore台帳のときもusersは必要。
func Migrate(gormDB *gorm.DB, withLedger bool) error {
	tables := []any{&model.User{}}
	if withLedger {
		tables = append(tables, &model.Account{}, &model.Purchase{})
	}
	return gormDB.AutoMigrate(tables...)
}

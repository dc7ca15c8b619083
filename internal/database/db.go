package database

import (
	"fmt"
	"time"

	"restoran-pos/internal/config"
	"restoran-pos/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the configured database. All timestamps are stored in UTC
// so that shift windows compare correctly across drivers.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "mysql":
		dialector = mysql.Open(cfg.DatabaseDSN)
	default:
		dialector = postgres.Open(cfg.DatabaseDSN)
	}

	db, err := gorm.Open(dialector, GormConfig())
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

func GormConfig() *gorm.Config {
	return &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  gormlogger.Default.LogMode(gormlogger.Warn),
	}
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.MenuItem{},
		&models.BusinessSettings{},
		&models.Table{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderItemModifier{},
		&models.Payment{},
		&models.Receipt{},
		&models.Shift{},
		&models.AuditLog{},
		&models.Sequence{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}

	return nil
}

// SeedSettings inserts the business settings row from config when the table
// is empty. Existing settings are left alone.
func SeedSettings(db *gorm.DB, cfg *config.Config) error {
	var count int64
	if err := db.Model(&models.BusinessSettings{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.Create(&models.BusinessSettings{
		Name:           cfg.BusinessName,
		Currency:       cfg.Currency,
		TaxRatePercent: cfg.TaxRatePercent,
		ReceiptFooter:  cfg.ReceiptFooter,
	}).Error
}

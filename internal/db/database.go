package db

import (
	"errors"
	"log"

	"bridge-backend/internal/config"
	"bridge-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB() {
	var err error

	if config.AppConfig == nil || config.AppConfig.Database.DSN == "" {
		log.Fatalf("Database DSN is required")
	}

	DB, err = gorm.Open(postgres.Open(config.AppConfig.Database.DSN), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		PrepareStmt:                              true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	log.Println("✅ Database connected successfully")

	if err := DB.AutoMigrate(
		&models.BridgeConfig{},
		&models.MintedTransaction{},
		&models.FinalizedTransaction{},
	); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	log.Println("✅ Database schema migrated successfully")
}

// SeedBridgeConfig writes the bridge identifiers from the config file into the
// persistent store. Missing values are a fatal precondition: every later
// operation reads these keys from the store and treats absence as an error.
// Existing rows are left alone so a redeploy never clobbers the cursor or a
// value an operator changed through the admin API.
func SeedBridgeConfig(db *gorm.DB) {
	cfg := config.AppConfig
	seeds := map[string]string{
		models.LedgerIDKey:     cfg.Bridge.LedgerID,
		models.LocalMgmtIDKey:  cfg.Bridge.LocalMgmtID,
		models.SuiPackageIDKey: cfg.Bridge.SuiPackageID,
		models.SuiModuleIDKey:  cfg.Bridge.SuiModuleID,
		models.APIURLKey:       cfg.Builder.APIURL,
		models.TxDigestURLKey:  cfg.Builder.TxDigestURL,
		models.MinterTokenKey:  cfg.Bridge.MinterAccount,
	}

	isLocal := "false"
	if cfg.Bridge.IsLocal {
		isLocal = "true"
	}
	seeds[models.IsLocalKey] = isLocal

	for key, value := range seeds {
		if value == "" {
			log.Fatalf("Missing required bridge configuration for key %q", key)
		}
		var row models.BridgeConfig
		if err := db.Where("config_key = ?", key).First(&row).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			row = models.BridgeConfig{ConfigKey: key, ConfigValue: value}
			if err := db.Create(&row).Error; err != nil {
				log.Fatalf("Failed to seed bridge config %q: %v", key, err)
			}
		} else if err != nil {
			log.Fatalf("Failed to read bridge config %q: %v", key, err)
		}
	}

	log.Println("✅ Bridge configuration seeded")
}

package dao

import (
	"gorm.io/gorm"

	accountmodel "token-pay-api/internal/model/account"
	ledgermodel "token-pay-api/internal/model/ledger"
)

// MigrateLedger 支付库建表
func MigrateLedger(db *gorm.DB) error {
	return db.AutoMigrate(&ledgermodel.Transaction{})
}

// MigrateBalance 用户库建表
func MigrateBalance(db *gorm.DB) error {
	return db.AutoMigrate(&accountmodel.UserBalance{}, &accountmodel.CreditLog{})
}

package _202610190900_contractActivity

import (
	"database/sql"

	"github.com/Layr-Labs/contract-activity/pkg/storage"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB) error {
	if err := grm.AutoMigrate(&storage.ContractTransaction{}, &storage.ContractLog{}); err != nil {
		return err
	}
	queries := []string{
		`CREATE INDEX IF NOT EXISTS idx_contract_transactions_contract_block ON contract_transactions (contract, block_number)`,
		`CREATE INDEX IF NOT EXISTS idx_contract_logs_contract_block ON contract_logs (contract, block_number)`,
	}
	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202610190900_contractActivity"
}

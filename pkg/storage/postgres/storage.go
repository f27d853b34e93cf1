package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/Layr-Labs/contract-activity/pkg/postgres/helpers"
	"github.com/Layr-Labs/contract-activity/pkg/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultBatchSize = 500

type PostgresActivityStore struct {
	Db        *gorm.DB
	Logger    *zap.Logger
	BatchSize int
}

func NewPostgresActivityStore(db *gorm.DB, l *zap.Logger) *PostgresActivityStore {
	return &PostgresActivityStore{
		Db:        db,
		Logger:    l,
		BatchSize: defaultBatchSize,
	}
}

func (s *PostgresActivityStore) Name() string {
	return "postgres"
}

// InsertTransactions stores txs in one database transaction, skipping hashes
// that are already stored. It returns the number of rows inserted.
func (s *PostgresActivityStore) InsertTransactions(ctx context.Context, txs []*storage.ContractTransaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}
	for _, tx := range txs {
		tx.Input = sanitizeNullBytes(tx.Input)
		tx.FunctionParameters = sanitizeJsonNullBytes(tx.FunctionParameters)
	}

	inserted, err := helpers.WrapTxAndCommit(func(tx *gorm.DB) (int64, error) {
		res := tx.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "hash"}},
				DoNothing: true,
			}).
			CreateInBatches(txs, s.BatchSize)
		return res.RowsAffected, res.Error
	}, s.Db, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %d contract transactions: %w", len(txs), err)
	}
	s.Logger.Sugar().Debugw("Inserted contract transactions",
		zap.Int("rows", len(txs)),
		zap.Int64("inserted", inserted),
	)
	return int(inserted), nil
}

// InsertLogs stores logs in one database transaction, skipping
// (block_number, transaction_hash, log_index) keys that are already stored.
func (s *PostgresActivityStore) InsertLogs(ctx context.Context, logs []*storage.ContractLog) (int, error) {
	if len(logs) == 0 {
		return 0, nil
	}
	for _, l := range logs {
		l.Data = sanitizeNullBytes(l.Data)
		l.DecodedData = sanitizeJsonNullBytes(l.DecodedData)
	}

	inserted, err := helpers.WrapTxAndCommit(func(tx *gorm.DB) (int64, error) {
		res := tx.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "block_number"},
					{Name: "transaction_hash"},
					{Name: "log_index"},
				},
				DoNothing: true,
			}).
			CreateInBatches(logs, s.BatchSize)
		return res.RowsAffected, res.Error
	}, s.Db, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %d contract logs: %w", len(logs), err)
	}
	s.Logger.Sugar().Debugw("Inserted contract logs",
		zap.Int("rows", len(logs)),
		zap.Int64("inserted", inserted),
	)
	return int(inserted), nil
}

// LatestBlockNumber returns the highest block stored for contract in the
// table of model, and false when nothing is stored yet.
func (s *PostgresActivityStore) LatestBlockNumber(ctx context.Context, model interface{}, contract string) (uint64, bool, error) {
	var latest *int64
	res := s.Db.WithContext(ctx).
		Model(model).
		Select("max(block_number)").
		Where("lower(contract) = ?", strings.ToLower(contract)).
		Scan(&latest)
	if res.Error != nil {
		return 0, false, fmt.Errorf("failed to get latest block of %s: %w", contract, res.Error)
	}
	if latest == nil {
		return 0, false, nil
	}
	return uint64(*latest), true, nil
}

// DeleteContractRange removes the stored rows of contract between
// startBlock and endBlock inclusive, so a range can be extracted again.
// Only the tables of the given models are cleared, both when none is given.
func (s *PostgresActivityStore) DeleteContractRange(ctx context.Context, contract string, startBlock uint64, endBlock uint64, models ...interface{}) error {
	if len(models) == 0 {
		models = []interface{}{&storage.ContractTransaction{}, &storage.ContractLog{}}
	}
	s.Logger.Sugar().Infow("Deleting stored activity",
		zap.String("contract", contract),
		zap.Uint64("startBlock", startBlock),
		zap.Uint64("endBlock", endBlock),
	)
	_, err := helpers.WrapTxAndCommit(func(tx *gorm.DB) (interface{}, error) {
		for _, model := range models {
			res := tx.WithContext(ctx).
				Where("lower(contract) = ? AND block_number >= ? AND block_number <= ?", strings.ToLower(contract), startBlock, endBlock).
				Delete(model)
			if res.Error != nil {
				return nil, res.Error
			}
		}
		return nil, nil
	}, s.Db, nil)
	if err != nil {
		return fmt.Errorf("failed to delete activity of %s: %w", contract, err)
	}
	return nil
}

func sanitizeNullBytes(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

// jsonb rejects the \u0000 escape as well as raw null bytes
func sanitizeJsonNullBytes(s *string) *string {
	if s == nil {
		return nil
	}
	out := strings.ReplaceAll(sanitizeNullBytes(*s), `\u0000`, "")
	return &out
}

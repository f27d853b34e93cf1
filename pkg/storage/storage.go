package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ActivitySink persists extracted rows. Implementations must ignore rows
// whose unique key is already stored.
type ActivitySink interface {
	// Name identifies the sink in logs and metrics
	Name() string
	InsertTransactions(ctx context.Context, txs []*ContractTransaction) (int, error)
	InsertLogs(ctx context.Context, logs []*ContractLog) (int, error)
}

// ContractTransaction is one normalized explorer transaction, unique by Hash.
type ContractTransaction struct {
	Hash               string          `csv:"hash" gorm:"primaryKey;type:varchar"`
	ExtractionId       string          `csv:"extraction_id" gorm:"type:varchar;index"`
	Contract           string          `csv:"contract" gorm:"type:varchar;index"`
	BlockNumber        int64           `csv:"block_number" gorm:"index"`
	BlockHash          string          `csv:"block_hash" gorm:"type:varchar"`
	TimeStamp          *time.Time      `csv:"time_stamp"`
	Nonce              *int64          `csv:"nonce"`
	TransactionIndex   *int64          `csv:"transaction_index"`
	From               string          `csv:"from" gorm:"column:from_address;type:varchar"`
	To                 string          `csv:"to" gorm:"column:to_address;type:varchar"`
	Value              decimal.Decimal `csv:"value" gorm:"type:numeric"`
	Gas                *int64          `csv:"gas"`
	GasPrice           *int64          `csv:"gas_price"`
	GasUsed            *int64          `csv:"gas_used"`
	CumulativeGasUsed  *int64          `csv:"cumulative_gas_used"`
	IsError            *int64          `csv:"is_error"`
	TxReceiptStatus    *int64          `csv:"txreceipt_status"`
	Input              string          `csv:"input" gorm:"type:text"`
	CreatedContract    string          `csv:"contract_address" gorm:"type:varchar"`
	MethodId           string          `csv:"method_id" gorm:"type:varchar"`
	FunctionName       *string         `csv:"function_name" gorm:"type:varchar"`
	FunctionParameters *string         `csv:"function_parameters" gorm:"type:jsonb"`
}

// ContractLog is one normalized explorer event log, unique by
// (BlockNumber, TransactionHash, LogIndex).
type ContractLog struct {
	BlockNumber      int64      `csv:"block_number" gorm:"primaryKey;autoIncrement:false"`
	TransactionHash  string     `csv:"transaction_hash" gorm:"primaryKey;type:varchar"`
	LogIndex         int64      `csv:"log_index" gorm:"primaryKey;autoIncrement:false"`
	ExtractionId     string     `csv:"extraction_id" gorm:"type:varchar;index"`
	Contract         string     `csv:"contract" gorm:"type:varchar;index"`
	Address          string     `csv:"address" gorm:"type:varchar"`
	Topics           string     `csv:"topics" gorm:"type:jsonb"`
	Data             string     `csv:"data" gorm:"type:text"`
	BlockHash        string     `csv:"block_hash" gorm:"type:varchar"`
	TimeStamp        *time.Time `csv:"time_stamp"`
	GasPrice         *int64     `csv:"gas_price"`
	GasUsed          *int64     `csv:"gas_used"`
	TransactionIndex *int64     `csv:"transaction_index"`
	// DecodedData is a JSON array with one entry per topic position
	DecodedData *string `csv:"decoded_data" gorm:"type:jsonb"`
}

func (ContractTransaction) TableName() string {
	return "contract_transactions"
}

func (ContractLog) TableName() string {
	return "contract_logs"
}

// Key is the uniqueness key of a transaction row.
func (t *ContractTransaction) Key() string {
	return t.Hash
}

// Key is the uniqueness key of a log row.
func (l *ContractLog) Key() string {
	return logKey(l.BlockNumber, l.TransactionHash, l.LogIndex)
}

// Package csvSink writes extracted rows to one CSV file per contract and
// kind, appending to files left by earlier runs.
package csvSink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Layr-Labs/contract-activity/pkg/storage"
	"github.com/gocarina/gocsv"
	"go.uber.org/zap"
)

const (
	transactionsSuffix = "transactions"
	logsSuffix         = "logs"
)

type CsvSink struct {
	Dir    string
	logger *zap.Logger
}

// NewCsvSink creates dir when missing.
//
// Parameters:
//   - dir: Directory receiving the CSV files
//   - l: Logger
//
// Returns:
//   - *CsvSink: The sink
//   - error: Any error creating the directory
func NewCsvSink(dir string, l *zap.Logger) (*CsvSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create csv directory '%s': %w", dir, err)
	}
	return &CsvSink{Dir: dir, logger: l}, nil
}

func (s *CsvSink) Name() string {
	return "csv"
}

// FilePath returns the file holding the rows of kind for contract.
func (s *CsvSink) FilePath(contract string, kind string) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%s.csv", strings.ToLower(contract), kind))
}

// InsertTransactions appends the transactions whose hash is not in the file yet.
func (s *CsvSink) InsertTransactions(ctx context.Context, txs []*storage.ContractTransaction) (int, error) {
	written := 0
	for contract, rows := range groupByContract(txs, func(t *storage.ContractTransaction) string { return t.Contract }) {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		path := s.FilePath(contract, transactionsSuffix)
		existing, err := existingKeys(path, func(row map[string]string) string { return row["hash"] })
		if err != nil {
			return written, err
		}
		fresh := make([]*storage.ContractTransaction, 0, len(rows))
		for _, tx := range rows {
			if !existing[tx.Key()] {
				existing[tx.Key()] = true
				fresh = append(fresh, tx)
			}
		}
		if len(fresh) == 0 {
			continue
		}
		if err := appendRows(path, &fresh); err != nil {
			return written, err
		}
		s.logger.Sugar().Debugw("Wrote transactions to csv",
			zap.String("path", path),
			zap.Int("rows", len(fresh)),
			zap.Int("skipped", len(rows)-len(fresh)),
		)
		written += len(fresh)
	}
	return written, nil
}

// InsertLogs appends the logs whose (block, transaction, log index) is not
// in the file yet.
func (s *CsvSink) InsertLogs(ctx context.Context, logs []*storage.ContractLog) (int, error) {
	written := 0
	for contract, rows := range groupByContract(logs, func(l *storage.ContractLog) string { return l.Contract }) {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		path := s.FilePath(contract, logsSuffix)
		existing, err := existingKeys(path, logRowKey)
		if err != nil {
			return written, err
		}
		fresh := make([]*storage.ContractLog, 0, len(rows))
		for _, l := range rows {
			if !existing[l.Key()] {
				existing[l.Key()] = true
				fresh = append(fresh, l)
			}
		}
		if len(fresh) == 0 {
			continue
		}
		if err := appendRows(path, &fresh); err != nil {
			return written, err
		}
		s.logger.Sugar().Debugw("Wrote logs to csv",
			zap.String("path", path),
			zap.Int("rows", len(fresh)),
			zap.Int("skipped", len(rows)-len(fresh)),
		)
		written += len(fresh)
	}
	return written, nil
}

func logRowKey(row map[string]string) string {
	blockNumber, _ := strconv.ParseInt(row["block_number"], 10, 64)
	logIndex, _ := strconv.ParseInt(row["log_index"], 10, 64)
	l := &storage.ContractLog{BlockNumber: blockNumber, TransactionHash: row["transaction_hash"], LogIndex: logIndex}
	return l.Key()
}

func groupByContract[T any](rows []T, contract func(T) string) map[string][]T {
	out := make(map[string][]T)
	for _, r := range rows {
		c := contract(r)
		out[c] = append(out[c], r)
	}
	return out
}

// existingKeys reads the unique keys already present in path. A missing file
// has none.
func existingKeys(path string, key func(map[string]string) string) (map[string]bool, error) {
	keys := make(map[string]bool)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return keys, nil
		}
		return nil, fmt.Errorf("failed to open '%s': %w", path, err)
	}
	defer f.Close()

	rows, err := gocsv.CSVToMaps(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read '%s': %w", path, err)
	}
	for _, row := range rows {
		keys[key(row)] = true
	}
	return keys, nil
}

// appendRows writes rows to path, with a header only when the file is new.
func appendRows(path string, rows interface{}) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open '%s': %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat '%s': %w", path, err)
	}
	if info.Size() > 0 {
		err = gocsv.MarshalWithoutHeaders(rows, f)
	} else {
		err = gocsv.Marshal(rows, f)
	}
	if err != nil {
		return fmt.Errorf("failed to write '%s': %w", path, err)
	}
	return nil
}

package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Layr-Labs/contract-activity/pkg/parser"
	"github.com/Layr-Labs/contract-activity/pkg/table"
	"github.com/shopspring/decimal"
)

// TransactionsFromTable builds transaction rows from a table normalized with
// table.TransactionSchema. Rows repeating an already seen hash are dropped,
// which removes the boundary duplicates pagination can produce.
func TransactionsFromTable(t *table.Table, contract string, extractionId string) ([]*ContractTransaction, error) {
	txs := make([]*ContractTransaction, 0, t.Len())
	seen := make(map[string]bool, t.Len())

	for i, row := range t.Rows() {
		tx := &ContractTransaction{
			ExtractionId:    extractionId,
			Contract:        contract,
			Hash:            asString(row["hash"]),
			BlockHash:       asString(row["blockHash"]),
			From:            asString(row["from"]),
			To:              asString(row["to"]),
			Input:           asString(row["input"]),
			CreatedContract: asString(row["contractAddress"]),
			MethodId:        asString(row["methodId"]),
		}
		if tx.Hash == "" {
			return nil, fmt.Errorf("transaction row %d has no hash", i)
		}
		if seen[tx.Key()] {
			continue
		}
		seen[tx.Key()] = true

		blockNumber, err := asInt64(row["blockNumber"])
		if err != nil {
			return nil, fmt.Errorf("transaction row %d: %w", i, err)
		}
		if blockNumber != nil {
			tx.BlockNumber = *blockNumber
		}
		if tx.TimeStamp, err = asTime(row["timeStamp"]); err != nil {
			return nil, fmt.Errorf("transaction row %d: %w", i, err)
		}
		if tx.Value, err = asDecimal(row["value"]); err != nil {
			return nil, fmt.Errorf("transaction row %d: %w", i, err)
		}

		ints := map[string]**int64{
			"nonce":             &tx.Nonce,
			"transactionIndex":  &tx.TransactionIndex,
			"gas":               &tx.Gas,
			"gasPrice":          &tx.GasPrice,
			"gasUsed":           &tx.GasUsed,
			"cumulativeGasUsed": &tx.CumulativeGasUsed,
			"isError":           &tx.IsError,
			"txreceipt_status":  &tx.TxReceiptStatus,
		}
		for field, target := range ints {
			v, err := asInt64(row[field])
			if err != nil {
				return nil, fmt.Errorf("transaction row %d field '%s': %w", i, field, err)
			}
			*target = v
		}

		tx.FunctionName = asStringPtr(row[parser.FunctionNameField])
		tx.FunctionParameters = asStringPtr(row[parser.FunctionParametersField])
		txs = append(txs, tx)
	}
	return txs, nil
}

// LogsFromTable builds log rows from a table normalized with table.LogSchema.
// The decoded_data.N columns are folded back into one JSON array per row.
// Rows repeating an already seen (block, transaction, log index) are dropped.
func LogsFromTable(t *table.Table, contract string, extractionId string) ([]*ContractLog, error) {
	logs := make([]*ContractLog, 0, t.Len())
	seen := make(map[string]bool, t.Len())
	positions := decodedDataPositions(t.ColumnNames())

	for i, row := range t.Rows() {
		l := &ContractLog{
			ExtractionId:    extractionId,
			Contract:        contract,
			Address:         asString(row["address"]),
			Topics:          asString(row["topics"]),
			Data:            asString(row["data"]),
			BlockHash:       asString(row["blockHash"]),
			TransactionHash: asString(row["transactionHash"]),
		}

		blockNumber, err := asInt64(row["blockNumber"])
		if err != nil {
			return nil, fmt.Errorf("log row %d: %w", i, err)
		}
		if blockNumber != nil {
			l.BlockNumber = *blockNumber
		}
		// the explorer sends "0x" for a zero log index
		logIndex, err := asInt64(row["logIndex"])
		if err != nil {
			return nil, fmt.Errorf("log row %d: %w", i, err)
		}
		if logIndex != nil {
			l.LogIndex = *logIndex
		}
		if seen[l.Key()] {
			continue
		}
		seen[l.Key()] = true

		if l.TimeStamp, err = asTime(row["timeStamp"]); err != nil {
			return nil, fmt.Errorf("log row %d: %w", i, err)
		}
		if l.GasPrice, err = asInt64(row["gasPrice"]); err != nil {
			return nil, fmt.Errorf("log row %d: %w", i, err)
		}
		if l.GasUsed, err = asInt64(row["gasUsed"]); err != nil {
			return nil, fmt.Errorf("log row %d: %w", i, err)
		}
		if l.TransactionIndex, err = asInt64(row["transactionIndex"]); err != nil {
			return nil, fmt.Errorf("log row %d: %w", i, err)
		}
		if l.DecodedData, err = foldDecodedData(row, positions); err != nil {
			return nil, fmt.Errorf("log row %d: %w", i, err)
		}
		logs = append(logs, l)
	}
	return logs, nil
}

func logKey(blockNumber int64, txHash string, logIndex int64) string {
	return fmt.Sprintf("%d_%s_%d", blockNumber, strings.ToLower(txHash), logIndex)
}

type decodedDataColumn struct {
	name     string
	position int
}

func decodedDataPositions(names []string) []decodedDataColumn {
	prefix := parser.DecodedDataField + "."
	cols := make([]decodedDataColumn, 0)
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		pos, err := strconv.Atoi(strings.TrimPrefix(name, prefix))
		if err != nil {
			continue
		}
		cols = append(cols, decodedDataColumn{name: name, position: pos})
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].position < cols[j].position })
	return cols
}

func foldDecodedData(row map[string]interface{}, positions []decodedDataColumn) (*string, error) {
	if len(positions) == 0 {
		return nil, nil
	}
	entries := make([]json.RawMessage, positions[len(positions)-1].position+1)
	found := false
	for i := range entries {
		entries[i] = json.RawMessage("null")
	}
	for _, col := range positions {
		s, ok := row[col.name].(string)
		if !ok || s == "" {
			continue
		}
		if !json.Valid([]byte(s)) {
			return nil, fmt.Errorf("column '%s' does not hold json", col.name)
		}
		entries[col.position] = json.RawMessage(s)
		found = true
	}
	if !found {
		return nil, nil
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	out := string(b)
	return &out, nil
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	return fmt.Sprint(v)
}

func asStringPtr(v interface{}) *string {
	if v == nil {
		return nil
	}
	s := asString(v)
	return &s
}

func asInt64(v interface{}) (*int64, error) {
	var out int64
	switch t := v.(type) {
	case nil:
		return nil, nil
	case int32:
		out = int64(t)
	case int64:
		out = t
	case int:
		out = int64(t)
	case decimal.Decimal:
		if !t.IsInteger() || t.GreaterThan(decimal.NewFromInt(int64(^uint64(0)>>1))) {
			return nil, fmt.Errorf("value %s does not fit an int64", t.String())
		}
		out = t.IntPart()
	default:
		return nil, fmt.Errorf("unexpected integer value of type %T", v)
	}
	return &out, nil
}

func asDecimal(v interface{}) (decimal.Decimal, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, nil
	case int32:
		return decimal.NewFromInt32(t), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case decimal.Decimal:
		return t, nil
	case string:
		return decimal.NewFromString(t)
	}
	return decimal.Zero, fmt.Errorf("unexpected numeric value of type %T", v)
}

func asTime(v interface{}) (*time.Time, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &t, nil
	}
	return nil, fmt.Errorf("unexpected timestamp value of type %T", v)
}

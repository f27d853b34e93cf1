package transactionParser

import (
	"fmt"

	"github.com/Layr-Labs/contract-activity/pkg/contractAbi"
	"github.com/Layr-Labs/contract-activity/pkg/parser"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const selectorLength = 4

var (
	ErrNoAbi         = errors.New("no abi available")
	ErrInputTooShort = errors.New("input shorter than a function selector")
)

// TransactionParser decodes the call input of explorer transactions with a
// contract ABI.
type TransactionParser struct {
	logger   *zap.Logger
	progress parser.ProgressFactory
}

func NewTransactionParser(l *zap.Logger) *TransactionParser {
	return &TransactionParser{
		logger:   l,
		progress: parser.NoopProgressFactory,
	}
}

func (tp *TransactionParser) SetProgressFactory(f parser.ProgressFactory) {
	if f != nil {
		tp.progress = f
	}
}

// DecodeTransactions decodes every record it can. A record that fails to
// decode is returned undecorated; decoding never fails the batch.
func (tp *TransactionParser) DecodeTransactions(records []parser.RawRecord, c *contractAbi.ContractAbi) []*parser.DecodedTransaction {
	decoded := make([]*parser.DecodedTransaction, 0, len(records))
	bar := tp.progress(len(records), "Decoding transactions")
	defer bar.Finish() //nolint:errcheck

	undecoded := 0
	for _, record := range records {
		var a *abi.ABI
		if !c.IsEmpty() {
			a = c.Abi
		}
		tx, err := tp.DecodeTransaction(record, a)
		if err != nil {
			undecoded++
			tp.logger.Sugar().Debugw("Failed to decode transaction input",
				zap.String("hash", record.String("hash")),
				zap.Error(err),
			)
		}
		decoded = append(decoded, tx)
		_ = bar.Add(1)
	}

	if undecoded > 0 {
		tp.logger.Sugar().Infow("Some transactions could not be decoded",
			zap.Int("undecoded", undecoded),
			zap.Int("total", len(records)),
		)
	}
	return decoded
}

// DecodeTransaction always returns a record; the error reports why it was
// left undecorated.
func (tp *TransactionParser) DecodeTransaction(record parser.RawRecord, a *abi.ABI) (*parser.DecodedTransaction, error) {
	tx := &parser.DecodedTransaction{Raw: record}

	if a == nil {
		return tx, ErrNoAbi
	}

	input, err := hexutil.Decode(record.String("input"))
	if err != nil {
		return tx, errors.Wrap(err, "invalid input hex")
	}
	if len(input) < selectorLength {
		return tx, ErrInputTooShort
	}

	method, err := a.MethodById(input[:selectorLength])
	if err != nil {
		return tx, err
	}

	values, err := method.Inputs.Unpack(input[selectorLength:])
	if err != nil {
		return tx, errors.Wrapf(err, "failed to unpack arguments of '%s'", method.RawName)
	}

	params := parser.NewArguments()
	for i, arg := range method.Inputs {
		name := arg.Name
		if name == "" {
			name = fmt.Sprintf("param%d", i)
		}
		if i < len(values) {
			params.Set(name, values[i])
		}
	}

	name := method.RawName
	tx.FunctionName = &name
	tx.FunctionParameters = params
	return tx, nil
}

package transactionParser

import (
	"math/big"
	"testing"

	"github.com/Layr-Labs/contract-activity/internal/logger"
	"github.com/Layr-Labs/contract-activity/pkg/contractAbi"
	"github.com/Layr-Labs/contract-activity/pkg/parser"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
)

const tokenAbi = `[
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

type countingProgress struct {
	added    int
	finished bool
}

func (c *countingProgress) Add(n int) error { c.added += n; return nil }
func (c *countingProgress) Finish() error { c.finished = true; return nil }

func Test_TransactionParser(t *testing.T) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	assert.Nil(t, err)

	c, err := contractAbi.ParseContractAbi(tokenAbi, l)
	assert.Nil(t, err)

	recipient := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	transferInput, err := c.Abi.Pack("transfer", recipient, big.NewInt(1000))
	assert.Nil(t, err)
	approveInput, err := c.Abi.Pack("approve", recipient, big.NewInt(5))
	assert.Nil(t, err)

	tp := NewTransactionParser(l)

	t.Run("Should decode a known selector with parameters in abi order", func(t *testing.T) {
		tx, err := tp.DecodeTransaction(parser.RawRecord{"hash": "0x1", "input": hexutil.Encode(transferInput)}, c.Abi)
		assert.Nil(t, err)
		assert.True(t, tx.IsDecoded())
		assert.Equal(t, "transfer", *tx.FunctionName)

		keys := make([]string, 0)
		for pair := tx.FunctionParameters.Oldest(); pair != nil; pair = pair.Next() {
			keys = append(keys, pair.Key)
		}
		assert.Equal(t, []string{"to", "amount"}, keys)

		to, _ := tx.FunctionParameters.Get("to")
		assert.Equal(t, recipient, to)
		amount, _ := tx.FunctionParameters.Get("amount")
		assert.Equal(t, 0, big.NewInt(1000).Cmp(amount.(*big.Int)))
	})
	t.Run("Should name unnamed parameters by position", func(t *testing.T) {
		tx, err := tp.DecodeTransaction(parser.RawRecord{"input": hexutil.Encode(approveInput)}, c.Abi)
		assert.Nil(t, err)
		_, ok := tx.FunctionParameters.Get("param1")
		assert.True(t, ok)
	})
	t.Run("Should keep undecodable records undecorated", func(t *testing.T) {
		records := []parser.RawRecord{
			{"hash": "0x1", "input": hexutil.Encode(transferInput)},
			{"hash": "0x2", "input": "0x"},
			{"hash": "0x3", "input": "0xdeadbeef"},
			{"hash": "0x4", "input": "0xa9059cbb00"},
			{"hash": "0x5", "input": "not hex"},
		}
		progress := &countingProgress{}
		tp.SetProgressFactory(func(total int, description string) parser.ProgressReporter {
			assert.Equal(t, 5, total)
			return progress
		})
		decoded := tp.DecodeTransactions(records, c)

		assert.Len(t, decoded, 5)
		assert.True(t, decoded[0].IsDecoded())
		for _, tx := range decoded[1:] {
			assert.False(t, tx.IsDecoded())
			assert.Nil(t, tx.FunctionParameters)
		}
		assert.Equal(t, "0x3", decoded[2].Raw.String("hash"))
		assert.Equal(t, 5, progress.added)
		assert.True(t, progress.finished)

		record := decoded[2].ToRecord()
		assert.Nil(t, record[parser.FunctionNameField])
		assert.Equal(t, "0xdeadbeef", record["input"])
	})
	t.Run("Should leave everything undecorated without an abi", func(t *testing.T) {
		decoded := NewTransactionParser(l).DecodeTransactions([]parser.RawRecord{{"input": hexutil.Encode(transferInput)}}, contractAbi.EmptyContractAbi())
		assert.Len(t, decoded, 1)
		assert.False(t, decoded[0].IsDecoded())
	})
}

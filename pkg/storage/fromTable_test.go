package storage

import (
	"testing"
	"time"

	"github.com/Layr-Labs/contract-activity/pkg/hexCodec"
	"github.com/Layr-Labs/contract-activity/pkg/table"
	"github.com/stretchr/testify/assert"
)

const testContract = "0xA0eC9E1542485700110688b3e6FbebBDf23cd901"

func Test_TransactionsFromTable(t *testing.T) {
	t.Run("Should build rows and drop repeated hashes", func(t *testing.T) {
		tbl := table.FromRecords([]map[string]interface{}{
			{"hash": "0xaaa", "blockNumber": "12", "timeStamp": "1600000000", "value": "100000000000000000000", "isError": "0", "function_name": "transfer", "function_parameters": `{"value":"1"}`},
			{"hash": "0xbbb", "blockNumber": "13", "timeStamp": "1600000001", "value": "0", "isError": "1", "function_name": nil, "function_parameters": nil},
			{"hash": "0xbbb", "blockNumber": "13", "timeStamp": "1600000001", "value": "0", "isError": "1", "function_name": nil, "function_parameters": nil},
		})
		assert.Nil(t, hexCodec.NormalizeTable(tbl, table.TransactionSchema))

		txs, err := TransactionsFromTable(tbl, testContract, "run-1")
		assert.Nil(t, err)
		assert.Equal(t, 2, len(txs))

		assert.Equal(t, "0xaaa", txs[0].Hash)
		assert.Equal(t, int64(12), txs[0].BlockNumber)
		assert.Equal(t, time.Unix(1600000000, 0).UTC(), *txs[0].TimeStamp)
		assert.Equal(t, "100000000000000000000", txs[0].Value.String())
		assert.Equal(t, "transfer", *txs[0].FunctionName)
		assert.Equal(t, `{"value":"1"}`, *txs[0].FunctionParameters)
		assert.Equal(t, "run-1", txs[0].ExtractionId)
		assert.Equal(t, testContract, txs[0].Contract)

		assert.Equal(t, int64(1), *txs[1].IsError)
		assert.Nil(t, txs[1].FunctionName)
		assert.Nil(t, txs[1].Nonce)
	})
	t.Run("Should reject a row without hash", func(t *testing.T) {
		tbl := table.FromRecords([]map[string]interface{}{{"blockNumber": "1"}})
		assert.Nil(t, hexCodec.NormalizeTable(tbl, table.TransactionSchema))

		_, err := TransactionsFromTable(tbl, testContract, "run-1")
		assert.NotNil(t, err)
	})
}

func Test_LogsFromTable(t *testing.T) {
	t.Run("Should fold decoded_data columns into one array", func(t *testing.T) {
		tbl := table.FromRecords([]map[string]interface{}{
			{"transactionHash": "0xaaa", "blockNumber": "0x10", "logIndex": "0x", "topics": []interface{}{"0x01", "0x02"}, "decoded_data": []interface{}{nil, map[string]interface{}{"name": "Approval"}}},
			{"transactionHash": "0xaaa", "blockNumber": "0x10", "logIndex": "0x1", "topics": []interface{}{"0x01"}, "decoded_data": []interface{}{nil}},
			{"transactionHash": "0xAAA", "blockNumber": "0x10", "logIndex": "0x1", "topics": []interface{}{"0x01"}, "decoded_data": []interface{}{nil}},
		})
		assert.Nil(t, hexCodec.NormalizeTable(tbl, table.LogSchema))

		logs, err := LogsFromTable(tbl, testContract, "run-1")
		assert.Nil(t, err)
		assert.Equal(t, 2, len(logs))

		assert.Equal(t, int64(16), logs[0].BlockNumber)
		assert.Equal(t, int64(0), logs[0].LogIndex)
		assert.Equal(t, `["0x01","0x02"]`, logs[0].Topics)
		assert.Equal(t, `[null,{"name":"Approval"}]`, *logs[0].DecodedData)

		assert.Equal(t, int64(1), logs[1].LogIndex)
		assert.Nil(t, logs[1].DecodedData)
	})
	t.Run("Should leave decoded data empty when nothing decoded", func(t *testing.T) {
		tbl := table.FromRecords([]map[string]interface{}{
			{"transactionHash": "0xaaa", "blockNumber": "0x10", "logIndex": "0x2", "decoded_data": []interface{}{nil}},
		})
		assert.Nil(t, hexCodec.NormalizeTable(tbl, table.LogSchema))

		logs, err := LogsFromTable(tbl, testContract, "run-1")
		assert.Nil(t, err)
		assert.Equal(t, 1, len(logs))
		assert.Nil(t, logs[0].DecodedData)
	})
}

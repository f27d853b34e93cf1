package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Table(t *testing.T) {
	records := []map[string]interface{}{
		{"hash": "0x1", "blockNumber": "1"},
		{"hash": "0x2", "blockNumber": "2", "input": "0x"},
	}

	t.Run("Should build columns in first appearance order", func(t *testing.T) {
		tbl := FromRecords(records)
		assert.Equal(t, 2, tbl.Len())
		assert.Equal(t, []string{"blockNumber", "hash", "input"}, tbl.ColumnNames())

		input, ok := tbl.Column("input")
		assert.True(t, ok)
		assert.Equal(t, []interface{}{nil, "0x"}, input.Values)
	})
	t.Run("Should reject columns of the wrong length", func(t *testing.T) {
		tbl := FromRecords(records)
		err := tbl.SetColumn(NewColumn("x", ColumnType_String, []interface{}{"a"}))
		assert.NotNil(t, err)
	})
	t.Run("Should replace a column in place", func(t *testing.T) {
		tbl := FromRecords(records)
		err := tbl.ReplaceColumn("hash", []*Column{
			NewColumn("hash.a", ColumnType_String, []interface{}{"a", "b"}),
			NewColumn("hash.b", ColumnType_String, []interface{}{"c", "d"}),
		})
		assert.Nil(t, err)
		assert.Equal(t, []string{"blockNumber", "hash.a", "hash.b", "input"}, tbl.ColumnNames())
	})
	t.Run("Should reorder with unknown columns last", func(t *testing.T) {
		tbl := FromRecords(records)
		tbl.Reorder([]string{"hash", "missing", "blockNumber"})
		assert.Equal(t, []string{"hash", "blockNumber", "input"}, tbl.ColumnNames())
	})
	t.Run("Should concat tables with different columns", func(t *testing.T) {
		a := FromRecords(records[:1])
		b := FromRecords(records[1:])
		out := a.Concat(b)
		assert.Equal(t, 2, out.Len())
		assert.Equal(t, []string{"blockNumber", "hash", "input"}, out.ColumnNames())
		assert.Equal(t, map[string]interface{}{"hash": "0x1", "blockNumber": "1", "input": nil}, out.Row(0))
		assert.Len(t, out.Rows(), 2)
	})
	t.Run("Should drop a column", func(t *testing.T) {
		tbl := FromRecords(records)
		tbl.DropColumn("input")
		assert.Equal(t, []string{"blockNumber", "hash"}, tbl.ColumnNames())
	})
	t.Run("Should detect all null columns", func(t *testing.T) {
		assert.True(t, NullColumn("n", 3).IsAllNull())
		assert.False(t, NewColumn("n", ColumnType_String, []interface{}{nil, "x"}).IsAllNull())
	})
}

func Test_Schema(t *testing.T) {
	spec, ok := LogSchema.Find("topics")
	assert.True(t, ok)
	assert.Equal(t, DecodeRule_HexBytesList, spec.Rule)

	_, ok = TransactionSchema.Find("topics")
	assert.False(t, ok)
	assert.Equal(t, "blockNumber", TransactionSchema.Names()[0])
}

package hexCodec

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/Layr-Labs/contract-activity/pkg/table"
	"github.com/shopspring/decimal"
)

var (
	maxInt32 = big.NewInt(math.MaxInt32)
	minInt32 = big.NewInt(math.MinInt32)
	maxInt64 = big.NewInt(math.MaxInt64)
	minInt64 = big.NewInt(math.MinInt64)
)

// parseInteger turns a raw value into a big integer. Nil, empty strings and
// a bare "0x" are null. Values that are already integers pass through, which
// keeps decoding idempotent.
func parseInteger(v interface{}, base int) (*big.Int, bool, error) {
	switch t := v.(type) {
	case nil:
		return nil, false, nil
	case int32:
		return big.NewInt(int64(t)), true, nil
	case int64:
		return big.NewInt(t), true, nil
	case int:
		return big.NewInt(int64(t)), true, nil
	case uint64:
		return new(big.Int).SetUint64(t), true, nil
	case float64:
		if t != math.Trunc(t) {
			return nil, false, fmt.Errorf("value %v is not an integer", t)
		}
		b, _ := big.NewFloat(t).Int(nil)
		return b, true, nil
	case *big.Int:
		if t == nil {
			return nil, false, nil
		}
		return new(big.Int).Set(t), true, nil
	case decimal.Decimal:
		return t.BigInt(), true, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" || s == "0x" || s == "0X" {
			return nil, false, nil
		}
		if base == 16 {
			s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
		}
		b, ok := new(big.Int).SetString(s, base)
		if !ok {
			return nil, false, fmt.Errorf("'%s' is not a base %d integer", t, base)
		}
		return b, true, nil
	default:
		return nil, false, fmt.Errorf("unsupported integer value of type %T", v)
	}
}

// widen picks the narrowest of int32, int64 and decimal that holds every value.
func widen(name string, ints []*big.Int) *table.Column {
	colType := table.ColumnType_Int32
	for _, b := range ints {
		if b == nil {
			continue
		}
		if b.Cmp(maxInt64) > 0 || b.Cmp(minInt64) < 0 {
			colType = table.ColumnType_Decimal
			break
		}
		if b.Cmp(maxInt32) > 0 || b.Cmp(minInt32) < 0 {
			colType = table.ColumnType_Int64
		}
	}

	values := make([]interface{}, len(ints))
	for i, b := range ints {
		if b == nil {
			continue
		}
		switch colType {
		case table.ColumnType_Int32:
			values[i] = int32(b.Int64())
		case table.ColumnType_Int64:
			values[i] = b.Int64()
		default:
			values[i] = decimal.NewFromBigInt(b, 0)
		}
	}
	return table.NewColumn(name, colType, values)
}

var integerRank = map[table.ColumnType]int{
	table.ColumnType_Int32:   0,
	table.ColumnType_Int64:   1,
	table.ColumnType_Decimal: 2,
}

// WidenTo promotes an integer column to the declared type when the values
// alone widened it to a narrower one. A column already wider than declared
// is kept, since its values do not fit the declared type.
func WidenTo(col *table.Column, declared table.ColumnType) *table.Column {
	have, ok := integerRank[col.Type]
	if !ok {
		return col
	}
	want, ok := integerRank[declared]
	if !ok || want <= have {
		return col
	}

	values := make([]interface{}, col.Len())
	for i, v := range col.Values {
		b, ok, err := parseInteger(v, 10)
		if err != nil || !ok {
			continue
		}
		if declared == table.ColumnType_Int64 {
			values[i] = b.Int64()
		} else {
			values[i] = decimal.NewFromBigInt(b, 0)
		}
	}
	return table.NewColumn(col.Name, declared, values)
}

func decodeIntegers(name string, values []interface{}, base int) (*table.Column, error) {
	ints := make([]*big.Int, len(values))
	for i, v := range values {
		b, ok, err := parseInteger(v, base)
		if err != nil {
			return nil, fmt.Errorf("column '%s' row %d: %w", name, i, err)
		}
		if ok {
			ints[i] = b
		}
	}
	return widen(name, ints), nil
}

// DecodeDecimalFields parses base-10 strings into integers with the same
// widening rules as DecodeHexFields.
func DecodeDecimalFields(name string, values []interface{}) (*table.Column, error) {
	return decodeIntegers(name, values, 10)
}

// ToTimestamps converts an integer column of unix seconds to UTC timestamps.
// Timestamps already converted are kept.
func ToTimestamps(col *table.Column) (*table.Column, error) {
	values := make([]interface{}, col.Len())
	for i, v := range col.Values {
		if ts, ok := v.(time.Time); ok {
			values[i] = ts
			continue
		}
		b, ok, err := parseInteger(v, 10)
		if err != nil {
			return nil, fmt.Errorf("column '%s' row %d: %w", col.Name, i, err)
		}
		if !ok {
			continue
		}
		if !b.IsInt64() {
			return nil, fmt.Errorf("column '%s' row %d: timestamp %s out of range", col.Name, i, b.String())
		}
		values[i] = time.Unix(b.Int64(), 0).UTC()
	}
	return table.NewColumn(col.Name, table.ColumnType_Timestamp, values), nil
}

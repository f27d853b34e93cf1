// Package hexCodec turns the partially hex encoded JSON returned by block
// explorers into typed table columns.
package hexCodec

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/Layr-Labs/contract-activity/pkg/table"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DecodeHexFields decodes one column of hex data.
//
// Byte sequences, such as the topics of a log, become lists of hex strings.
// Scalar hex strings become integers: int32 when every value fits, widened to
// int64 when one exceeds 2147483647, and to decimal beyond int64. "0x" and
// empty strings are null. Applying it to its own output is a no-op.
func DecodeHexFields(name string, values []interface{}) (*table.Column, error) {
	if isByteSequenceColumn(values) {
		return decodeByteSequences(name, values)
	}
	return decodeIntegers(name, values, 16)
}

func isByteSequenceColumn(values []interface{}) bool {
	for _, v := range values {
		if v == nil {
			continue
		}
		switch v.(type) {
		case []byte, common.Hash, []common.Hash, [][]byte, []string, []interface{}:
			return true
		}
		return false
	}
	return false
}

func decodeByteSequences(name string, values []interface{}) (*table.Column, error) {
	out := make([]interface{}, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		encoded, err := hexList(v)
		if err != nil {
			return nil, fmt.Errorf("column '%s' row %d: %w", name, i, err)
		}
		out[i] = encoded
	}
	return table.NewColumn(name, table.ColumnType_StringList, out), nil
}

func hexList(v interface{}) ([]string, error) {
	switch t := v.(type) {
	case []byte:
		return []string{hexutil.Encode(t)}, nil
	case common.Hash:
		return []string{t.Hex()}, nil
	case []common.Hash:
		out := make([]string, 0, len(t))
		for _, h := range t {
			out = append(out, h.Hex())
		}
		return out, nil
	case [][]byte:
		out := make([]string, 0, len(t))
		for _, b := range t {
			out = append(out, hexutil.Encode(b))
		}
		return out, nil
	case []string:
		out := make([]string, 0, len(t))
		for _, s := range t {
			out = append(out, normalizeHexString(s))
		}
		return out, nil
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			switch et := e.(type) {
			case string:
				out = append(out, normalizeHexString(et))
			case []byte:
				out = append(out, hexutil.Encode(et))
			case common.Hash:
				out = append(out, et.Hex())
			default:
				return nil, fmt.Errorf("unsupported byte sequence element %T", e)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported byte sequence %T", v)
	}
}

func normalizeHexString(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	return s
}

// isByteArray reports whether v is a fixed size byte array such as [32]uint8.
func isByteArray(v reflect.Value) bool {
	return v.Kind() == reflect.Array && v.Type().Elem().Kind() == reflect.Uint8
}

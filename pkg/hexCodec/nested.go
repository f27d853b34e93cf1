package hexCodec

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Layr-Labs/contract-activity/pkg/table"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type orderedValues = orderedmap.OrderedMap[string, interface{}]

// null-like renderings produced by stringified empty structures
var nullLike = map[string]bool{
	"":     true,
	"[]":   true,
	"{}":   true,
	"None": true,
	"null": true,
	"nan":  true,
	"NaN":  true,
}

// NormalizeNestedFields flattens one level of key/value (or positional list)
// structures into one column per key, named "<name>.<key>". Null-like cells
// become null and columns left entirely null are dropped. When nothing
// remains the result is a single all-null column called name.
func NormalizeNestedFields(name string, values []interface{}) []*table.Column {
	order := make([]string, 0)
	cells := make(map[string][]interface{})

	for row, v := range values {
		for _, kv := range flattenOneLevel(v) {
			colName := name
			if kv.key != "" {
				colName = fmt.Sprintf("%s.%s", name, kv.key)
			}
			if _, ok := cells[colName]; !ok {
				order = append(order, colName)
				cells[colName] = make([]interface{}, len(values))
			}
			if !isNullLike(kv.value) {
				cells[colName][row] = kv.value
			}
		}
	}

	columns := make([]*table.Column, 0, len(order))
	for _, colName := range order {
		col := table.NewColumn(colName, columnTypeOf(cells[colName]), cells[colName])
		if col.IsAllNull() {
			continue
		}
		columns = append(columns, col)
	}
	if len(columns) == 0 {
		return []*table.Column{table.NullColumn(name, len(values))}
	}
	return columns
}

type keyValue struct {
	key   string
	value interface{}
}

func flattenOneLevel(v interface{}) []keyValue {
	switch t := v.(type) {
	case nil:
		return nil
	case *orderedValues:
		if t == nil {
			return nil
		}
		out := make([]keyValue, 0, t.Len())
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			out = append(out, keyValue{key: pair.Key, value: pair.Value})
		}
		return out
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]keyValue, 0, len(keys))
		for _, k := range keys {
			out = append(out, keyValue{key: k, value: t[k]})
		}
		return out
	case []interface{}:
		out := make([]keyValue, 0, len(t))
		for i, e := range t {
			out = append(out, keyValue{key: strconv.Itoa(i), value: e})
		}
		return out
	case string:
		if parsed, ok := parseStructure(t); ok {
			return flattenOneLevel(parsed)
		}
		return []keyValue{{key: "", value: t}}
	default:
		return []keyValue{{key: "", value: v}}
	}
}

func isNullLike(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return nullLike[strings.TrimSpace(t)]
	case *orderedValues:
		return t == nil || t.Len() == 0
	case map[string]interface{}:
		return len(t) == 0
	case []interface{}:
		return len(t) == 0
	}
	return false
}

func columnTypeOf(values []interface{}) table.ColumnType {
	for _, v := range values {
		switch v.(type) {
		case nil:
			continue
		case *orderedValues, map[string]interface{}, []interface{}:
			return table.ColumnType_Json
		}
	}
	return table.ColumnType_String
}

// parseStructure parses stringified JSON objects and arrays.
func parseStructure(s string) (interface{}, bool) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < 2 {
		return nil, false
	}
	if !(trimmed[0] == '{' && trimmed[len(trimmed)-1] == '}') && !(trimmed[0] == '[' && trimmed[len(trimmed)-1] == ']') {
		return nil, false
	}
	var out interface{}
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return nil, false
	}
	return out, true
}

// DecodeJsonPayloads parses stringified structures back and hex encodes any
// raw byte content they hold. A column that is entirely null is returned
// unchanged.
func DecodeJsonPayloads(col *table.Column) *table.Column {
	if col.IsAllNull() {
		return col
	}
	values := make([]interface{}, col.Len())
	for i, v := range col.Values {
		if s, ok := v.(string); ok {
			if parsed, ok := parseStructure(s); ok {
				v = parsed
			}
		}
		values[i] = NormalizeValue(v)
	}
	return table.NewColumn(col.Name, columnTypeOf(values), values)
}

// NormalizeValue rewrites decoded ABI values into JSON friendly ones: bytes
// become hex strings, big integers decimal strings, addresses checksummed
// hex, and tuples ordered maps.
func NormalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case string, bool, time.Time:
		return t
	case []byte:
		return hexutil.Encode(t)
	case common.Address:
		return t.Hex()
	case common.Hash:
		return t.Hex()
	case *big.Int:
		if t == nil {
			return nil
		}
		return t.String()
	case big.Int:
		return t.String()
	case decimal.Decimal:
		return t.String()
	case *orderedValues:
		if t == nil {
			return nil
		}
		out := orderedmap.New[string, interface{}]()
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, NormalizeValue(pair.Value))
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = NormalizeValue(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(t))
		for _, e := range t {
			out = append(out, NormalizeValue(e))
		}
		return out
	}
	return normalizeReflect(reflect.ValueOf(v))
}

func normalizeReflect(rv reflect.Value) interface{} {
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return NormalizeValue(rv.Elem().Interface())
	case reflect.Array:
		if isByteArray(rv) {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return hexutil.Encode(b)
		}
		fallthrough
	case reflect.Slice:
		out := make([]interface{}, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, NormalizeValue(rv.Index(i).Interface()))
		}
		return out
	case reflect.Struct:
		out := orderedmap.New[string, interface{}]()
		rt := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}
			key := field.Name
			if tag := strings.Split(field.Tag.Get("json"), ",")[0]; tag != "" && tag != "-" {
				key = tag
			}
			out.Set(key, NormalizeValue(rv.Field(i).Interface()))
		}
		return out
	}
	return rv.Interface()
}

// StringifyColumn renders structured values as JSON text for storage.
func StringifyColumn(col *table.Column) (*table.Column, error) {
	values := make([]interface{}, col.Len())
	for i, v := range col.Values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			values[i] = s
			continue
		}
		b, err := json.Marshal(NormalizeValue(v))
		if err != nil {
			return nil, fmt.Errorf("column '%s' row %d: %w", col.Name, i, err)
		}
		values[i] = string(b)
	}
	return table.NewColumn(col.Name, col.Type, values), nil
}

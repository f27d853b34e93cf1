package hexCodec

import (
	"fmt"

	"github.com/Layr-Labs/contract-activity/pkg/table"
)

// NormalizeTable applies the decode rule of every declared column present in
// t, moves declared columns to the front in schema order, and stringifies
// every structured column so the table can be stored as is.
func NormalizeTable(t *table.Table, schema table.Schema) error {
	for _, colSpec := range schema {
		col, ok := t.Column(colSpec.Name)
		if !ok {
			continue
		}

		switch colSpec.Rule {
		case table.DecodeRule_NestedPayload:
			flattened := NormalizeNestedFields(colSpec.Name, col.Values)
			for i, c := range flattened {
				flattened[i] = DecodeJsonPayloads(c)
			}
			if err := t.ReplaceColumn(colSpec.Name, flattened); err != nil {
				return err
			}
			continue
		default:
			decoded, err := decodeColumn(col, colSpec)
			if err != nil {
				return err
			}
			if err := t.SetColumn(decoded); err != nil {
				return err
			}
		}
	}

	t.Reorder(schema.Names())

	for _, col := range t.Columns() {
		if !col.Type.IsObject() && !hasStructuredValues(col) {
			continue
		}
		if !col.Type.IsObject() {
			col.Type = table.ColumnType_Json
		}
		stringified, err := StringifyColumn(col)
		if err != nil {
			return err
		}
		if err := t.SetColumn(stringified); err != nil {
			return err
		}
	}
	return nil
}

func decodeColumn(col *table.Column, colSpec table.ColumnSpec) (*table.Column, error) {
	switch colSpec.Rule {
	case table.DecodeRule_HexInteger:
		decoded, err := DecodeHexFields(col.Name, col.Values)
		if err != nil {
			return nil, err
		}
		return WidenTo(decoded, colSpec.Type), nil
	case table.DecodeRule_DecimalInteger:
		decoded, err := DecodeDecimalFields(col.Name, col.Values)
		if err != nil {
			return nil, err
		}
		return WidenTo(decoded, colSpec.Type), nil
	case table.DecodeRule_UnixTimestamp:
		ints, err := DecodeDecimalFields(col.Name, col.Values)
		if err != nil {
			return nil, err
		}
		return ToTimestamps(ints)
	case table.DecodeRule_HexUnixTimestamp:
		ints, err := DecodeHexFields(col.Name, col.Values)
		if err != nil {
			return nil, err
		}
		return ToTimestamps(ints)
	case table.DecodeRule_HexBytesList:
		return decodeByteSequences(col.Name, col.Values)
	case table.DecodeRule_Json:
		return table.NewColumn(col.Name, table.ColumnType_Json, col.Values), nil
	case table.DecodeRule_None, "":
		return table.NewColumn(col.Name, colSpec.Type, col.Values), nil
	default:
		return nil, fmt.Errorf("unknown decode rule '%s' for column '%s'", colSpec.Rule, col.Name)
	}
}

func hasStructuredValues(col *table.Column) bool {
	for _, v := range col.Values {
		switch v.(type) {
		case nil, string:
			continue
		case *orderedValues, map[string]interface{}, []interface{}:
			return true
		}
	}
	return false
}

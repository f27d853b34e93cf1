package table

// DecodeRule tells the normalizer how to turn a raw explorer value into a
// typed column value.
type DecodeRule string

const (
	// DecodeRule_None keeps the value as a string
	DecodeRule_None DecodeRule = "none"
	// DecodeRule_HexInteger parses base-16 strings ("0x1a") into widened integers
	DecodeRule_HexInteger DecodeRule = "hex_integer"
	// DecodeRule_DecimalInteger parses base-10 strings into widened integers
	DecodeRule_DecimalInteger DecodeRule = "decimal_integer"
	// DecodeRule_UnixTimestamp parses base-10 unix seconds into UTC timestamps
	DecodeRule_UnixTimestamp DecodeRule = "unix_timestamp"
	// DecodeRule_HexUnixTimestamp parses base-16 unix seconds into UTC timestamps
	DecodeRule_HexUnixTimestamp DecodeRule = "hex_unix_timestamp"
	// DecodeRule_HexBytesList hex-encodes every element of a byte sequence list
	DecodeRule_HexBytesList DecodeRule = "hex_bytes_list"
	// DecodeRule_NestedPayload flattens one level of nested structures and hex-encodes embedded bytes
	DecodeRule_NestedPayload DecodeRule = "nested_payload"
	// DecodeRule_Json marks a structured value that is only stringified
	DecodeRule_Json DecodeRule = "json"
)

// ColumnSpec declares one column: field name, semantic type and decode rule.
type ColumnSpec struct {
	Name string
	Type ColumnType
	Rule DecodeRule
}

type Schema []ColumnSpec

func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for _, c := range s {
		names = append(names, c.Name)
	}
	return names
}

func (s Schema) Find(name string) (ColumnSpec, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// TransactionSchema describes the explorer txlist fields. The explorer sends
// every number as a base-10 string.
var TransactionSchema = Schema{
	{Name: "blockNumber", Type: ColumnType_Int64, Rule: DecodeRule_DecimalInteger},
	{Name: "timeStamp", Type: ColumnType_Timestamp, Rule: DecodeRule_UnixTimestamp},
	{Name: "hash", Type: ColumnType_String, Rule: DecodeRule_None},
	{Name: "nonce", Type: ColumnType_Int64, Rule: DecodeRule_DecimalInteger},
	{Name: "blockHash", Type: ColumnType_String, Rule: DecodeRule_None},
	{Name: "transactionIndex", Type: ColumnType_Int64, Rule: DecodeRule_DecimalInteger},
	{Name: "from", Type: ColumnType_String, Rule: DecodeRule_None},
	{Name: "to", Type: ColumnType_String, Rule: DecodeRule_None},
	{Name: "value", Type: ColumnType_Decimal, Rule: DecodeRule_DecimalInteger},
	{Name: "gas", Type: ColumnType_Int64, Rule: DecodeRule_DecimalInteger},
	{Name: "gasPrice", Type: ColumnType_Int64, Rule: DecodeRule_DecimalInteger},
	{Name: "isError", Type: ColumnType_Int32, Rule: DecodeRule_DecimalInteger},
	{Name: "txreceipt_status", Type: ColumnType_Int32, Rule: DecodeRule_DecimalInteger},
	{Name: "input", Type: ColumnType_String, Rule: DecodeRule_None},
	{Name: "contractAddress", Type: ColumnType_String, Rule: DecodeRule_None},
	{Name: "cumulativeGasUsed", Type: ColumnType_Int64, Rule: DecodeRule_DecimalInteger},
	{Name: "gasUsed", Type: ColumnType_Int64, Rule: DecodeRule_DecimalInteger},
	{Name: "confirmations", Type: ColumnType_Int64, Rule: DecodeRule_DecimalInteger},
	{Name: "methodId", Type: ColumnType_String, Rule: DecodeRule_None},
	{Name: "functionName", Type: ColumnType_String, Rule: DecodeRule_None},
	{Name: "function_name", Type: ColumnType_String, Rule: DecodeRule_None},
	{Name: "function_parameters", Type: ColumnType_Json, Rule: DecodeRule_Json},
}

// LogSchema describes the explorer getLogs fields, which are hex encoded.
var LogSchema = Schema{
	{Name: "address", Type: ColumnType_String, Rule: DecodeRule_None},
	{Name: "topics", Type: ColumnType_StringList, Rule: DecodeRule_HexBytesList},
	{Name: "data", Type: ColumnType_String, Rule: DecodeRule_None},
	{Name: "blockNumber", Type: ColumnType_Int64, Rule: DecodeRule_HexInteger},
	{Name: "blockHash", Type: ColumnType_String, Rule: DecodeRule_None},
	{Name: "timeStamp", Type: ColumnType_Timestamp, Rule: DecodeRule_HexUnixTimestamp},
	{Name: "gasPrice", Type: ColumnType_Int64, Rule: DecodeRule_HexInteger},
	{Name: "gasUsed", Type: ColumnType_Int64, Rule: DecodeRule_HexInteger},
	{Name: "logIndex", Type: ColumnType_Int64, Rule: DecodeRule_HexInteger},
	{Name: "transactionHash", Type: ColumnType_String, Rule: DecodeRule_None},
	{Name: "transactionIndex", Type: ColumnType_Int64, Rule: DecodeRule_HexInteger},
	{Name: "decoded_data", Type: ColumnType_Json, Rule: DecodeRule_NestedPayload},
}

// Package parser provides the record types shared by the transaction and
// event log decoders. Decoding is always additive: the raw explorer fields
// are kept and the decoded values are attached next to them.
package parser

import (
	"github.com/ethereum/go-ethereum/common"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	// FunctionNameField is the column holding the decoded method name
	FunctionNameField = "function_name"
	// FunctionParametersField is the column holding the decoded call arguments
	FunctionParametersField = "function_parameters"
	// DecodedDataField is the column holding one decoded entry per log topic
	DecodedDataField = "decoded_data"
	// EventNameField is the key of the event name inside a decoded entry
	EventNameField = "name"
)

// RawRecord is one transaction or log object exactly as returned by the explorer.
type RawRecord map[string]interface{}

// String returns the value of a string field, or "" when absent.
func (r RawRecord) String(field string) string {
	if v, ok := r[field].(string); ok {
		return v
	}
	return ""
}

// Clone copies the top level of the record.
func (r RawRecord) Clone() RawRecord {
	c := make(RawRecord, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Arguments holds decoded values keyed by parameter name, in ABI order.
type Arguments = orderedmap.OrderedMap[string, interface{}]

func NewArguments() *Arguments {
	return orderedmap.New[string, interface{}]()
}

// DecodedTransaction is a raw transaction plus its decoded call, if any.
type DecodedTransaction struct {
	Raw RawRecord
	// FunctionName is nil when the input could not be decoded
	FunctionName *string
	// FunctionParameters is nil when the input could not be decoded
	FunctionParameters *Arguments
}

func (d *DecodedTransaction) IsDecoded() bool {
	return d.FunctionName != nil
}

// ToRecord merges the decoded fields into a copy of the raw record.
func (d *DecodedTransaction) ToRecord() RawRecord {
	r := d.Raw.Clone()
	if d.FunctionName != nil {
		r[FunctionNameField] = *d.FunctionName
	} else {
		r[FunctionNameField] = nil
	}
	if d.FunctionParameters != nil {
		r[FunctionParametersField] = d.FunctionParameters
	} else {
		r[FunctionParametersField] = nil
	}
	return r
}

// DecodedEvent is the decoding of a single topic position. An empty event
// marks a topic that matched nothing in the event index.
type DecodedEvent struct {
	EventName string
	Arguments *Arguments
}

func EmptyDecodedEvent() *DecodedEvent {
	return &DecodedEvent{}
}

func (e *DecodedEvent) IsEmpty() bool {
	return e == nil || e.EventName == ""
}

// Flatten returns the arguments followed by the event name under "name", or
// nil for an empty entry.
func (e *DecodedEvent) Flatten() *Arguments {
	if e.IsEmpty() {
		return nil
	}
	out := NewArguments()
	if e.Arguments != nil {
		for pair := e.Arguments.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, pair.Value)
		}
	}
	out.Set(EventNameField, e.EventName)
	return out
}

// DecodedLog is a raw log plus one decoded entry per topic, so that
// len(DecodedData) == len(Topics) always holds.
type DecodedLog struct {
	Raw         RawRecord
	Topics      []common.Hash
	DecodedData []*DecodedEvent
}

// ToRecord merges the decoded entries into a copy of the raw record.
func (d *DecodedLog) ToRecord() RawRecord {
	r := d.Raw.Clone()
	entries := make([]interface{}, 0, len(d.DecodedData))
	for _, e := range d.DecodedData {
		if flat := e.Flatten(); flat != nil {
			entries = append(entries, flat)
		} else {
			entries = append(entries, nil)
		}
	}
	r[DecodedDataField] = entries
	return r
}

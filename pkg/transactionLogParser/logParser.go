package transactionLogParser

import (
	"fmt"
	"strings"

	"github.com/Layr-Labs/contract-activity/pkg/contractAbi"
	"github.com/Layr-Labs/contract-activity/pkg/parser"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// TransactionLogParser decodes explorer event logs against an EventSelectorIndex.
type TransactionLogParser struct {
	logger   *zap.Logger
	progress parser.ProgressFactory
}

// NewTransactionLogParser creates a new TransactionLogParser.
//
// Parameters:
//   - logger: Logger for recording operations
//
// Returns:
//   - *TransactionLogParser: A configured transaction log parser
func NewTransactionLogParser(logger *zap.Logger) *TransactionLogParser {
	return &TransactionLogParser{
		logger:   logger,
		progress: parser.NoopProgressFactory,
	}
}

// SetProgressFactory installs a progress reporter used by DecodeLogs.
func (tlp *TransactionLogParser) SetProgressFactory(f parser.ProgressFactory) {
	if f != nil {
		tlp.progress = f
	}
}

// DecodeLogs decodes every log in order. Logs are never dropped: a log whose
// topics match nothing still gets one empty entry per topic.
//
// Parameters:
//   - records: Raw log objects as returned by the explorer
//   - index: Event definitions keyed by topic hash
//
// Returns:
//   - []*parser.DecodedLog: One decoded log per record
func (tlp *TransactionLogParser) DecodeLogs(records []parser.RawRecord, index contractAbi.EventSelectorIndex) []*parser.DecodedLog {
	logs := make([]*parser.DecodedLog, 0, len(records))
	bar := tlp.progress(len(records), "Decoding event logs")
	defer bar.Finish() //nolint:errcheck

	for _, record := range records {
		logs = append(logs, tlp.DecodeLog(record, index))
		_ = bar.Add(1)
	}
	return logs
}

// DecodeLog looks every topic of the log up in the index. A matching topic
// yields its name plus the event arguments that decode; anything else yields
// an empty entry at the same position.
//
// Parameters:
//   - record: The raw log
//   - index: Event definitions keyed by topic hash
//
// Returns:
//   - *parser.DecodedLog: The log with len(DecodedData) == len(Topics)
func (tlp *TransactionLogParser) DecodeLog(record parser.RawRecord, index contractAbi.EventSelectorIndex) *parser.DecodedLog {
	decodedLog := &parser.DecodedLog{
		Raw:         record,
		Topics:      []common.Hash{},
		DecodedData: []*parser.DecodedEvent{},
	}

	topics, err := ParseTopics(record["topics"])
	if err != nil {
		tlp.logger.Sugar().Debugw("Failed to parse log topics",
			zap.String("transactionHash", record.String("transactionHash")),
			zap.Error(err),
		)
		return decodedLog
	}
	decodedLog.Topics = topics

	data, err := hexutil.Decode(normalizeHexData(record.String("data")))
	if err != nil {
		tlp.logger.Sugar().Debugw("Failed to decode log data",
			zap.String("transactionHash", record.String("transactionHash")),
			zap.Error(err),
		)
		data = nil
	}

	for i, topic := range topics {
		event, ok := index.Lookup(topic)
		if !ok {
			decodedLog.DecodedData = append(decodedLog.DecodedData, parser.EmptyDecodedEvent())
			continue
		}

		// a matched selector always keeps its name, even when some arguments fail
		decoded, err := DecodeEvent(event, topics, data)
		if err != nil {
			tlp.logger.Sugar().Debugw(fmt.Sprintf("Partially decoded event '%s' at topic position %d", event.RawName, i),
				zap.String("transactionHash", record.String("transactionHash")),
				zap.String("logIndex", record.String("logIndex")),
				zap.Error(err),
			)
		}
		decodedLog.DecodedData = append(decodedLog.DecodedData, decoded)
	}
	return decodedLog
}

// DecodeEvent decodes the log as the given event: indexed arguments from
// topics[1:] and the rest from data, returned in declaration order. The event
// may have matched any topic position, not only topics[0].
//
// The returned event is never nil and always carries the event name. Arguments
// that could not be decoded are left out and reported in the error.
//
// Parameters:
//   - event: The event definition
//   - topics: All topics of the log, topics[0] being the event selector
//   - data: The non-indexed payload
//
// Returns:
//   - *parser.DecodedEvent: The event name with the arguments that decoded
//   - error: What prevented a complete decoding, if anything
func DecodeEvent(event *abi.Event, topics []common.Hash, data []byte) (*parser.DecodedEvent, error) {
	decoded := &parser.DecodedEvent{
		EventName: event.RawName,
		Arguments: parser.NewArguments(),
	}

	// values by position in event.Inputs
	values := make(map[int]interface{})
	var errs []string

	argTopics := []common.Hash{}
	if len(topics) > 0 {
		argTopics = topics[1:]
	}
	topicPos := 0
	nonIndexedPos := make([]int, 0)
	for i, input := range event.Inputs {
		if !input.Indexed {
			nonIndexedPos = append(nonIndexedPos, i)
			continue
		}
		if topicPos >= len(argTopics) {
			errs = append(errs, fmt.Sprintf("missing topic for indexed argument %d", i))
			topicPos++
			continue
		}
		v, err := parseIndexedTopic(input, argTopics[topicPos])
		topicPos++
		if err != nil {
			errs = append(errs, fmt.Sprintf("indexed argument %d: %v", i, err))
			continue
		}
		values[i] = v
	}

	if len(nonIndexedPos) > 0 {
		unpacked, err := event.Inputs.NonIndexed().Unpack(data)
		if err != nil {
			errs = append(errs, fmt.Sprintf("failed to unpack data: %v", err))
		} else {
			for j, v := range unpacked {
				values[nonIndexedPos[j]] = v
			}
		}
	}

	for i, input := range event.Inputs {
		v, ok := values[i]
		if !ok {
			continue
		}
		name := input.Name
		if name == "" {
			name = fmt.Sprintf("param%d", i)
		}
		decoded.Arguments.Set(name, v)
	}

	if len(errs) > 0 {
		return decoded, errors.Errorf("event '%s': %s", event.RawName, strings.Join(errs, "; "))
	}
	return decoded, nil
}

// parseIndexedTopic decodes a single indexed argument from its topic.
func parseIndexedTopic(input abi.Argument, topic common.Hash) (interface{}, error) {
	// ParseTopicsIntoMap keys by name, so the argument gets a fixed one here
	arg := input
	arg.Name = "value"
	out := make(map[string]interface{})
	if err := abi.ParseTopicsIntoMap(out, abi.Arguments{arg}, []common.Hash{topic}); err != nil {
		return nil, err
	}
	return out[arg.Name], nil
}

// ParseTopics converts the explorer's topic list into hashes.
func ParseTopics(raw interface{}) ([]common.Hash, error) {
	switch v := raw.(type) {
	case nil:
		return []common.Hash{}, nil
	case []common.Hash:
		return v, nil
	case []string:
		topics := make([]common.Hash, 0, len(v))
		for _, s := range v {
			topics = append(topics, common.HexToHash(s))
		}
		return topics, nil
	case []interface{}:
		topics := make([]common.Hash, 0, len(v))
		for i, t := range v {
			s, ok := t.(string)
			if !ok {
				return nil, errors.Errorf("topic %d is not a string", i)
			}
			topics = append(topics, common.HexToHash(s))
		}
		return topics, nil
	default:
		return nil, errors.Errorf("unsupported topics type %T", raw)
	}
}

func normalizeHexData(data string) string {
	if data == "" {
		return "0x"
	}
	return data
}

package fetcher

import (
	"fmt"
	"math/big"
	"strconv"
	"time"
)

// Protocol describes one paginated explorer list endpoint.
type Protocol struct {
	Name       string
	Module     string
	Action     string
	StartParam string
	EndParam   string
	PageSize   int
	// Sort is sent as the sort param when set
	Sort string
	// BlockNumberBase is the base block numbers are written in, both in the
	// request params and in the returned records.
	BlockNumberBase int
	// Backoff is the first wait after a failed page.
	Backoff time.Duration
}

var TransactionProtocol = Protocol{
	Name:            "transactions",
	Module:          "account",
	Action:          "txlist",
	StartParam:      "startblock",
	EndParam:        "endblock",
	PageSize:        10000,
	Sort:            "asc",
	BlockNumberBase: 10,
	Backoff:         5 * time.Second,
}

var LogProtocol = Protocol{
	Name:            "logs",
	Module:          "logs",
	Action:          "getLogs",
	StartParam:      "fromBlock",
	EndParam:        "toBlock",
	PageSize:        1000,
	BlockNumberBase: 16,
	Backoff:         3 * time.Second,
}

// FormatBlock renders a block number the way the endpoint expects it.
func (p Protocol) FormatBlock(n uint64) string {
	if p.BlockNumberBase == 16 {
		return fmt.Sprintf("0x%x", n)
	}
	return strconv.FormatUint(n, 10)
}

// ParseBlock reads the blockNumber field of a returned record.
func (p Protocol) ParseBlock(v interface{}) (uint64, error) {
	switch t := v.(type) {
	case nil:
		return 0, fmt.Errorf("record has no block number")
	case float64:
		return uint64(t), nil
	case string:
		s := t
		base := p.BlockNumberBase
		if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
			s = s[2:]
			base = 16
		}
		if s == "" {
			return 0, fmt.Errorf("record has an empty block number")
		}
		b, ok := new(big.Int).SetString(s, base)
		if !ok || !b.IsUint64() {
			return 0, fmt.Errorf("invalid block number '%s'", t)
		}
		return b.Uint64(), nil
	default:
		return 0, fmt.Errorf("unsupported block number type %T", v)
	}
}

// Cursor is the block range of the next page request. StartBlock never
// decreases.
type Cursor struct {
	StartBlock uint64
	EndBlock   uint64
}

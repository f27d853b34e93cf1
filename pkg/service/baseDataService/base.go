package baseDataService

import (
	"context"
	"fmt"
)

// BlockHeightReader returns the chain head.
type BlockHeightReader interface {
	GetBlockNumber(ctx context.Context) (uint64, error)
}

type BaseDataService struct {
	Node BlockHeightReader
}

// GetCurrentBlockHeightIfNotPresent returns blockHeight, or the chain head
// when blockHeight is 0.
func (b *BaseDataService) GetCurrentBlockHeightIfNotPresent(ctx context.Context, blockHeight uint64) (uint64, error) {
	if blockHeight == 0 {
		if b.Node == nil {
			return 0, fmt.Errorf("no end block given and no node to read the latest block from")
		}
		latest, err := b.Node.GetBlockNumber(ctx)
		if err != nil {
			return 0, err
		}
		blockHeight = latest
	}
	return blockHeight, nil
}

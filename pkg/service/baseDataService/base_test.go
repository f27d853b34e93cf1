package baseDataService

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubNode struct {
	height uint64
	err    error
}

func (s *stubNode) GetBlockNumber(ctx context.Context) (uint64, error) {
	return s.height, s.err
}

func Test_GetCurrentBlockHeightIfNotPresent(t *testing.T) {
	t.Run("Should keep an explicit block height", func(t *testing.T) {
		b := &BaseDataService{Node: &stubNode{height: 500}}
		h, err := b.GetCurrentBlockHeightIfNotPresent(context.Background(), 42)
		assert.Nil(t, err)
		assert.Equal(t, uint64(42), h)
	})
	t.Run("Should use the chain head for 0", func(t *testing.T) {
		b := &BaseDataService{Node: &stubNode{height: 500}}
		h, err := b.GetCurrentBlockHeightIfNotPresent(context.Background(), 0)
		assert.Nil(t, err)
		assert.Equal(t, uint64(500), h)
	})
	t.Run("Should return node errors", func(t *testing.T) {
		b := &BaseDataService{Node: &stubNode{err: errors.New("unreachable")}}
		_, err := b.GetCurrentBlockHeightIfNotPresent(context.Background(), 0)
		assert.NotNil(t, err)
	})
	t.Run("Should fail without a node", func(t *testing.T) {
		b := &BaseDataService{}
		_, err := b.GetCurrentBlockHeightIfNotPresent(context.Background(), 0)
		assert.NotNil(t, err)
	})
}

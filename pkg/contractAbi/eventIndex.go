package contractAbi

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// EventSelectorIndex maps an event's topic hash to its definition. It is
// built once per ABI and only read afterwards.
type EventSelectorIndex map[common.Hash]*abi.Event

// BuildEventIndex indexes every non-anonymous event entry of the ABI by the
// keccak256 hash of its canonical signature.
func BuildEventIndex(c *ContractAbi) EventSelectorIndex {
	index := make(EventSelectorIndex)
	if c.IsEmpty() || c.Abi == nil {
		return index
	}

	byId := make(map[common.Hash]*abi.Event, len(c.Abi.Events))
	for name := range c.Abi.Events {
		event := c.Abi.Events[name]
		byId[event.ID] = &event
	}

	for _, entry := range c.Events() {
		if entry.Anonymous {
			continue
		}
		selector := entry.Selector()
		if event, ok := byId[selector]; ok {
			index[selector] = event
		}
	}
	return index
}

func (idx EventSelectorIndex) Lookup(topic common.Hash) (*abi.Event, bool) {
	event, ok := idx[topic]
	return event, ok
}

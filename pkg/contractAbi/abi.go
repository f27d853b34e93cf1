package contractAbi

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// patterns that we're fine to ignore and not treat as an error
var ignorableAbiErrors = []*regexp.Regexp{
	regexp.MustCompile(`only single receive is allowed`),
	regexp.MustCompile(`only single fallback is allowed`),
}

// UnmarshalJsonToAbi unmarshals a JSON ABI string into an abi.ABI struct.
// It handles certain common unmarshaling errors that can be safely ignored,
// such as "only single receive is allowed" and "only single fallback is allowed".
// Returns the parsed ABI and any error encountered during parsing.
func UnmarshalJsonToAbi(json string, l *zap.Logger) (*abi.ABI, error) {
	a := &abi.ABI{}

	err := a.UnmarshalJSON([]byte(json))

	if err != nil {
		foundMatch := false
		for _, pattern := range ignorableAbiErrors {
			if pattern.MatchString(err.Error()) {
				foundMatch = true
				break
			}
		}

		if !foundMatch {
			l.Sugar().Warnw("Error unmarshaling abi json", zap.Error(err))
			return nil, err
		}
	}

	return a, nil
}

// AbiParameter is one input or output of an ABI entry.
type AbiParameter struct {
	Name         string         `json:"name"`
	Type         string         `json:"type"`
	InternalType string         `json:"internalType,omitempty"`
	Indexed      bool           `json:"indexed,omitempty"`
	Components   []AbiParameter `json:"components,omitempty"`
}

// AbiEntry is a function, event, constructor, error, fallback or receive
// definition in declaration order.
type AbiEntry struct {
	Type            string         `json:"type"`
	Name            string         `json:"name,omitempty"`
	Inputs          []AbiParameter `json:"inputs"`
	Outputs         []AbiParameter `json:"outputs,omitempty"`
	Anonymous       bool           `json:"anonymous,omitempty"`
	StateMutability string         `json:"stateMutability,omitempty"`
}

// ContractAbi keeps the declared entries alongside the parsed go-ethereum ABI.
// An empty ContractAbi means no ABI could be found for the contract.
type ContractAbi struct {
	Entries []AbiEntry
	Abi     *abi.ABI
	Raw     string
}

func EmptyContractAbi() *ContractAbi {
	return &ContractAbi{
		Entries: []AbiEntry{},
		Abi:     &abi.ABI{},
	}
}

func (c *ContractAbi) IsEmpty() bool {
	return c == nil || len(c.Entries) == 0
}

// ParseContractAbi parses the JSON array returned by an explorer's getabi.
func ParseContractAbi(abiJson string, l *zap.Logger) (*ContractAbi, error) {
	entries := make([]AbiEntry, 0)
	if err := json.Unmarshal([]byte(abiJson), &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal abi entries: %w", err)
	}

	a, err := UnmarshalJsonToAbi(abiJson, l)
	if err != nil {
		return nil, err
	}

	return &ContractAbi{
		Entries: entries,
		Abi:     a,
		Raw:     abiJson,
	}, nil
}

// Events returns the event entries in declaration order.
func (c *ContractAbi) Events() []AbiEntry {
	events := make([]AbiEntry, 0)
	if c == nil {
		return events
	}
	for _, e := range c.Entries {
		if e.Type == "event" {
			events = append(events, e)
		}
	}
	return events
}

// CanonicalSignature renders "Name(type1,type2)" with tuples expanded,
// e.g. Transfer(address,address,uint256).
func (e AbiEntry) CanonicalSignature() string {
	types := make([]string, 0, len(e.Inputs))
	for _, input := range e.Inputs {
		types = append(types, canonicalType(input))
	}
	return fmt.Sprintf("%s(%s)", e.Name, strings.Join(types, ","))
}

// Selector is the keccak256 hash of the canonical signature; topics[0] for events.
func (e AbiEntry) Selector() common.Hash {
	return crypto.Keccak256Hash([]byte(e.CanonicalSignature()))
}

func canonicalType(p AbiParameter) string {
	if !strings.HasPrefix(p.Type, "tuple") {
		return p.Type
	}
	components := make([]string, 0, len(p.Components))
	for _, c := range p.Components {
		components = append(components, canonicalType(c))
	}
	// keep any array suffix, e.g. tuple[] or tuple[2]
	return fmt.Sprintf("(%s)%s", strings.Join(components, ","), strings.TrimPrefix(p.Type, "tuple"))
}

package indexer

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"poolScope/internal/dex"
)

// Filter selects the logs the runner fetches. No addresses means every
// emitter; no topics means every event the decoders understand.
type Filter struct {
	Addresses []common.Address
	Topic0    []common.Hash
}

// ResolveFilter parses factory or pool addresses and topic0 selectors. A
// selector is either a 32-byte hash or an event name such as "Swap".
func ResolveFilter(addresses, topic0 []string) (Filter, error) {
	var f Filter
	for _, input := range addresses {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return Filter{}, fmt.Errorf("invalid address: %s", input)
		}
		f.Addresses = append(f.Addresses, common.HexToAddress(input))
	}

	for _, input := range topic0 {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !strings.HasPrefix(input, "0x") {
			id, err := dex.EventTopic0(input)
			if err != nil {
				return Filter{}, fmt.Errorf("topic0 %q: %w", input, err)
			}
			f.Topic0 = append(f.Topic0, id)
			continue
		}
		data, err := hexutil.Decode(input)
		if err != nil || len(data) != common.HashLength {
			return Filter{}, fmt.Errorf("invalid topic0: %s", input)
		}
		f.Topic0 = append(f.Topic0, common.BytesToHash(data))
	}
	return f, nil
}

func (f Filter) withDefaults() (Filter, error) {
	if len(f.Topic0) > 0 {
		return f, nil
	}
	topics, err := dex.DefaultTopic0()
	if err != nil {
		return Filter{}, fmt.Errorf("default topic0: %w", err)
	}
	f.Topic0 = topics
	return f, nil
}

// Fingerprint identifies the filter independent of input order.
func (f Filter) Fingerprint() string {
	addrs := append([]common.Address(nil), f.Addresses...)
	sort.Slice(addrs, func(i, j int) bool { return bytes.Compare(addrs[i][:], addrs[j][:]) < 0 })
	topics := append([]common.Hash(nil), f.Topic0...)
	sort.Slice(topics, func(i, j int) bool { return bytes.Compare(topics[i][:], topics[j][:]) < 0 })

	parts := make([][]byte, 0, len(addrs)+len(topics)+1)
	for _, a := range addrs {
		parts = append(parts, a.Bytes())
	}
	parts = append(parts, []byte{0})
	for _, t := range topics {
		parts = append(parts, t.Bytes())
	}
	return crypto.Keccak256Hash(parts...).Hex()[:18]
}

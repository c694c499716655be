// Package address holds the primitive identifiers shared by every pool
// model and registry: chain addresses, event topics, and the
// fixed-width unsigned integer type used for all on-chain quantities.
package address

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Address is a 20-byte EVM account or contract identifier.
type Address = common.Address

// Topic is the 32-byte keccak-256 discriminator of an event signature.
type Topic = common.Hash

// U256 is an unsigned 256-bit integer with saturating/overflow-checked
// arithmetic, per spec.md §3. All reserve, liquidity, and amount
// quantities in this module are U256.
type U256 = uint256.Int

// ParseAddress parses a 0x-prefixed hex string into an Address.
func ParseAddress(s string) (Address, bool) {
	if !common.IsHexAddress(s) {
		return Address{}, false
	}
	return common.HexToAddress(s), true
}

// ParseTopic parses a 0x-prefixed 32-byte hex string into a Topic.
func ParseTopic(s string) (Topic, bool) {
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 64 {
		return Topic{}, false
	}
	b, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return Topic{}, false
	}
	var t Topic
	b.FillBytes(t[:])
	return t, true
}

// ParseU256 parses a base-10 decimal string into a U256, failing on
// overflow or malformed input.
func ParseU256(s string) (*U256, bool) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Zero reports whether v is nil or equal to zero.
func Zero(v *U256) bool {
	return v == nil || v.IsZero()
}

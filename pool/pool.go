// Package pool defines the types shared by every pool state machine
// (C3 constant-product, C4 concentrated-liquidity, C5 vault) and the
// closed tagged union spec.md §9 prescribes for dispatch: a single
// interface implemented by each variant, switched on Type() rather than
// an open inheritance hierarchy.
package pool

import (
	"time"

	"github.com/poolmirror/engine/address"
)

// Kind tags which pool state machine a PoolType carries.
type Kind uint8

const (
	KindV2 Kind = iota
	KindV3
	KindVault
)

func (k Kind) String() string {
	switch k {
	case KindV2:
		return "v2"
	case KindV3:
		return "v3"
	case KindVault:
		return "vault"
	default:
		return "unknown"
	}
}

// VaultKind distinguishes the ERC4626 share-price conventions SPEC_FULL
// supplements from original_source/src/models/pool/erc4626/*.rs.
type VaultKind uint8

const (
	VaultStandard VaultKind = iota
	VaultRebasingIP
)

// Type is the closed tagged union of spec.md §3's PoolType. A pool
// instance carries its type for dispatch at the quote/apply boundary.
type Type struct {
	Kind  Kind
	Vault VaultKind // meaningful only when Kind == KindVault
}

// Direction selects which side of a pool is given as input.
type Direction uint8

const (
	ExactIn Direction = iota
	ExactOut
)

// Pool is the shared interface every variant (V2Pool, V3Pool,
// VaultPool) implements. Quote methods take a shared (read) lock;
// ApplyLog takes an exclusive (write) lock, per spec.md §5.
type Pool interface {
	Address() address.Address
	Type() Type
	Token0() address.Address
	Token1() address.Address
	// Other returns the pool's other token given one of its two
	// members, and false if tok is not in the pool.
	Other(tok address.Address) (address.Address, bool)
	// QuoteExactIn returns the output amount for an exact input of
	// tokenIn.
	QuoteExactIn(tokenIn address.Address, amountIn *address.U256) (*address.U256, error)
	// QuoteExactOut returns the required input amount for an exact
	// output of tokenOut.
	QuoteExactOut(tokenOut address.Address, amountOut *address.U256) (*address.U256, error)
	// ApplyLog applies a decoded event log to the pool's mutable state.
	// Unknown topics are silent no-ops, per spec.md §4.3/§4.4.
	ApplyLog(l address.Log) error
	// LastUpdated returns the wall-clock time of the last successful
	// ApplyLog, for diagnostics only.
	LastUpdated() time.Time
}

// FeePPM expresses a fee in parts-per-million out of Denominator, per
// spec.md §3/§4.3.
type FeePPM = uint32

// Denominator is the fee fraction's denominator (spec.md §4.3).
const Denominator = 1_000_000

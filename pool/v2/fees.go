package v2

import (
	"github.com/poolmirror/engine/address"
	"github.com/poolmirror/engine/poolerr"
)

// factoryFee is keyed by (chainID, factory address) and maps to the
// fork's fee in parts-per-million. Fees are not on-chain state for V2
// pairs; they are a property of the factory/fork the pair was deployed
// from, per spec.md §4.3. This table holds one entry per known fork the
// engine has been taught about; it is intentionally small and grows as
// new forks are onboarded, the way the teacher's precompile registry
// (luxfi-evm/precompile/registry) grows by explicit registration rather
// than discovery.
type factoryKey struct {
	ChainID uint64
	Factory address.Address
}

var factoryFees = map[factoryKey]uint32{}

// chainDefaultFee is the fallback fee used when a pair's factory is not
// in factoryFees, keyed by chain-id.
var chainDefaultFee = map[uint64]uint32{
	1:     3000, // Ethereum mainnet: UniswapV2 fork default, 0.3%
	56:    2500, // BNB Chain: PancakeSwap default, 0.25%
	137:   3000, // Polygon: QuickSwap default, 0.3%
	42161: 3000, // Arbitrum: SushiSwap default, 0.3%
	8453:  3000, // Base: Aerodrome/Uniswap default, 0.3%
}

// RegisterFactory teaches the resolver a new fork's fee for chainID.
func RegisterFactory(chainID uint64, factory address.Address, feePPM uint32) {
	factoryFees[factoryKey{ChainID: chainID, Factory: factory}] = feePPM
}

// ResolveFee maps a pair's factory address through the static fork
// table, falling back to the chain default. Bootstrap fails
// (ErrNotFound) if both miss, per spec.md §4.3.
func ResolveFee(chainID uint64, factory address.Address) (uint32, error) {
	if fee, ok := factoryFees[factoryKey{ChainID: chainID, Factory: factory}]; ok {
		return fee, nil
	}
	if fee, ok := chainDefaultFee[chainID]; ok {
		return fee, nil
	}
	return 0, poolerr.ErrNotFound
}

package v3

import "github.com/holiman/uint256"

// ExternalQuoter is the read-only on-chain quoter contract a Ramses
// pool is reconciled against at bootstrap, per spec.md §4.4.
type ExternalQuoter interface {
	QuoteExactInputSingle(tokenIn, tokenOut [20]byte, amountIn *uint256.Int) (*uint256.Int, error)
}

// ComputeRamsesFactor implements spec.md §4.4's conservative scaling
// bootstrap: quote a reference input against the external quoter in
// both directions, compare against the pool's own local simulation,
// and take the minimum resulting factor so subsequent local quotes
// never overstate the on-chain result.
//
//	factor = onchainOut * 1e10 / localOut - 1
//
// expressed here as factor = floor(onchainOut * 1e10 / localOut),
// i.e. the multiplier (not the "-1" delta) local quotes are scaled by,
// which is what Pool.applyRamsesFactor consumes.
func ComputeRamsesFactor(p *Pool, quoter ExternalQuoter, referenceAmount *uint256.Int) (*uint256.Int, error) {
	t0, t1 := p.Token0(), p.Token1()

	localZeroToOne, err := p.simulate(true, referenceAmount, true)
	if err != nil {
		return nil, err
	}
	localOneToZero, err := p.simulate(false, referenceAmount, true)
	if err != nil {
		return nil, err
	}

	onchainZeroToOne, err := quoter.QuoteExactInputSingle(t0, t1, referenceAmount)
	if err != nil {
		return nil, err
	}
	onchainOneToZero, err := quoter.QuoteExactInputSingle(t1, t0, referenceAmount)
	if err != nil {
		return nil, err
	}

	factorA := ratioFactor(onchainZeroToOne, localZeroToOne)
	factorB := ratioFactor(onchainOneToZero, localOneToZero)

	if factorA.Cmp(factorB) < 0 {
		return factorA, nil
	}
	return factorB, nil
}

func ratioFactor(onchainOut, localOut *uint256.Int) *uint256.Int {
	if localOut.IsZero() {
		return uint256.NewInt(ratioFactorDenominator)
	}
	f, overflow := mulDiv(onchainOut, uint256.NewInt(ratioFactorDenominator), localOut)
	if overflow {
		return uint256.NewInt(ratioFactorDenominator)
	}
	return f
}

package pool

import (
	"time"

	"github.com/holiman/uint256"

	"github.com/poolmirror/engine/address"
	"github.com/poolmirror/engine/poolerr"
)

// Mock is a trivial constant-rate two-token pool used by tests that
// exercise path composition and the quote processor without standing
// up real V2/V3 state, grounded on original_source's
// models/pool/mock.rs.
type Mock struct {
	Addr      address.Address
	T0, T1    address.Address
	RateNumer *address.U256 // out = in * RateNumer / RateDenom, token0->token1
	RateDenom *address.U256
	updatedAt time.Time
}

// NewMock builds a Mock pool quoting token0->token1 at numer/denom and
// the inverse for token1->token0.
func NewMock(addr, t0, t1 address.Address, numer, denom uint64) *Mock {
	return &Mock{
		Addr:      addr,
		T0:        t0,
		T1:        t1,
		RateNumer: uint256.NewInt(numer),
		RateDenom: uint256.NewInt(denom),
		updatedAt: time.Now(),
	}
}

func (m *Mock) Address() address.Address { return m.Addr }
func (m *Mock) Type() Type               { return Type{Kind: KindV2} }
func (m *Mock) Token0() address.Address  { return m.T0 }
func (m *Mock) Token1() address.Address  { return m.T1 }

func (m *Mock) Other(tok address.Address) (address.Address, bool) {
	switch tok {
	case m.T0:
		return m.T1, true
	case m.T1:
		return m.T0, true
	default:
		return address.Address{}, false
	}
}

func (m *Mock) QuoteExactIn(tokenIn address.Address, amountIn *address.U256) (*address.U256, error) {
	if address.Zero(amountIn) {
		return nil, poolerr.ErrBadInput
	}
	out := new(address.U256)
	switch tokenIn {
	case m.T0:
		out, _ = out.MulDivOverflow(amountIn, m.RateNumer, m.RateDenom)
	case m.T1:
		out, _ = out.MulDivOverflow(amountIn, m.RateDenom, m.RateNumer)
	default:
		return nil, poolerr.ErrTokenNotInPool
	}
	return out, nil
}

func (m *Mock) QuoteExactOut(tokenOut address.Address, amountOut *address.U256) (*address.U256, error) {
	in := new(address.U256)
	switch tokenOut {
	case m.T1:
		in, _ = in.MulDivOverflow(amountOut, m.RateDenom, m.RateNumer)
	case m.T0:
		in, _ = in.MulDivOverflow(amountOut, m.RateNumer, m.RateDenom)
	default:
		return nil, poolerr.ErrTokenNotInPool
	}
	return in, nil
}

func (m *Mock) ApplyLog(address.Log) error { m.updatedAt = time.Now(); return nil }
func (m *Mock) LastUpdated() time.Time     { return m.updatedAt }

package quote

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolmirror/engine/address"
	"github.com/poolmirror/engine/multichain"
	"github.com/poolmirror/engine/pool"
	"github.com/poolmirror/engine/registry"
	"github.com/poolmirror/engine/token"
)

func mkToken(b byte) address.Address {
	var a address.Address
	a[19] = b
	return a
}

func setup(t *testing.T) (*Processor, *registry.Registry, address.Address, address.Address, address.Address, address.Address) {
	t.Helper()
	chains := multichain.New()
	pools := registry.New()
	chains.AddChain(1, pools, token.New(1, nil, nil))

	t0, t1, t2, t3 := mkToken(0), mkToken(1), mkToken(2), mkToken(3)
	p01 := pool.NewMock(mkToken(0x01), t0, t1, 2, 1) // 1 t0 -> 2 t1
	p12 := pool.NewMock(mkToken(0x02), t1, t2, 2, 1)
	p23 := pool.NewMock(mkToken(0x03), t2, t3, 2, 1)
	direct := pool.NewMock(mkToken(0x04), t0, t3, 3, 1) // 1 t0 -> 3 t3, better rate

	for _, p := range []pool.Pool{p01, p12, p23, direct} {
		pools.AddPool(p)
	}
	return New(chains), pools, t0, t1, t2, t3
}

func TestQuoteExactIn_SinglePool(t *testing.T) {
	p, _, t0, _, _, _ := setup(t)
	out, err := p.QuoteExactIn(1, mkToken(0x01), t0, uint256.NewInt(10))
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(20), out)
}

func TestQuoteExactIn_UnknownChain(t *testing.T) {
	p, _, t0, _, _, _ := setup(t)
	_, err := p.QuoteExactIn(999, mkToken(0x01), t0, uint256.NewInt(10))
	assert.Error(t, err)
}

func TestQuotePath_ExactIn_ThreeHopChain(t *testing.T) {
	p, _, t0, _, _, t3 := setup(t)
	path := []address.Address{mkToken(0x01), mkToken(0x02), mkToken(0x03)}
	result, err := p.QuotePath(1, path, uint256.NewInt(10), ExactIn, t0, t3)
	require.NoError(t, err)
	// 10 -> 20 -> 40 -> 80
	assert.Equal(t, uint256.NewInt(80), result.Output)
	require.Len(t, result.Route, 3)
	assert.Equal(t, t0, result.Route[0].TokenIn)
	assert.Equal(t, t3, result.Route[2].TokenOut)
}

func TestQuotePath_RejectsMismatchedEndpoint(t *testing.T) {
	p, _, t0, _, _, _ := setup(t)
	path := []address.Address{mkToken(0x01)}
	_, err := p.QuotePath(1, path, uint256.NewInt(10), ExactIn, t0, mkToken(0x09))
	assert.Error(t, err)
}

// Scenario 6 of spec.md §8: best_quote_path over the 3-hop chain and
// the 1-hop direct pool picks whichever route yields the larger output.
func TestBestQuotePath_PicksBetterRoute(t *testing.T) {
	p, _, t0, _, _, t3 := setup(t)
	best, err := p.BestQuotePath(1, t0, t3, uint256.NewInt(10), ExactIn, 3)
	require.NoError(t, err)
	// direct: 10 * 3 = 30; chain: 10*2*2*2 = 80 — chain actually wins here.
	assert.Equal(t, uint256.NewInt(80), best)
}

func TestBestQuotePath_NoRoute(t *testing.T) {
	p, _, _, _, _, _ := setup(t)
	_, err := p.BestQuotePath(1, mkToken(0x50), mkToken(0x51), uint256.NewInt(1), ExactIn, 2)
	assert.Error(t, err)
}

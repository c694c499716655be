package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolmirror/engine/address"
	"github.com/poolmirror/engine/pool"
)

func mkToken(b byte) address.Address {
	var a address.Address
	a[19] = b
	return a
}

func TestAddGetRemovePool(t *testing.T) {
	r := New()
	tA, tB := mkToken(1), mkToken(2)
	p := pool.NewMock(mkToken(0xaa), tA, tB, 997, 1000)
	r.AddPool(p)

	got, ok := r.GetPool(p.Address())
	require.True(t, ok)
	assert.Equal(t, p, got)

	assert.ElementsMatch(t, []address.Address{p.Address()}, r.AddressesByType(p.Type()))

	removed, ok := r.RemovePool(p.Address())
	require.True(t, ok)
	assert.Equal(t, p, removed)
	_, ok = r.GetPool(p.Address())
	assert.False(t, ok)
	assert.Empty(t, r.AddressesByType(p.Type()))
}

func TestTopicsAndProfitableTopics(t *testing.T) {
	r := New()
	t1, _ := address.ParseTopic("0x0000000000000000000000000000000000000000000000000000000000000001")
	r.AddTopics(t1)
	assert.Equal(t, []address.Topic{t1}, r.Topics())

	r.AddProfitableTopics(t1)
	assert.True(t, r.ProfitableTopics().Contains(t1))
}

func TestLastProcessedBlock(t *testing.T) {
	r := New()
	assert.Equal(t, uint64(0), r.LastProcessedBlock())
	r.SetLastProcessedBlock(42)
	assert.Equal(t, uint64(42), r.LastProcessedBlock())
}

// Scenario 6 of spec.md §8: a 3-pool chain token0 -> token1 -> token2
// -> token3 and a direct token0 -> token3 pool; path search from
// token0 to token3 with maxHops=3 finds both the 3-hop chain and the
// 1-hop direct pool.
func TestGetAllPathFromTokenToToken(t *testing.T) {
	r := New()
	t0, t1, t2, t3 := mkToken(0), mkToken(1), mkToken(2), mkToken(3)

	p01 := pool.NewMock(mkToken(0x01), t0, t1, 997, 1000)
	p12 := pool.NewMock(mkToken(0x02), t1, t2, 997, 1000)
	p23 := pool.NewMock(mkToken(0x03), t2, t3, 997, 1000)
	direct := pool.NewMock(mkToken(0x04), t0, t3, 997, 1000)

	for _, p := range []pool.Pool{p01, p12, p23, direct} {
		r.AddPool(p)
	}

	paths, err := r.GetAllPathFromTokenToToken(t0, t3, 3)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	var sawDirect, sawChain bool
	for _, path := range paths {
		if len(path) == 1 && path[0].Address() == direct.Address() {
			sawDirect = true
		}
		if len(path) == 3 {
			sawChain = true
			assert.Equal(t, p01.Address(), path[0].Address())
			assert.Equal(t, p12.Address(), path[1].Address())
			assert.Equal(t, p23.Address(), path[2].Address())
		}
	}
	assert.True(t, sawDirect)
	assert.True(t, sawChain)
}

func TestGetAllPathFromTokenToToken_NoPath(t *testing.T) {
	r := New()
	t0, t1 := mkToken(0), mkToken(1)
	paths, err := r.GetAllPathFromTokenToToken(t0, t1, 2)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestGetAllPathFromTokenToToken_ZeroHops(t *testing.T) {
	r := New()
	_, err := r.GetAllPathFromTokenToToken(mkToken(0), mkToken(1), 0)
	assert.Error(t, err)
}

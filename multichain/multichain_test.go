package multichain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolmirror/engine/registry"
	"github.com/poolmirror/engine/token"
)

func TestAddChainAndLookup(t *testing.T) {
	r := New()
	pools1 := registry.New()
	tokens1 := token.New(1, nil, nil)
	r.AddChain(1, pools1, tokens1)

	gotPools, ok := r.Pools(1)
	require.True(t, ok)
	assert.Same(t, pools1, gotPools)

	gotTokens, ok := r.Tokens(1)
	require.True(t, ok)
	assert.Same(t, tokens1, gotTokens)

	_, ok = r.Pools(999)
	assert.False(t, ok)
}

func TestAllChainIDsStableOrder(t *testing.T) {
	r := New()
	r.AddChain(137, registry.New(), token.New(137, nil, nil))
	r.AddChain(1, registry.New(), token.New(1, nil, nil))
	r.AddChain(56, registry.New(), token.New(56, nil, nil))

	assert.Equal(t, []uint64{1, 56, 137}, r.AllChainIDs())
}

package vault

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolmirror/engine/address"
	"github.com/poolmirror/engine/pool"
	"github.com/poolmirror/engine/poolerr"
)

func testPool() *Pool {
	return New(Config{
		Address:        address.Address{0xaa},
		VaultToken:     address.Address{0x01},
		AssetToken:     address.Address{0x02},
		Kind:           pool.VaultStandard,
		VaultReserve:   uint256.NewInt(1_000_000),
		AssetReserve:   uint256.NewInt(2_000_000),
		DepositFeePPM:  3000,
		WithdrawFeePPM: 1000,
	})
}

func TestQuoteExactIn_Deposit(t *testing.T) {
	p := testPool()
	out, err := p.QuoteExactIn(p.Token1(), uint256.NewInt(1000))
	require.NoError(t, err)
	// step = 1000 * 1_000_000 / 2_000_000 = 500; out = 500 * 997000/1e6 = 498
	assert.Equal(t, uint256.NewInt(498), out)
}

func TestQuoteExactIn_Withdraw(t *testing.T) {
	p := testPool()
	out, err := p.QuoteExactIn(p.Token0(), uint256.NewInt(1000))
	require.NoError(t, err)
	// step = 1000 * 2_000_000 / 1_000_000 = 2000; out = 2000 * 999000/1e6 = 1998
	assert.Equal(t, uint256.NewInt(1998), out)
}

func TestQuoteExactIn_ZeroAmount(t *testing.T) {
	p := testPool()
	_, err := p.QuoteExactIn(p.Token1(), uint256.NewInt(0))
	assert.ErrorIs(t, err, poolerr.ErrBadInput)
}

func TestQuoteExactIn_UnknownToken(t *testing.T) {
	p := testPool()
	_, err := p.QuoteExactIn(address.Address{0xff}, uint256.NewInt(1))
	assert.ErrorIs(t, err, poolerr.ErrTokenNotInPool)
}

func TestQuoteExactIn_EmptyReserve(t *testing.T) {
	p := New(Config{
		Address:    address.Address{0xaa},
		VaultToken: address.Address{0x01},
		AssetToken: address.Address{0x02},
	})
	out, err := p.QuoteExactIn(p.Token1(), uint256.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(1000), out)
}

func TestApplyDepositWithdraw(t *testing.T) {
	p := testPool()
	deposit := depositWithdrawPayload(100, 50)
	require.NoError(t, p.ApplyLog(address.Log{Topics: []address.Topic{TopicDeposit}, Data: deposit}))

	vr, ar := p.Reserves()
	assert.Equal(t, uint256.NewInt(1_000_050), vr)
	assert.Equal(t, uint256.NewInt(2_000_100), ar)

	withdraw := depositWithdrawPayload(100, 50)
	require.NoError(t, p.ApplyLog(address.Log{Topics: []address.Topic{TopicWithdraw}, Data: withdraw}))

	vr, ar = p.Reserves()
	assert.Equal(t, uint256.NewInt(1_000_000), vr)
	assert.Equal(t, uint256.NewInt(2_000_000), ar)
}

func TestApplyWithdraw_RejectsUnderflow(t *testing.T) {
	p := New(Config{
		Address:    address.Address{0xaa},
		VaultToken: address.Address{0x01},
		AssetToken: address.Address{0x02},
	})
	withdraw := depositWithdrawPayload(100, 50)
	err := p.ApplyLog(address.Log{Topics: []address.Topic{TopicWithdraw}, Data: withdraw})
	assert.ErrorIs(t, err, poolerr.ErrPoolInvariant)
}

func TestApplyLog_UnknownTopicIsNoop(t *testing.T) {
	p := testPool()
	vrBefore, arBefore := p.Reserves()
	err := p.ApplyLog(address.Log{Topics: []address.Topic{{0xde, 0xad}}, Data: []byte{1, 2, 3}})
	require.NoError(t, err)
	vrAfter, arAfter := p.Reserves()
	assert.Equal(t, vrBefore, vrAfter)
	assert.Equal(t, arBefore, arAfter)
}

func depositWithdrawPayload(assets, shares uint64) []byte {
	data := make([]byte, 128)
	a := uint256.NewInt(assets).Bytes32()
	s := uint256.NewInt(shares).Bytes32()
	copy(data[64:96], a[:])
	copy(data[96:128], s[:])
	return data
}

// Package vault implements the ERC4626-style share/asset pool model
// (C5): a vault token and an underlying asset token trade at the ratio
// of two running reserves, the same constant-ratio formula a standard
// vault and its rebasing variants share.
package vault

import (
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/poolmirror/engine/address"
	"github.com/poolmirror/engine/pool"
	"github.com/poolmirror/engine/poolerr"
)

// Event topics recognized by ApplyLog, shared by every Kind.
var (
	TopicDeposit  = mustTopic("0xdcbc1c05240f31ff3ad067ef1ee35ce4997762752e3a095284754544f4c709d7")
	TopicWithdraw = mustTopic("0xfbde797d201c681b91056529119e0b02407c7bb96a4a2c75c01fc9667232c8db")
)

func mustTopic(s string) address.Topic {
	t, ok := address.ParseTopic(s)
	if !ok {
		panic("vault: invalid topic literal " + s)
	}
	return t
}

// Denominator is the fixed-point base deposit/withdraw fees are
// expressed in, matching pool.Denominator (parts-per-million).
const Denominator = pool.Denominator

// Pool is the share/asset vault model of spec.md's ERC4626 supplement.
// Both pool.VaultStandard and pool.VaultRebasingIP use this same
// struct; the rebasing variant differs only in how its bootstrap
// fetch populates reserves (see Config), not in quote/apply logic —
// the reference implementation's VerioIP is a thin wrapper over
// ERC4626Standard with the same reserve algebra.
type Pool struct {
	addr   address.Address
	vault  address.Address // shares token, token0
	asset  address.Address // underlying token, token1
	kind   pool.VaultKind
	depositFeePPM  pool.FeePPM
	withdrawFeePPM pool.FeePPM

	mu            sync.RWMutex
	vaultReserve  *uint256.Int // total vault-token supply tracked
	assetReserve  *uint256.Int // total underlying held by the vault
	lastUpdated   time.Time
}

// Config carries the bootstrap-time state for a new vault pool.
type Config struct {
	Address        address.Address
	VaultToken     address.Address
	AssetToken     address.Address
	Kind           pool.VaultKind
	VaultReserve   *uint256.Int
	AssetReserve   *uint256.Int
	DepositFeePPM  pool.FeePPM
	WithdrawFeePPM pool.FeePPM
}

// New constructs a vault pool from bootstrapped on-chain state.
func New(cfg Config) *Pool {
	vr, ar := cfg.VaultReserve, cfg.AssetReserve
	if vr == nil {
		vr = new(uint256.Int)
	}
	if ar == nil {
		ar = new(uint256.Int)
	}
	return &Pool{
		addr:           cfg.Address,
		vault:          cfg.VaultToken,
		asset:          cfg.AssetToken,
		kind:           cfg.Kind,
		depositFeePPM:  cfg.DepositFeePPM,
		withdrawFeePPM: cfg.WithdrawFeePPM,
		vaultReserve:   vr.Clone(),
		assetReserve:   ar.Clone(),
		lastUpdated:    time.Now(),
	}
}

func (p *Pool) Address() address.Address { return p.addr }
func (p *Pool) Token0() address.Address  { return p.vault }
func (p *Pool) Token1() address.Address  { return p.asset }
func (p *Pool) Type() pool.Type          { return pool.Type{Kind: pool.KindVault, Vault: p.kind} }

func (p *Pool) LastUpdated() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastUpdated
}

func (p *Pool) Other(tok address.Address) (address.Address, bool) {
	switch tok {
	case p.vault:
		return p.asset, true
	case p.asset:
		return p.vault, true
	default:
		return address.Address{}, false
	}
}

// Reserves returns a snapshot of (vaultReserve, assetReserve).
func (p *Pool) Reserves() (vaultReserve, assetReserve *uint256.Int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.vaultReserve.Clone(), p.assetReserve.Clone()
}

// QuoteExactIn implements the constant-ratio formula of
// erc4626_standard.rs's calculate_output:
//
//	out = amountIn * reserveOut / reserveIn * (D - fee) / D
//
// where fee/reserveIn/reserveOut are chosen by swap direction:
// withdrawing (vault -> asset) uses withdrawFeePPM, depositing
// (asset -> vault) uses depositFeePPM.
func (p *Pool) QuoteExactIn(tokenIn address.Address, amountIn *address.U256) (*address.U256, error) {
	if address.Zero(amountIn) {
		return nil, poolerr.ErrBadInput
	}
	fee, reserveIn, reserveOut, err := p.legFor(tokenIn)
	if err != nil {
		return nil, err
	}
	if reserveIn.IsZero() {
		return amountIn.Clone(), nil
	}

	step, overflow := new(uint256.Int).MulDivOverflow(amountIn, reserveOut, reserveIn)
	if overflow {
		return nil, poolerr.ErrOverflow
	}
	out, overflow := step.MulDivOverflow(step, uint256.NewInt(uint64(Denominator-fee)), uint256.NewInt(Denominator))
	if overflow {
		return nil, poolerr.ErrOverflow
	}
	return out, nil
}

// QuoteExactOut inverts QuoteExactIn per calculate_input's formula:
//
//	in = amountOut * reserveIn / reserveOut * (D - fee) / D
func (p *Pool) QuoteExactOut(tokenOut address.Address, amountOut *address.U256) (*address.U256, error) {
	if address.Zero(amountOut) {
		return nil, poolerr.ErrBadInput
	}
	tokenIn, ok := p.Other(tokenOut)
	if !ok {
		return nil, poolerr.ErrTokenNotInPool
	}
	fee, reserveIn, reserveOut, err := p.legFor(tokenIn)
	if err != nil {
		return nil, err
	}
	if reserveOut.IsZero() {
		return amountOut.Clone(), nil
	}

	step, overflow := new(uint256.Int).MulDivOverflow(amountOut, reserveIn, reserveOut)
	if overflow {
		return nil, poolerr.ErrOverflow
	}
	in, overflow := step.MulDivOverflow(step, uint256.NewInt(uint64(Denominator-fee)), uint256.NewInt(Denominator))
	if overflow {
		return nil, poolerr.ErrOverflow
	}
	return in, nil
}

// legFor resolves (fee, reserveIn, reserveOut) for a swap whose input
// token is tokenIn, matching calculate_output's direction dispatch.
func (p *Pool) legFor(tokenIn address.Address) (fee pool.FeePPM, reserveIn, reserveOut *uint256.Int, err error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch tokenIn {
	case p.vault:
		return p.withdrawFeePPM, p.vaultReserve, p.assetReserve, nil
	case p.asset:
		return p.depositFeePPM, p.assetReserve, p.vaultReserve, nil
	default:
		return 0, nil, nil, poolerr.ErrTokenNotInPool
	}
}

// ApplyLog applies a decoded Deposit/Withdraw event. Vaults never emit
// a direct swap topic of their own — spec.md's ERC4626 supplement
// notes the reference implementation's apply_swap is intentionally
// unimplemented, since a vault's state only changes via deposit and
// withdraw, never a pairwise swap log.
func (p *Pool) ApplyLog(l address.Log) error {
	switch l.Topic0() {
	case TopicDeposit:
		return p.applyDeposit(l)
	case TopicWithdraw:
		return p.applyWithdraw(l)
	default:
		return nil
	}
}

func (p *Pool) applyDeposit(l address.Log) error {
	assets, shares, err := decodeDepositWithdraw(l.Data)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vaultReserve = new(uint256.Int).Add(p.vaultReserve, shares)
	p.assetReserve = new(uint256.Int).Add(p.assetReserve, assets)
	p.lastUpdated = time.Now()
	return nil
}

func (p *Pool) applyWithdraw(l address.Log) error {
	assets, shares, err := decodeDepositWithdraw(l.Data)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.vaultReserve.Cmp(shares) < 0 || p.assetReserve.Cmp(assets) < 0 {
		return poolerr.ErrPoolInvariant
	}
	p.vaultReserve = new(uint256.Int).Sub(p.vaultReserve, shares)
	p.assetReserve = new(uint256.Int).Sub(p.assetReserve, assets)
	p.lastUpdated = time.Now()
	return nil
}

var _ pool.Pool = (*Pool)(nil)

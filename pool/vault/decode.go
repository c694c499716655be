package vault

import (
	"github.com/holiman/uint256"

	"github.com/poolmirror/engine/poolerr"
)

// decodeDepositWithdraw decodes the canonical ERC4626 Deposit/Withdraw
// payload: sender (32B, indexed-equivalent skipped in some emitters,
// present here for layout parity), owner (32B), assets (32B), shares
// (32B). Only assets/shares are state-relevant.
func decodeDepositWithdraw(data []byte) (assets, shares *uint256.Int, err error) {
	if len(data) < 128 {
		return nil, nil, poolerr.ErrDecode
	}
	assets = new(uint256.Int).SetBytes(data[64:96])
	shares = new(uint256.Int).SetBytes(data[96:128])
	return assets, shares, nil
}

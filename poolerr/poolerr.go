// Package poolerr defines the sentinel error kinds shared across the
// pool mirror and quote engine, following the teacher's pattern of
// package-level errors.New values compared with errors.Is rather than
// typed exception hierarchies.
package poolerr

import "errors"

var (
	// ErrTransport reports an RPC or subscription failure.
	ErrTransport = errors.New("poolerr: transport failure")
	// ErrNotFound reports an unknown chain, pool, or token in a query.
	ErrNotFound = errors.New("poolerr: not found")
	// ErrBadInput reports a malformed address, out-of-range amount, or
	// an invalid combination of request fields.
	ErrBadInput = errors.New("poolerr: bad input")
	// ErrPoolInvariant reports a pool rejecting a quote (zero reserves,
	// insufficient liquidity, amountOut >= reserveOut).
	ErrPoolInvariant = errors.New("poolerr: pool invariant violated")
	// ErrTickInvariant reports a V3 state update that violated tick
	// bounds or tick-map preconditions.
	ErrTickInvariant = errors.New("poolerr: tick invariant violated")
	// ErrDecode reports an event payload that could not be decoded.
	ErrDecode = errors.New("poolerr: decode failure")
	// ErrOverflow reports arithmetic overflow in quote math. It is
	// returned as is; nothing in this module maps it to ErrPoolInvariant.
	ErrOverflow = errors.New("poolerr: arithmetic overflow")
	// ErrTimeout reports a caller deadline exceeded during a suspension
	// point.
	ErrTimeout = errors.New("poolerr: timeout")
	// ErrPathMismatch reports a composed path whose final token does not
	// match the requested endpoint.
	ErrPathMismatch = errors.New("poolerr: path mismatch")
	// ErrTokenNotInPool reports a hop whose current token is not a
	// member of the pool at that hop.
	ErrTokenNotInPool = errors.New("poolerr: token not in pool")
	// ErrNoRoute reports an empty path enumeration between two tokens.
	ErrNoRoute = errors.New("poolerr: no route")
	// ErrUnknownChain reports a chain-id with no registered chain state.
	ErrUnknownChain = errors.New("poolerr: unknown chain")
	// ErrMissingKey reports an event with no tx-hash or log-index.
	ErrMissingKey = errors.New("poolerr: missing event key")
	// ErrDuplicate reports an event key already seen by the deduplicator.
	ErrDuplicate = errors.New("poolerr: duplicate event")
)

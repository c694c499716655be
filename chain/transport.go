// Package chain implements the JSON-RPC transport (C1): an
// ordered-fallback client over N configured endpoints, plus the
// subscription dial used by the streaming updater (C9).
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/poolmirror/engine/poolerr"
)

// Endpoint is one JSON-RPC URL in the fallback chain.
type Endpoint struct {
	HTTPURL string
	WSURL   string // used only by Subscribe
}

// Transport is a JSON-RPC client fronting N endpoints. Every call is
// attempted against endpoint 1 first; on timeout or 5xx-class failure
// it falls back to 2, 3, ..., N before returning an error, per
// spec.md §4.1. There is no load balancing — fallback is sequential so
// bootstrap reads are deterministic.
type Transport struct {
	endpoints []Endpoint
	clients   []*ethclient.Client
	log       log.Logger
}

// Dial connects a client to every configured endpoint eagerly, so
// fallback never pays a dial cost mid-request.
func Dial(ctx context.Context, endpoints []Endpoint, logger log.Logger) (*Transport, error) {
	if len(endpoints) == 0 {
		return nil, poolerr.ErrBadInput
	}
	if logger == nil {
		logger = log.Root()
	}
	clients := make([]*ethclient.Client, len(endpoints))
	for i, ep := range endpoints {
		c, err := ethclient.DialContext(ctx, ep.HTTPURL)
		if err != nil {
			return nil, fmt.Errorf("chain: dial endpoint %d (%s): %w", i, ep.HTTPURL, err)
		}
		clients[i] = c
	}
	return &Transport{endpoints: endpoints, clients: clients, log: logger}, nil
}

// Close releases every underlying client connection.
func (t *Transport) Close() {
	for _, c := range t.clients {
		c.Close()
	}
}

// try runs fn against each client in order, returning the first
// success. A nil error short-circuits; every other error is logged
// and the next endpoint attempted.
func (t *Transport) try(ctx context.Context, op string, fn func(*ethclient.Client) error) error {
	var lastErr error
	for i, c := range t.clients {
		err := fn(c)
		if err == nil {
			return nil
		}
		lastErr = err
		t.log.Warn("chain: endpoint failed, falling back", "op", op, "endpoint", i, "err", err)
	}
	return fmt.Errorf("chain: %s: all endpoints failed: %w: %v", op, poolerr.ErrTransport, lastErr)
}

// LatestBlock returns the current chain head, per spec.md §4.8's
// `provider.latest_block()`.
func (t *Transport) LatestBlock(ctx context.Context) (uint64, error) {
	var head uint64
	err := t.try(ctx, "latest_block", func(c *ethclient.Client) error {
		h, err := c.BlockNumber(ctx)
		if err != nil {
			return err
		}
		head = h
		return nil
	})
	return head, err
}

// FilterQuery mirrors ethereum.FilterQuery's address/topic/range
// shape, kept as a local alias so callers don't import go-ethereum
// directly.
type FilterQuery = ethereum.FilterQuery

// GetLogs fetches logs matching q, falling back across endpoints on
// failure, per spec.md §4.8's batch getLogs call.
func (t *Transport) GetLogs(ctx context.Context, q FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	err := t.try(ctx, "get_logs", func(c *ethclient.Client) error {
		l, err := c.FilterLogs(ctx, q)
		if err != nil {
			return err
		}
		logs = l
		return nil
	})
	return logs, err
}

// CallContract performs an eth_call, used by the Ramses bootstrap's
// external-quoter reads.
func (t *Transport) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := t.try(ctx, "call_contract", func(c *ethclient.Client) error {
		b, err := c.CallContract(ctx, msg, blockNumber)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	return out, err
}

// Subscribe opens a log subscription against the first endpoint that
// carries a websocket URL, per spec.md §4.1's separate subscription
// channel for the streaming updater (C9).
func (t *Transport) Subscribe(ctx context.Context, q FilterQuery) (ethereum.Subscription, chan types.Log, error) {
	for i, ep := range t.endpoints {
		if ep.WSURL == "" {
			continue
		}
		wsClient, err := rpc.DialContext(ctx, ep.WSURL)
		if err != nil {
			t.log.Warn("chain: subscription dial failed, trying next endpoint", "endpoint", i, "err", err)
			continue
		}
		ec := ethclient.NewClient(wsClient)
		ch := make(chan types.Log, 256)
		sub, err := ec.SubscribeFilterLogs(ctx, q, ch)
		if err != nil {
			wsClient.Close()
			t.log.Warn("chain: subscribe failed, trying next endpoint", "endpoint", i, "err", err)
			continue
		}
		return sub, ch, nil
	}
	return nil, nil, fmt.Errorf("chain: subscribe: %w", poolerr.ErrTransport)
}

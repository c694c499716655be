// Package stream implements the Streaming Updater (C9): bootstrap
// catch-up to the first live event, then continuous draining of a
// deduplicated log subscription with a heartbeat/stall watchdog.
package stream

import (
	"context"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/poolmirror/engine/address"
	"github.com/poolmirror/engine/metrics"
	"github.com/poolmirror/engine/pool"
)

// heartbeatInterval/maxMissedPings/stallTimeout/reconnectDelay
// implement spec.md §4.9's connection-health policy. The subscription
// itself is carried over the websocket connection go-ethereum's rpc
// package dials for a ws:// endpoint (gorilla/websocket underneath);
// the heartbeat is a lightweight JSON-RPC round trip rather than a raw
// ping frame, since ethclient.Client does not expose frame-level
// control.
const (
	heartbeatInterval = 30 * time.Second
	maxMissedPings    = 3
	stallTimeout      = 180 * time.Second
	reconnectDelay    = 2 * time.Second
)

// Registry is the subset of registry.Registry the streaming updater
// reads and advances.
type Registry interface {
	AllAddresses() []address.Address
	Topics() []address.Topic
	GetPool(addr address.Address) (pool.Pool, bool)
	LastProcessedBlock() uint64
	SetLastProcessedBlock(n uint64)
}

// Subscriber opens a log subscription and returns a channel of raw
// logs plus an error channel signaling subscription death, along with
// a ping function used for the heartbeat.
type Subscriber interface {
	Subscribe(ctx context.Context, addrs []address.Address, topics []address.Topic) (logs <-chan types.Log, errs <-chan error, unsubscribe func(), err error)
	Ping(ctx context.Context) error
}

// CatchUp is the C8-style historical backfill this package delegates
// to for the bootstrap window [from, throughBlock], per spec.md §4.9.
type CatchUp func(ctx context.Context, from, throughBlock uint64) error

// Config parameterizes an Updater.
type Config struct {
	Registry   Registry
	Subscriber Subscriber
	CatchUp    CatchUp
	ToEventLog func(types.Log) address.Log
	Log        log.Logger

	// ChainID labels Metrics series; Metrics may be nil.
	ChainID uint64
	Metrics *metrics.Ingestion
}

// Updater runs the streaming ingestion loop of spec.md §4.9.
type Updater struct {
	cfg        Config
	chainLabel string
}

func New(cfg Config) *Updater {
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	return &Updater{cfg: cfg, chainLabel: strconv.FormatUint(cfg.ChainID, 10)}
}

// Run connects, catches up to the first observed event, then drains
// the subscription until ctx is cancelled, reconnecting on failure.
func (u *Updater) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := u.runOnce(ctx); err != nil {
			u.cfg.Log.Warn("stream: connection lost, reconnecting", "delay", reconnectDelay, "err", err)
			if u.cfg.Metrics != nil {
				u.cfg.Metrics.Reconnects.WithLabelValues(u.chainLabel).Inc()
			}
		}
		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runOnce performs one connect -> catch-up -> drain cycle, returning
// when the subscription dies or a watchdog trip forces a reconnect.
func (u *Updater) runOnce(ctx context.Context) error {
	startBlock := u.cfg.Registry.LastProcessedBlock()

	logs, errs, unsubscribe, err := u.cfg.Subscriber.Subscribe(ctx, u.cfg.Registry.AllAddresses(), u.cfg.Registry.Topics())
	if err != nil {
		return err
	}
	defer unsubscribe()

	// Buffer events until the first arrives, then catch up from
	// startBlock+1 through its block, stopping before it, per
	// spec.md §4.9's re-anchoring protocol.
	var buffered []types.Log
	select {
	case first, ok := <-logs:
		if !ok {
			return errClosed
		}
		buffered = append(buffered, first)
		if err := u.cfg.CatchUp(ctx, startBlock+1, first.BlockNumber); err != nil {
			return err
		}
	case err := <-errs:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}

	for _, raw := range buffered {
		u.apply(raw)
	}

	return u.drain(ctx, logs, errs)
}

// drain forwards subscription events until it dies or a stall/missed
// heartbeat trips the watchdog.
func (u *Updater) drain(ctx context.Context, logs <-chan types.Log, errs <-chan error) error {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	lastEvent := time.Now()
	missedPings := 0

	for {
		select {
		case raw, ok := <-logs:
			if !ok {
				return errClosed
			}
			lastEvent = time.Now()
			u.apply(raw)
		case err := <-errs:
			return err
		case <-ticker.C:
			if time.Since(lastEvent) > stallTimeout {
				return errStalled
			}
			pingCtx, cancel := context.WithTimeout(ctx, heartbeatInterval/3)
			err := u.cfg.Subscriber.Ping(pingCtx)
			cancel()
			if err != nil {
				missedPings++
				if u.cfg.Metrics != nil {
					u.cfg.Metrics.HeartbeatMisses.WithLabelValues(u.chainLabel).Inc()
				}
				if missedPings >= maxMissedPings {
					return errUnresponsive
				}
				continue
			}
			missedPings = 0
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (u *Updater) apply(raw types.Log) {
	l := u.cfg.ToEventLog(raw)
	p, ok := u.cfg.Registry.GetPool(l.Address)
	if !ok {
		return
	}
	if err := p.ApplyLog(l); err != nil {
		u.cfg.Log.Error("stream: apply_log failed, skipping event", "pool", l.Address, "block", l.BlockNumber, "err", err)
		if u.cfg.Metrics != nil {
			u.cfg.Metrics.ApplyErrors.WithLabelValues(u.chainLabel).Inc()
		}
		return
	}
	if u.cfg.Metrics != nil {
		u.cfg.Metrics.LogsApplied.WithLabelValues(u.chainLabel).Inc()
	}
	if l.BlockNumber > u.cfg.Registry.LastProcessedBlock() {
		u.cfg.Registry.SetLastProcessedBlock(l.BlockNumber)
		if u.cfg.Metrics != nil {
			u.cfg.Metrics.Cursor.WithLabelValues(u.chainLabel).Set(float64(l.BlockNumber))
		}
	}
}

type streamError string

func (e streamError) Error() string { return string(e) }

const (
	errClosed       streamError = "stream: subscription channel closed"
	errStalled      streamError = "stream: no events within stall timeout"
	errUnresponsive streamError = "stream: endpoint unresponsive to heartbeat"
)

// Package hist implements the Historical Updater (C8): the bounded
// batch getLogs polling loop that drives a registry's
// last_processed_block cursor forward from bootstrap to chain head.
package hist

import (
	"context"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/time/rate"

	"github.com/poolmirror/engine/address"
	"github.com/poolmirror/engine/metrics"
	"github.com/poolmirror/engine/pool"
)

// Registry is the subset of registry.Registry the updater reads and
// advances.
type Registry interface {
	AllAddresses() []address.Address
	Topics() []address.Topic
	GetPool(addr address.Address) (pool.Pool, bool)
	LastProcessedBlock() uint64
	SetLastProcessedBlock(n uint64)
}

// LogFetcher performs the actual getLogs RPC call; callers supply this
// directly (rather than threading chain.Transport's concrete
// FilterQuery type through this package) so hist stays decoupled from
// chain's go-ethereum dependency surface.
type LogFetcher func(ctx context.Context, addrs []address.Address, topics []address.Topic, from, to uint64) ([]types.Log, error)

// LatestBlockFetcher fetches the current chain head.
type LatestBlockFetcher func(ctx context.Context) (uint64, error)

// Config parameterizes an Updater.
type Config struct {
	Registry     Registry
	FetchLogs    LogFetcher
	FetchHead    LatestBlockFetcher
	ToEventLog   func(types.Log) address.Log
	MaxBatch     uint64
	PollInterval time.Duration
	Log          log.Logger

	// ChainID labels Metrics series; Metrics may be nil, in which case
	// no metrics are recorded.
	ChainID uint64
	Metrics *metrics.Ingestion
}

// Updater runs the historical catch-up loop of spec.md §4.8.
type Updater struct {
	cfg        Config
	limiter    *rate.Limiter
	chainLabel string
}

// minBackoff/maxBackoff bound the exponential backoff applied to
// LatestBlock failures, per spec.md §4.8.
const (
	minBackoff = 50 * time.Millisecond
	maxBackoff = 500 * time.Millisecond
)

// New constructs an Updater. A golang.org/x/time/rate.Limiter paces
// getLogs calls at one batch per PollInterval as a courtesy to RPC
// providers; it does not replace the explicit backoff-on-failure loop
// below.
func New(cfg Config) *Updater {
	if cfg.MaxBatch == 0 {
		cfg.MaxBatch = 2000
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = minBackoff
	}
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	return &Updater{
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Every(cfg.PollInterval), 1),
		chainLabel: strconv.FormatUint(cfg.ChainID, 10),
	}
}

// Run executes the loop of spec.md §4.8 until ctx is cancelled.
func (u *Updater) Run(ctx context.Context) error {
	backoff := minBackoff
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		head, err := u.cfg.FetchHead(ctx)
		if err != nil {
			u.cfg.Log.Warn("hist: fetch head failed, backing off", "backoff", backoff, "err", err)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = minBackoff

		cursor := u.cfg.Registry.LastProcessedBlock()
		if cursor >= head {
			if !sleepCtx(ctx, minBackoff) {
				return ctx.Err()
			}
			continue
		}

		for cursor < head {
			if err := ctx.Err(); err != nil {
				return err
			}
			batchEnd := cursor + u.cfg.MaxBatch - 1
			if batchEnd > head {
				batchEnd = head
			}

			if err := u.limiter.Wait(ctx); err != nil {
				return err
			}

			addrs := u.cfg.Registry.AllAddresses()
			topics := u.cfg.Registry.Topics()
			logs, err := u.cfg.FetchLogs(ctx, addrs, topics, cursor+1, batchEnd)
			if err != nil {
				u.cfg.Log.Warn("hist: get_logs failed, retrying without advancing cursor", "from", cursor+1, "to", batchEnd, "err", err)
				if !sleepCtx(ctx, backoff) {
					return ctx.Err()
				}
				backoff = nextBackoff(backoff)
				continue
			}

			for _, raw := range logs {
				l := u.cfg.ToEventLog(raw)
				p, ok := u.cfg.Registry.GetPool(l.Address)
				if !ok {
					continue
				}
				// ApplyLog errors are logged and skipped; per spec.md §4.8
				// and the §9 open question, the cursor still advances past
				// the offending event rather than stalling the pipeline on
				// one bad pool.
				if err := p.ApplyLog(l); err != nil {
					u.cfg.Log.Error("hist: apply_log failed, skipping event", "pool", l.Address, "block", l.BlockNumber, "err", err)
					if u.cfg.Metrics != nil {
						u.cfg.Metrics.ApplyErrors.WithLabelValues(u.chainLabel).Inc()
					}
					continue
				}
				if u.cfg.Metrics != nil {
					u.cfg.Metrics.LogsApplied.WithLabelValues(u.chainLabel).Inc()
				}
			}

			u.cfg.Registry.SetLastProcessedBlock(batchEnd)
			if u.cfg.Metrics != nil {
				u.cfg.Metrics.Cursor.WithLabelValues(u.chainLabel).Set(float64(batchEnd))
			}
			cursor = batchEnd + 1
		}
	}
}

func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

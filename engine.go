// Package engine wires the per-chain pool mirror and quote surface
// together: a caller populates ChainConfig/EngineConfig, and Engine
// starts the ingestion tasks spec.md §5 describes (one historical OR
// streaming updater per chain, never both).
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/poolmirror/engine/address"
	"github.com/poolmirror/engine/chain"
	"github.com/poolmirror/engine/ingest/dedup"
	"github.com/poolmirror/engine/ingest/hist"
	"github.com/poolmirror/engine/ingest/stream"
	"github.com/poolmirror/engine/metrics"
	"github.com/poolmirror/engine/multichain"
	"github.com/poolmirror/engine/quote"
	"github.com/poolmirror/engine/registry"
	"github.com/poolmirror/engine/token"
)

// IngestMode selects which of the two updater tasks a chain runs.
// spec.md §5: "historical updater OR streaming updater, never both at
// once".
type IngestMode uint8

const (
	ModeHistorical IngestMode = iota
	ModeStreaming
)

// ChainConfig is the caller-supplied bootstrap configuration for one
// chain. Loading this from a file is out of scope (spec.md §1
// Non-goals); the caller is expected to populate it directly.
type ChainConfig struct {
	ChainID   uint64
	Endpoints []chain.Endpoint
	Mode      IngestMode
	MaxBatch  uint64
}

// EngineConfig is the top-level caller-supplied configuration.
type EngineConfig struct {
	Chains []ChainConfig
	Log    log.Logger
}

// Engine owns the multichain registry and the per-chain ingestion
// tasks started on Run.
type Engine struct {
	cfg      EngineConfig
	chains   *multichain.Registry
	quote    *quote.Processor
	log      log.Logger
	registry *prometheus.Registry
	metrics  *metrics.Ingestion

	mu         sync.Mutex
	dedups     map[uint64]*dedup.Deduplicator
	transports map[uint64]*chain.Transport
}

// New constructs an Engine. Chain registries are created empty;
// callers populate pools/tokens before calling Run, or do so
// concurrently with AddPool/AddChain — both are safe under the
// registries' own locks.
func New(cfg EngineConfig) *Engine {
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	chains := multichain.New()
	for _, cc := range cfg.Chains {
		chains.AddChain(cc.ChainID, registry.New(), token.New(cc.ChainID, nil, cfg.Log))
	}
	promReg := prometheus.NewRegistry()
	return &Engine{
		cfg:        cfg,
		chains:     chains,
		quote:      quote.New(chains),
		log:        cfg.Log,
		dedups:     make(map[uint64]*dedup.Deduplicator),
		transports: make(map[uint64]*chain.Transport),
		registry:   promReg,
		metrics:    metrics.NewIngestion(promReg),
	}
}

// Chains exposes the multichain registry for pool/token bootstrap.
func (e *Engine) Chains() *multichain.Registry { return e.chains }

// Quote exposes the chain-scoped quote processor.
func (e *Engine) Quote() *quote.Processor { return e.quote }

// Metrics exposes the prometheus gatherer backing this engine's
// ingestion counters, for a caller to serve over HTTP.
func (e *Engine) Metrics() prometheus.Gatherer { return e.registry }

// Run dials every configured chain's transport and starts its
// ingestion task. Chains dial and run concurrently under an
// errgroup.Group: a dial failure on one chain cancels ctx for the
// rest, and Run returns once every chain's task has returned (which
// happens only on ctx cancellation or an unrecoverable dial error).
func (e *Engine) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, cc := range e.cfg.Chains {
		cc := cc
		g.Go(func() error {
			tr, err := chain.Dial(gctx, cc.Endpoints, e.log)
			if err != nil {
				return fmt.Errorf("engine: dial chain %d: %w", cc.ChainID, err)
			}
			e.mu.Lock()
			e.transports[cc.ChainID] = tr
			e.mu.Unlock()

			reg, ok := e.chains.Pools(cc.ChainID)
			if !ok {
				return fmt.Errorf("engine: chain %d not registered", cc.ChainID)
			}

			switch cc.Mode {
			case ModeHistorical:
				e.runHistorical(gctx, cc, tr, reg)
			case ModeStreaming:
				d := dedup.New(dedup.DefaultCapacity, 1024)
				e.mu.Lock()
				e.dedups[cc.ChainID] = d
				e.mu.Unlock()
				e.runStreaming(gctx, cc, tr, d, reg)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (e *Engine) runHistorical(ctx context.Context, cc ChainConfig, tr *chain.Transport, reg *registry.Registry) {
	u := hist.New(hist.Config{
		Registry:  reg,
		FetchHead: tr.LatestBlock,
		FetchLogs: func(ctx context.Context, addrs []address.Address, topics []address.Topic, from, to uint64) ([]types.Log, error) {
			return fetchLogsVia(ctx, tr, addrs, topics, from, to)
		},
		ToEventLog: toEventLog,
		MaxBatch:   cc.MaxBatch,
		Log:        e.log,
		ChainID:    cc.ChainID,
		Metrics:    e.metrics,
	})
	if err := u.Run(ctx); err != nil && ctx.Err() == nil {
		e.log.Error("engine: historical updater exited", "chain", cc.ChainID, "err", err)
	}
}

func (e *Engine) runStreaming(ctx context.Context, cc ChainConfig, tr *chain.Transport, d *dedup.Deduplicator, reg *registry.Registry) {
	u := stream.New(stream.Config{
		Registry:   reg,
		Subscriber: &transportSubscriber{tr: tr, dedup: d},
		CatchUp: func(ctx context.Context, from, through uint64) error {
			logs, err := fetchLogsVia(ctx, tr, reg.AllAddresses(), reg.Topics(), from, through)
			if err != nil {
				return err
			}
			applyFetchedLogs(logs, reg, e.log, e.metrics, cc.ChainID, "stream")
			return nil
		},
		ToEventLog: toEventLog,
		Log:        e.log,
		ChainID:    cc.ChainID,
		Metrics:    e.metrics,
	})
	if err := u.Run(ctx); err != nil && ctx.Err() == nil {
		e.log.Error("engine: streaming updater exited", "chain", cc.ChainID, "err", err)
	}
}

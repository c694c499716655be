package engine

import (
	"context"
	"math/big"
	"strconv"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/poolmirror/engine/address"
	"github.com/poolmirror/engine/chain"
	"github.com/poolmirror/engine/ingest/dedup"
	"github.com/poolmirror/engine/metrics"
	"github.com/poolmirror/engine/registry"
)

// fetchLogsVia adapts chain.Transport.GetLogs to the (addrs, topics,
// from, to) shape hist.LogFetcher and stream's catch-up expect.
func fetchLogsVia(ctx context.Context, tr *chain.Transport, addrs []address.Address, topics []address.Topic, from, to uint64) ([]types.Log, error) {
	q := chain.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: addrs,
	}
	if len(topics) > 0 {
		q.Topics = [][]gethcommon.Hash{topics}
	}
	return tr.GetLogs(ctx, q)
}

// toEventLog converts a go-ethereum types.Log into this module's
// transport-agnostic address.Log.
func toEventLog(l types.Log) address.Log {
	topics := make([]address.Topic, len(l.Topics))
	for i, t := range l.Topics {
		topics[i] = t
	}
	return address.Log{
		Address:     l.Address,
		Topics:      topics,
		Data:        l.Data,
		BlockNumber: l.BlockNumber,
		TxIndex:     uint(l.TxIndex),
		LogIndex:    uint(l.Index),
		TxHash:      l.TxHash,
	}
}

// transportSubscriber adapts chain.Transport to stream.Subscriber,
// routing every raw log through the chain's Deduplicator (C7) before
// handing it to the streaming updater — the shared deduplicated
// channel spec.md §5 describes multiple per-endpoint subscription
// tasks feeding into.
type transportSubscriber struct {
	tr    *chain.Transport
	dedup *dedup.Deduplicator
}

func (s *transportSubscriber) Subscribe(ctx context.Context, addrs []address.Address, topics []address.Topic) (<-chan types.Log, <-chan error, func(), error) {
	q := chain.FilterQuery{Addresses: addrs}
	if len(topics) > 0 {
		q.Topics = [][]gethcommon.Hash{topics}
	}
	sub, ch, err := s.tr.Subscribe(ctx, q)
	if err != nil {
		return nil, nil, nil, err
	}

	out := make(chan types.Log, cap(s.dedup.Out))
	go func() {
		defer close(out)
		for raw := range ch {
			if err := s.dedup.Send(toEventLog(raw)); err != nil {
				continue // duplicate or unkeyed, per spec.md §4.7
			}
			<-s.dedup.Out // dedup already queued it; forward the typed log
			select {
			case out <- raw:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, sub.Err(), sub.Unsubscribe, nil
}

func (s *transportSubscriber) Ping(ctx context.Context) error {
	_, err := s.tr.LatestBlock(ctx)
	return err
}

// applyFetchedLogs decodes and applies a batch of fetched logs against
// reg, mirroring ingest/hist.Updater.Run's apply loop — used by the
// streaming updater's C8-style bootstrap/reconnect catch-up (spec.md
// §4.9) so that window is backfilled exactly like the historical
// updater backfills its batches, not merely confirmed reachable.
func applyFetchedLogs(logs []types.Log, reg *registry.Registry, logger log.Logger, m *metrics.Ingestion, chainID uint64, source string) {
	chainLabel := strconv.FormatUint(chainID, 10)
	var maxBlock uint64
	for _, raw := range logs {
		l := toEventLog(raw)
		p, ok := reg.GetPool(l.Address)
		if !ok {
			continue
		}
		if err := p.ApplyLog(l); err != nil {
			logger.Error(source+": apply_log failed during catch-up, skipping event", "pool", l.Address, "block", l.BlockNumber, "err", err)
			if m != nil {
				m.ApplyErrors.WithLabelValues(chainLabel).Inc()
			}
			continue
		}
		if m != nil {
			m.LogsApplied.WithLabelValues(chainLabel).Inc()
		}
		if l.BlockNumber > maxBlock {
			maxBlock = l.BlockNumber
		}
	}
	if maxBlock > reg.LastProcessedBlock() {
		reg.SetLastProcessedBlock(maxBlock)
		if m != nil {
			m.Cursor.WithLabelValues(chainLabel).Set(float64(maxBlock))
		}
	}
}

package stream

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolmirror/engine/address"
	"github.com/poolmirror/engine/pool"
)

type fakeRegistry struct {
	mu     sync.Mutex
	pools  map[address.Address]pool.Pool
	cursor uint64
}

func (r *fakeRegistry) AllAddresses() []address.Address { return nil }
func (r *fakeRegistry) Topics() []address.Topic          { return nil }
func (r *fakeRegistry) GetPool(addr address.Address) (pool.Pool, bool) {
	p, ok := r.pools[addr]
	return p, ok
}
func (r *fakeRegistry) LastProcessedBlock() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}
func (r *fakeRegistry) SetLastProcessedBlock(n uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursor = n
}

type fakeSubscriber struct {
	logs chan types.Log
	errs chan error
}

func (s *fakeSubscriber) Subscribe(ctx context.Context, addrs []address.Address, topics []address.Topic) (<-chan types.Log, <-chan error, func(), error) {
	return s.logs, s.errs, func() {}, nil
}
func (s *fakeSubscriber) Ping(ctx context.Context) error { return nil }

func TestRun_CatchesUpThenAppliesBufferedAndLiveEvents(t *testing.T) {
	poolAddr := address.Address{0x01}
	mockPool := pool.NewMock(poolAddr, address.Address{0x10}, address.Address{0x20}, 997, 1000)
	reg := &fakeRegistry{pools: map[address.Address]pool.Pool{poolAddr: mockPool}}

	sub := &fakeSubscriber{logs: make(chan types.Log, 4), errs: make(chan error, 1)}

	var caughtUpFrom, caughtUpThrough uint64
	var mu sync.Mutex

	u := New(Config{
		Registry:   reg,
		Subscriber: sub,
		CatchUp: func(ctx context.Context, from, through uint64) error {
			mu.Lock()
			caughtUpFrom, caughtUpThrough = from, through
			mu.Unlock()
			return nil
		},
		ToEventLog: func(l types.Log) address.Log {
			return address.Log{Address: poolAddr, BlockNumber: l.BlockNumber}
		},
	})

	sub.logs <- types.Log{Address: poolAddr, BlockNumber: 10}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	go func() {
		time.Sleep(10 * time.Millisecond)
		sub.logs <- types.Log{Address: poolAddr, BlockNumber: 11}
	}()

	_ = u.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, uint64(1), caughtUpFrom)
	assert.Equal(t, uint64(10), caughtUpThrough)
	require.GreaterOrEqual(t, reg.LastProcessedBlock(), uint64(10))
}

func TestRun_ReconnectsOnSubscriptionError(t *testing.T) {
	reg := &fakeRegistry{pools: map[address.Address]pool.Pool{}}
	sub := &fakeSubscriber{logs: make(chan types.Log, 1), errs: make(chan error, 1)}
	sub.errs <- assertError{}

	u := New(Config{
		Registry:   reg,
		Subscriber: sub,
		CatchUp:    func(ctx context.Context, from, through uint64) error { return nil },
		ToEventLog: func(l types.Log) address.Log { return address.Log{} },
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := u.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type assertError struct{}

func (assertError) Error() string { return "subscription died" }

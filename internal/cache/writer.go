package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DurableStore is the external cache tier. The TTL is fixed at write time
// and never renewed by reads. Get reports absence without error.
type DurableStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
}

const (
	defaultQueueCapacity = 1024
	defaultWorkers       = 4
	writeTimeout         = 5 * time.Second
	readTimeout          = 5 * time.Second
)

type writeOp struct {
	key   string
	value string
}

// writeQueue dispatches durable-tier writes off the hot path. The queue
// is bounded: when full, new writes are dropped and counted rather than
// blocking ingestion.
type writeQueue struct {
	store   DurableStore
	ttl     time.Duration
	ops     chan writeOp
	dropped atomic.Uint64
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func newWriteQueue(store DurableStore, cfg Config, logger *zap.Logger) *writeQueue {
	capacity := cfg.QueueCapacity
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	q := &writeQueue{
		store:  store,
		ttl:    cfg.DurableTTL,
		ops:    make(chan writeOp, capacity),
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.run()
	}
	return q
}

func (q *writeQueue) enqueue(key, value string) {
	select {
	case q.ops <- writeOp{key: key, value: value}:
	default:
		n := q.dropped.Add(1)
		if n%100 == 1 {
			q.logger.Warn("durable write queue full, dropping writes", zap.Uint64("dropped_total", n))
		}
	}
}

func (q *writeQueue) run() {
	defer q.wg.Done()
	for op := range q.ops {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := q.store.Set(ctx, op.key, op.value, q.ttl)
		cancel()
		if err != nil {
			// At-most-once: the in-process tier already holds the value.
			q.logger.Error("durable cache write failed", zap.String("key", op.key), zap.Error(err))
		}
	}
}

func (q *writeQueue) droppedCount() uint64 {
	return q.dropped.Load()
}

func (q *writeQueue) close() {
	close(q.ops)
	q.wg.Wait()
}

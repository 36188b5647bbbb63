// Package cache holds the short-lived correlation state that lets a
// transaction event be enriched with the account snapshot current at
// roughly the same time. It is dual-tier: a fast in-process tier swept by
// a periodic cleanup, mirrored asynchronously into a durable store with
// its own, longer expiry.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"pumpscope/internal/model"
)

// ReservePair is the latest (virtual token, virtual SOL) reserve
// observation for a mint.
type ReservePair struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
}

// Stats reports entry counts per key space.
type Stats struct {
	Transactions   int
	Accounts       int
	LatestByMint   int
	LatestReserves int
	DroppedWrites  uint64
}

type txEntry struct {
	value    model.CpiLogEntry
	storedAt time.Time
}

type acctEntry struct {
	value    model.AccountSnapshot
	storedAt time.Time
}

// Config sets the cache's durable-tier behavior.
type Config struct {
	DurableTTL    time.Duration
	QueueCapacity int
	Workers       int
}

// Cache is the correlation cache. Each key space carries its own lock so
// the two stream tasks and the cleanup task never contend across spaces.
type Cache struct {
	txMu         sync.RWMutex
	transactions map[string]txEntry

	acctMu   sync.RWMutex
	accounts map[string]acctEntry

	mintMu         sync.RWMutex
	latestByMint   map[string]model.LatestPayload
	latestReserves map[string]ReservePair

	store  DurableStore
	writer *writeQueue
	logger *zap.Logger
}

// New builds a Cache. store may be nil, in which case the durable tier is
// disabled and the cache is in-process only.
func New(store DurableStore, cfg Config, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{
		transactions:   make(map[string]txEntry),
		accounts:       make(map[string]acctEntry),
		latestByMint:   make(map[string]model.LatestPayload),
		latestReserves: make(map[string]ReservePair),
		logger:         logger,
	}
	if store != nil {
		c.store = store
		c.writer = newWriteQueue(store, cfg, logger)
	}
	return c
}

// PutTransaction stores an enriched transaction by signature.
// Last write wins. The durable mirror is keyed "tx:<signature>" and is
// written in the background; its failure never affects this tier.
func (c *Cache) PutTransaction(signature string, entry model.CpiLogEntry) {
	c.txMu.Lock()
	c.transactions[signature] = txEntry{value: entry, storedAt: time.Now()}
	c.txMu.Unlock()

	c.mirror("tx:"+signature, entry)
}

// GetTransaction returns the enriched transaction for a signature. An
// in-process miss falls through to the durable tier, whose entries
// outlive the swept in-process ones.
func (c *Cache) GetTransaction(signature string) (model.CpiLogEntry, bool) {
	c.txMu.RLock()
	e, ok := c.transactions[signature]
	c.txMu.RUnlock()
	if ok {
		return e.value, true
	}

	var entry model.CpiLogEntry
	if c.readDurable("tx:"+signature, &entry) {
		return entry, true
	}
	return model.CpiLogEntry{}, false
}

// PutAccount stores a decoded account snapshot by pubkey.
func (c *Cache) PutAccount(pubkey string, snapshot model.AccountSnapshot) {
	c.acctMu.Lock()
	c.accounts[pubkey] = acctEntry{value: snapshot, storedAt: time.Now()}
	c.acctMu.Unlock()

	c.mirror(pubkey, snapshot)
}

// GetAccount returns the cached snapshot for a pubkey, falling through
// to the durable tier on an in-process miss.
func (c *Cache) GetAccount(pubkey string) (model.AccountSnapshot, bool) {
	c.acctMu.RLock()
	e, ok := c.accounts[pubkey]
	c.acctMu.RUnlock()
	if ok {
		return e.value, true
	}

	var snapshot model.AccountSnapshot
	if c.readDurable(pubkey, &snapshot) {
		return snapshot, true
	}
	return model.AccountSnapshot{}, false
}

// SetLatestTransaction records an enriched transaction as the most
// recent payload for a mint. Entries are only ever superseded, never
// deleted.
func (c *Cache) SetLatestTransaction(mint string, entry model.CpiLogEntry) {
	c.mintMu.Lock()
	c.latestByMint[mint] = model.LatestPayload{Transaction: &entry, UpdatedAt: time.Now()}
	c.mintMu.Unlock()
}

// SetLatestAccount records a decoded snapshot as the most recent payload
// for a mint.
func (c *Cache) SetLatestAccount(mint string, snapshot model.AccountSnapshot) {
	c.mintMu.Lock()
	c.latestByMint[mint] = model.LatestPayload{Account: &snapshot, UpdatedAt: time.Now()}
	c.mintMu.Unlock()
}

// LatestByMint returns the most recent enriched payload for a mint.
func (c *Cache) LatestByMint(mint string) (model.LatestPayload, bool) {
	c.mintMu.RLock()
	e, ok := c.latestByMint[mint]
	c.mintMu.RUnlock()
	return e, ok
}

// SetLatestReserves records the most recent reserve pair for a mint.
func (c *Cache) SetLatestReserves(mint string, pair ReservePair) {
	c.mintMu.Lock()
	c.latestReserves[mint] = pair
	c.mintMu.Unlock()
}

// LatestReserves returns the most recent reserve pair for a mint.
func (c *Cache) LatestReserves(mint string) (ReservePair, bool) {
	c.mintMu.RLock()
	pair, ok := c.latestReserves[mint]
	c.mintMu.RUnlock()
	return pair, ok
}

// Cleanup removes in-process transaction and account entries older than
// maxAge. The latest-by-mint indexes are supersede-only and the durable
// tier expires on its own; neither is touched here.
func (c *Cache) Cleanup(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)
	var txRemoved, acctRemoved int

	c.txMu.Lock()
	for key, e := range c.transactions {
		if e.storedAt.Before(cutoff) {
			delete(c.transactions, key)
			txRemoved++
		}
	}
	c.txMu.Unlock()

	c.acctMu.Lock()
	for key, e := range c.accounts {
		if e.storedAt.Before(cutoff) {
			delete(c.accounts, key)
			acctRemoved++
		}
	}
	c.acctMu.Unlock()

	if txRemoved > 0 || acctRemoved > 0 {
		c.logger.Debug("cache cleanup",
			zap.Int("transactions_removed", txRemoved),
			zap.Int("accounts_removed", acctRemoved),
		)
	}
}

// Stats returns current entry counts.
func (c *Cache) Stats() Stats {
	var s Stats
	c.txMu.RLock()
	s.Transactions = len(c.transactions)
	c.txMu.RUnlock()
	c.acctMu.RLock()
	s.Accounts = len(c.accounts)
	c.acctMu.RUnlock()
	c.mintMu.RLock()
	s.LatestByMint = len(c.latestByMint)
	s.LatestReserves = len(c.latestReserves)
	c.mintMu.RUnlock()
	if c.writer != nil {
		s.DroppedWrites = c.writer.droppedCount()
	}
	return s
}

// Close drains the background writer. No Put may follow.
func (c *Cache) Close() {
	if c.writer != nil {
		c.writer.close()
	}
}

// readDurable fetches and decodes a durable-tier entry. The entry is
// returned without repopulating the in-process tier, keeping its TTL
// fixed at the original write.
func (c *Cache) readDurable(key string, out interface{}) bool {
	if c.store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()

	value, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Error("durable cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		c.logger.Error("decode durable cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *Cache) mirror(key string, payload interface{}) {
	if c.writer == nil {
		return
	}
	value, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("marshal cache payload", zap.String("key", key), zap.Error(err))
		return
	}
	c.writer.enqueue(key, string(value))
}

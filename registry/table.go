// Package registry multiplexes many NBSP endpoints over one transport,
// keyed by a caller-chosen conversation id. A server accepting several
// logical streams on a shared UDPChannel looks the right *nbsp.State up
// by id on every inbound datagram instead of keeping its own map.
package registry

import (
	"hash/fnv"
	"sync"

	"github.com/xtaci/nbsp"
)

// shardCount is fixed rather than configurable: plenty for the expected
// cardinality (conversations per process, not per request), and avoids a
// sizing knob nobody needs to turn.
const shardCount = 16

// Entry bundles one registered endpoint's state with the buffer Send
// needs, so Table.Load/Store never hands back a *State without its
// matching buffer.
type Entry struct {
	State  *nbsp.State
	Buffer []uint32
}

type shard struct {
	mu    sync.RWMutex
	items map[uint32]*Entry
}

// Table is a sharded map from conversation id to Entry. To avoid lock
// contention on a single map under concurrent lookups, the table is split
// into shardCount independent shards, each with its own RWMutex, selected
// by an FNV-1a hash of the id rather than the id itself, so consecutive
// ids (the common case for an auto-incrementing allocator) don't all pile
// onto the same shard.
type Table struct {
	shards [shardCount]*shard
}

// NewTable builds an empty Table.
func NewTable() *Table {
	t := &Table{}
	for i := range t.shards {
		t.shards[i] = &shard{items: make(map[uint32]*Entry)}
	}
	return t
}

func (t *Table) shardFor(conv uint32) *shard {
	h := fnv.New32a()
	h.Write([]byte{byte(conv), byte(conv >> 8), byte(conv >> 16), byte(conv >> 24)})
	return t.shards[h.Sum32()%shardCount]
}

// Store registers an endpoint under conv, replacing any prior entry.
func (t *Table) Store(conv uint32, entry *Entry) {
	sh := t.shardFor(conv)
	sh.mu.Lock()
	sh.items[conv] = entry
	sh.mu.Unlock()
}

// Load looks up the endpoint registered under conv.
func (t *Table) Load(conv uint32) (*Entry, bool) {
	sh := t.shardFor(conv)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.items[conv]
	return e, ok
}

// LoadOrStore returns the entry already registered under conv if one
// exists, otherwise stores and returns newEntry. newEntry is evaluated
// eagerly: it must be cheap to build and discard, mirroring the cost
// profile of sync.Map.LoadOrStore.
func (t *Table) LoadOrStore(conv uint32, newEntry *Entry) (*Entry, bool) {
	sh := t.shardFor(conv)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok := sh.items[conv]; ok {
		return e, true
	}
	sh.items[conv] = newEntry
	return newEntry, false
}

// Delete removes the endpoint registered under conv, if any.
func (t *Table) Delete(conv uint32) {
	sh := t.shardFor(conv)
	sh.mu.Lock()
	delete(sh.items, conv)
	sh.mu.Unlock()
}

// Len returns the total number of registered endpoints across all shards.
func (t *Table) Len() int {
	n := 0
	for _, sh := range t.shards {
		sh.mu.RLock()
		n += len(sh.items)
		sh.mu.RUnlock()
	}
	return n
}

// RangeFunc is called for every entry during Range. RLock is held for all
// calls against a given shard, so it sees a consistent view of that
// shard, but not a snapshot across shards. Return false to stop early.
type RangeFunc func(conv uint32, entry *Entry) bool

// Range calls fn for every registered entry, shard by shard.
func (t *Table) Range(fn RangeFunc) {
	for _, sh := range t.shards {
		sh.mu.RLock()
		for conv, e := range sh.items {
			if !fn(conv, e) {
				sh.mu.RUnlock()
				return
			}
		}
		sh.mu.RUnlock()
	}
}

// FlushAll calls nbsp.Flush concurrently on every registered endpoint and
// waits for all of them to quiesce. Useful for a clean shutdown of a
// server holding many multiplexed channels.
func (t *Table) FlushAll(channelFor func(conv uint32) nbsp.Channel) {
	var wg sync.WaitGroup
	t.Range(func(conv uint32, e *Entry) bool {
		wg.Add(1)
		go func(conv uint32, e *Entry) {
			defer wg.Done()
			nbsp.Flush(channelFor(conv), e.State, e.Buffer)
		}(conv, e)
		return true
	})
	wg.Wait()
}

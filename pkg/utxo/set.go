package utxo

import (
	"github.com/btcsuite/btcd/wire"
	"github.com/dolthub/swiss"
)

const (
	// DefaultShards splits the set into independent swiss maps so a single
	// map never has to rehash hundreds of millions of entries at once.
	DefaultShards = 256

	// DefaultCapacity is the initial per-shard capacity. The live UTXO set
	// of a full mainnet run reaches tens of millions of entries, pre-sizing
	// avoids reallocation storms during long runs.
	DefaultCapacity = 1 << 16
)

// Entry is the stored side of an unspent output.
type Entry struct {
	Value  uint64 // output value in satoshi
	Height uint32 // block height the output was created at
}

// Set is an in-memory UTXO set keyed by outpoint. It has a single owner
// and is not safe for concurrent use.
type Set struct {
	shards []*swiss.Map[wire.OutPoint, Entry]
	mask   uint64
	hasher Hasher
	length int
}

// Option customizes a Set.
type Option func(*config)

type config struct {
	shards   int
	capacity uint32
	hasher   Hasher
}

// WithHasher replaces the shard routing hash.
func WithHasher(h Hasher) Option {
	return func(c *config) { c.hasher = h }
}

// WithShards sets the shard count, must be a power of two.
func WithShards(n int) Option {
	return func(c *config) { c.shards = n }
}

// WithCapacity sets the expected total number of live entries, used to
// pre-size the shards.
func WithCapacity(n uint32) Option {
	return func(c *config) { c.capacity = n }
}

// NewSet returns an empty UTXO set.
func NewSet(opts ...Option) *Set {
	cfg := &config{
		shards:   DefaultShards,
		capacity: DefaultShards * DefaultCapacity,
		hasher:   XXHasher,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	perShard := cfg.capacity / uint32(cfg.shards)
	if perShard == 0 {
		perShard = 1
	}

	shards := make([]*swiss.Map[wire.OutPoint, Entry], cfg.shards)
	for i := range shards {
		// the swiss map uses a lot less memory than the standard map
		shards[i] = swiss.NewMap[wire.OutPoint, Entry](perShard)
	}

	return &Set{
		shards: shards,
		mask:   uint64(cfg.shards - 1),
		hasher: cfg.hasher,
	}
}

func (s *Set) shard(op wire.OutPoint) *swiss.Map[wire.OutPoint, Entry] {
	return s.shards[s.hasher(op)&s.mask]
}

// Insert adds the outpoint to the set. A duplicate key is overwritten,
// last write wins; the previous entry is reported so callers can flag the
// anomaly.
func (s *Set) Insert(op wire.OutPoint, value uint64, height uint32) (prev Entry, replaced bool) {
	m := s.shard(op)
	prev, replaced = m.Get(op)
	if !replaced {
		s.length++
	}

	m.Put(op, Entry{Value: value, Height: height})
	return prev, replaced
}

// Lookup returns the entry for the outpoint if it is unspent.
func (s *Set) Lookup(op wire.OutPoint) (Entry, bool) {
	return s.shard(op).Get(op)
}

// Remove deletes the outpoint from the set, returning the removed entry.
func (s *Set) Remove(op wire.OutPoint) (Entry, bool) {
	m := s.shard(op)
	entry, ok := m.Get(op)
	if !ok {
		return Entry{}, false
	}

	m.Delete(op)
	s.length--
	return entry, true
}

// Len returns the number of live entries.
func (s *Set) Len() int {
	return s.length
}

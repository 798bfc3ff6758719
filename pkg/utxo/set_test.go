package utxo

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOutpoint(t *testing.T, seed byte, index uint32) wire.OutPoint {
	raw := make([]byte, chainhash.HashSize)
	raw[0] = seed

	hash, err := chainhash.NewHash(raw)
	require.NoError(t, err)

	return wire.OutPoint{Hash: *hash, Index: index}
}

func TestShouldRoundTripInsertLookupRemove(t *testing.T) {
	// arrange
	set := NewSet(WithCapacity(16))
	op := newOutpoint(t, 1, 0)

	// act
	set.Insert(op, 5000, 10)

	// assert
	entry, ok := set.Lookup(op)
	require.True(t, ok)
	assert.Equal(t, uint64(5000), entry.Value)
	assert.Equal(t, uint32(10), entry.Height)
	assert.Equal(t, 1, set.Len())

	removed, ok := set.Remove(op)
	require.True(t, ok)
	assert.Equal(t, entry, removed)
	assert.Equal(t, 0, set.Len())

	_, ok = set.Lookup(op)
	assert.False(t, ok)
}

func TestShouldOverwriteOnDuplicateInsert(t *testing.T) {
	// arrange
	set := NewSet(WithCapacity(16))
	op := newOutpoint(t, 2, 3)
	set.Insert(op, 1000, 5)

	// act
	prev, replaced := set.Insert(op, 2000, 8)

	// assert last write wins
	require.True(t, replaced)
	assert.Equal(t, Entry{Value: 1000, Height: 5}, prev)

	entry, ok := set.Lookup(op)
	require.True(t, ok)
	assert.Equal(t, uint64(2000), entry.Value)
	assert.Equal(t, uint32(8), entry.Height)
	assert.Equal(t, 1, set.Len())
}

func TestShouldMissOnRemovingAbsentOutpoint(t *testing.T) {
	// arrange
	set := NewSet(WithCapacity(16))

	// act
	_, ok := set.Remove(newOutpoint(t, 3, 0))

	// assert
	assert.False(t, ok)
	assert.Equal(t, 0, set.Len())
}

func TestShouldDistinguishIndexesOfSameTransaction(t *testing.T) {
	// arrange
	set := NewSet(WithCapacity(16))
	first := newOutpoint(t, 4, 0)
	second := newOutpoint(t, 4, 1)

	// act
	set.Insert(first, 100, 1)
	set.Insert(second, 200, 1)

	// assert
	entry, ok := set.Lookup(first)
	require.True(t, ok)
	assert.Equal(t, uint64(100), entry.Value)

	entry, ok = set.Lookup(second)
	require.True(t, ok)
	assert.Equal(t, uint64(200), entry.Value)
	assert.Equal(t, 2, set.Len())
}

func TestShouldRouteConsistentlyWithCustomHasher(t *testing.T) {
	// arrange, a deliberately terrible hash still has to route every
	// operation of a key to the same shard
	set := NewSet(WithCapacity(16), WithHasher(func(op wire.OutPoint) uint64 {
		return uint64(op.Index)
	}))

	ops := make([]wire.OutPoint, 0, 64)
	for i := uint32(0); i < 64; i++ {
		ops = append(ops, newOutpoint(t, byte(i), i))
	}

	// act
	for i, op := range ops {
		set.Insert(op, uint64(i)*10, uint32(i))
	}

	// assert
	assert.Equal(t, len(ops), set.Len())
	for i, op := range ops {
		entry, ok := set.Lookup(op)
		require.True(t, ok)
		assert.Equal(t, uint64(i)*10, entry.Value)
	}
}

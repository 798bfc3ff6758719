package utxo

import (
	"github.com/btcsuite/btcd/wire"
	"github.com/cespare/xxhash"
)

// Hasher maps an outpoint to a 64-bit shard routing value. Chain data is
// trusted, so a fast non-cryptographic hash is enough; any implementation
// can be swapped in without touching the Set contract.
type Hasher func(op wire.OutPoint) uint64

// XXHasher hashes the txid with xxHash64 and folds in the output index.
func XXHasher(op wire.OutPoint) uint64 {
	return xxhash.Sum64(op.Hash[:]) ^ uint64(op.Index)
}

package stream

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of block hashes prefetched per RPC batch.
const DefaultBatchSize = 500

// Callback is the lifecycle contract a dump implements. The driver calls
// OnStart once, OnBlock once per block with strictly increasing heights,
// and OnComplete once at the end of the stream.
type Callback interface {
	OnStart(coin string, height uint32) error
	OnBlock(block *wire.MsgBlock, height uint32) error
	OnComplete(height uint32) error
}

// BlockSource provides the blocks to replay, see Client.
type BlockSource interface {
	BestHeight() (uint32, error)
	BlockHashes(from, to uint32) ([]*chainhash.Hash, error)
	Block(hash *chainhash.Hash) (*wire.MsgBlock, error)
}

// Driver replays a height range from a block source through a callback,
// sequentially and in ascending order. Each block is fully processed
// before the next one is fetched.
type Driver struct {
	source    BlockSource
	callback  Callback
	logger    *zap.Logger
	batchSize uint32
}

// NewDriver returns a driver over the given source and callback.
func NewDriver(source BlockSource, callback Callback, logger *zap.Logger) *Driver {
	return &Driver{
		source:    source,
		callback:  callback,
		logger:    logger,
		batchSize: DefaultBatchSize,
	}
}

// Run replays blocks [start, end]. An end of zero means the chain tip.
// Any callback or fetch error aborts the run; there is no retry.
func (d *Driver) Run(coin string, start, end uint32) error {
	if end == 0 {
		best, err := d.source.BestHeight()
		if err != nil {
			return err
		}
		end = best
	}
	if start > end {
		return errors.Errorf("start height %d is beyond end height %d", start, end)
	}

	if err := d.callback.OnStart(coin, start); err != nil {
		return err
	}

	for from := start; from <= end; from += d.batchSize {
		to := from + d.batchSize - 1
		if to > end || to < from { // overflow guard
			to = end
		}

		hashes, err := d.source.BlockHashes(from, to)
		if err != nil {
			return err
		}

		for i, hash := range hashes {
			height := from + uint32(i)
			block, err := d.source.Block(hash)
			if err != nil {
				return err
			}

			if err := d.callback.OnBlock(block, height); err != nil {
				return err
			}
		}

		d.logger.Info("replayed blocks", zap.Uint32("through height", to))
	}

	return d.callback.OnComplete(end)
}

package dump

import (
	"context"

	"github.com/btcsuite/btcd/wire"
	"github.com/looplab/fsm"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/renlord/bitcoin-txodump/pkg/common"
	"github.com/renlord/bitcoin-txodump/pkg/feerate"
	"github.com/renlord/bitcoin-txodump/pkg/utxo"
)

// Lifecycle states of a dump run. Failures have no state of their own,
// they abort the run.
const (
	StateIdle      = "idle"
	StateStarted   = "started"
	StateRunning   = "running"
	StateCompleted = "completed"
)

const (
	eventStart    = "start"
	eventBlock    = "block"
	eventComplete = "complete"
)

// TXODump consumes a height-ordered block stream and dumps one record per
// spent transaction output. It owns the UTXO set, the line writer and the
// running counters; the external driver calls OnStart, OnBlock per block
// and OnComplete, strictly in that order and single-threaded.
type TXODump struct {
	folder   string
	writer   *LineWriter
	set      *utxo.Set
	machine  *fsm.FSM
	logger   *zap.Logger
	reporter Reporter

	startHeight uint32
	endHeight   uint32
	totals      common.Totals
}

// DumpOption customizes a TXODump.
type DumpOption func(*dumpConfig)

type dumpConfig struct {
	setOpts  []utxo.Option
	reporter Reporter
}

// WithSetOptions forwards options to the UTXO set, e.g. a custom hasher
// or an expected capacity.
func WithSetOptions(opts ...utxo.Option) DumpOption {
	return func(c *dumpConfig) { c.setOpts = append(c.setOpts, opts...) }
}

// WithReporter replaces the completion reporter.
func WithReporter(r Reporter) DumpOption {
	return func(c *dumpConfig) { c.reporter = r }
}

// NewTXODump creates the working file inside folder and an empty UTXO
// set. The folder must exist and be writable.
func NewTXODump(folder string, logger *zap.Logger, opts ...DumpOption) (*TXODump, error) {
	cfg := &dumpConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.reporter == nil {
		cfg.reporter = NewLogReporter(logger)
	}

	writer, err := NewLineWriter(folder)
	if err != nil {
		return nil, errors.Wrapf(err, "could not initialize TXODump with folder %s", folder)
	}

	machine := fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventStart, Src: []string{StateIdle}, Dst: StateStarted},
			{Name: eventBlock, Src: []string{StateStarted, StateRunning}, Dst: StateRunning},
			{Name: eventComplete, Src: []string{StateStarted, StateRunning}, Dst: StateCompleted},
		},
		fsm.Callbacks{},
	)

	return &TXODump{
		folder:   folder,
		writer:   writer,
		set:      utxo.NewSet(cfg.setOpts...),
		machine:  machine,
		logger:   logger,
		reporter: cfg.reporter,
	}, nil
}

// State returns the current lifecycle state.
func (d *TXODump) State() string {
	return d.machine.Current()
}

// OnStart begins a run at the given height.
func (d *TXODump) OnStart(coin string, height uint32) error {
	if err := d.machine.Event(context.Background(), eventStart); err != nil {
		return errors.Wrap(err, "invalid lifecycle transition")
	}

	d.startHeight = height
	d.logger.Info("starting txo dump",
		zap.String("coin", coin),
		zap.String("folder", d.folder),
		zap.Uint32("start height", height))

	loaded := d.loadUTXOSet()
	d.logger.Info("loaded utxos", zap.Int("count", loaded))
	return nil
}

// loadUTXOSet would resume the UTXO set of a previous run. There is no
// on-disk format for it yet, so every run starts from an empty set; this
// is a known limitation, not an error.
func (d *TXODump) loadUTXOSet() int {
	d.logger.Debug("utxo set resume not implemented, starting empty")
	return 0
}

// OnBlock processes one block. Heights must be strictly increasing across
// calls; the block is fully processed, including all writes, on return.
func (d *TXODump) OnBlock(block *wire.MsgBlock, height uint32) error {
	if err := d.machine.Event(context.Background(), eventBlock); err != nil {
		// the running state loops onto itself for every block after the
		// first, which the fsm reports as NoTransitionError
		if _, ok := err.(fsm.NoTransitionError); !ok {
			return errors.Wrap(err, "invalid lifecycle transition")
		}
	}

	d.logger.Debug("processing block", zap.Uint32("height", height))

	for _, tx := range block.Transactions {
		if err := d.processTx(tx, height); err != nil {
			return err
		}
	}

	d.totals.Blocks++
	d.totals.TxCount += uint64(len(block.Transactions))
	d.endHeight = height
	return nil
}

func (d *TXODump) processTx(tx *wire.MsgTx, height uint32) error {
	d.totals.InCount += uint64(len(tx.TxIn))
	d.totals.OutCount += uint64(len(tx.TxOut))

	// The fee rate is transaction-scoped, computed once before any of the
	// tx's inputs are removed from the set.
	rate := feerate.Calculate(tx, d.set)

	for _, input := range tx.TxIn {
		outpoint := input.PreviousOutPoint

		// coinbase txinput has previous index of 0xFFFFFFFF
		if outpoint.Index == wire.MaxPrevOutIndex {
			continue
		}

		entry, ok := d.set.Lookup(outpoint)
		if !ok {
			// output was never observed (e.g. pruned history), skip
			continue
		}

		record := common.SpendRecord{
			Height:  height,
			CoinAge: height - entry.Height,
			FeeRate: rate,
			Value:   entry.Value,
		}
		if err := d.writer.WriteRecord(record); err != nil {
			return err
		}

		d.set.Remove(outpoint)
	}

	txid := tx.TxHash()
	for i, output := range tx.TxOut {
		outpoint := wire.OutPoint{Hash: txid, Index: uint32(i)}
		if _, replaced := d.set.Insert(outpoint, uint64(output.Value), height); replaced {
			d.logger.Debug("duplicate utxo insertion, last write wins",
				zap.String("txid", txid.String()),
				zap.Int("index", i))
		}
	}

	return nil
}

// OnComplete finalizes the run: the working file is promoted to the final
// name and the totals are reported. A rename failure is unrecoverable.
func (d *TXODump) OnComplete(height uint32) error {
	if err := d.machine.Event(context.Background(), eventComplete); err != nil {
		return errors.Wrap(err, "invalid lifecycle transition")
	}

	d.endHeight = height
	if err := d.writer.Finalize(); err != nil {
		return err
	}

	d.reporter.Report(Summary{
		StartHeight: d.startHeight,
		EndHeight:   d.endHeight,
		Totals:      d.totals,
		LiveUTXOs:   d.set.Len(),
	})
	return nil
}

// Discard releases the writer without promoting the working file. Used on
// abort paths.
func (d *TXODump) Discard() error {
	return d.writer.Discard()
}
